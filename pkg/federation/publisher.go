package federation

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const (
	DefaultSupergraphFilename = "supergraph"
	ManifestFilename          = "graphql-supergraph.json"

	supergraphExtension = ".graphql"
)

// Publisher persists supergraph artifacts and the manifest describing the latest one.
// Every versioned artifact is kept; the alias and the manifest only reflect the latest publication.
type Publisher struct {
	fs            afero.Fs
	supergraphDir string
	contractDir   string
}

func NewPublisher(fs afero.Fs, supergraphDir, contractDir string) *Publisher {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Publisher{
		fs:            fs,
		supergraphDir: supergraphDir,
		contractDir:   contractDir,
	}
}

// ArtifactPath is the location of the artifact for version. The same version always maps to the same path.
func (p *Publisher) ArtifactPath(version string) string {
	return filepath.Join(p.supergraphDir, fmt.Sprintf("%s-%s%s", DefaultSupergraphFilename, version, supergraphExtension))
}

// AliasPath is the stable location pointing at the latest artifact.
func (p *Publisher) AliasPath() string {
	return filepath.Join(p.supergraphDir, DefaultSupergraphFilename+supergraphExtension)
}

func (p *Publisher) ManifestPath() string {
	return filepath.Join(p.contractDir, ManifestFilename)
}

// WriteSupergraph writes sdl to the versioned artifact and returns its path.
func (p *Publisher) WriteSupergraph(version, sdl string) (string, error) {
	path := p.ArtifactPath(version)
	if err := writeFileAtomic(p.fs, path, []byte(sdl)); err != nil {
		return "", errors.Wrapf(err, "write supergraph '%s'", path)
	}
	return path, nil
}

// UpdateAlias points the alias at artifactPath. A symbolic link is used when the filesystem
// supports it, a copy of the artifact otherwise. The returned error is informational:
// the versioned artifact stays the source of truth.
func (p *Publisher) UpdateAlias(artifactPath string) error {
	alias := p.AliasPath()
	if linker, ok := p.fs.(afero.Linker); ok {
		tmp := alias + ".tmp"
		_ = p.fs.Remove(tmp)
		if err := linker.SymlinkIfPossible(filepath.Base(artifactPath), tmp); err == nil {
			if err = p.fs.Rename(tmp, alias); err == nil {
				return nil
			}
			_ = p.fs.Remove(tmp)
		}
	}

	data, err := afero.ReadFile(p.fs, artifactPath)
	if err != nil {
		return errors.Wrapf(err, "read supergraph '%s'", artifactPath)
	}
	if err = writeFileAtomic(p.fs, alias, data); err != nil {
		return errors.Wrapf(err, "write supergraph alias '%s'", alias)
	}
	return nil
}

// WriteManifest overwrites the manifest and returns its path.
func (p *Publisher) WriteManifest(manifest Manifest) (string, error) {
	data, err := manifest.Marshal()
	if err != nil {
		return "", errors.Wrap(err, "encode manifest")
	}
	path := p.ManifestPath()
	if err = writeFileAtomic(p.fs, path, data); err != nil {
		return "", errors.Wrapf(err, "write manifest '%s'", path)
	}
	return path, nil
}

// writeFileAtomic writes data next to path and renames it into place so readers never see a partial file.
func writeFileAtomic(fs afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = fs.Chmod(tmpName, 0o644)
	}
	if err == nil {
		err = fs.Rename(tmpName, path)
	}
	if err != nil {
		if removeErr := fs.Remove(tmpName); removeErr != nil && !os.IsNotExist(removeErr) {
			return errors.Wrapf(err, "remove temporary file '%s': %v", tmpName, removeErr)
		}
		return err
	}
	return nil
}
