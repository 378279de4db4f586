package federation

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Manifest is the JSON side-car describing the latest published supergraph.
// Fields are declared in lexical order so the encoded document has sorted keys.
type Manifest struct {
	ComposedAt     string             `json:"composed_at"`
	Operations     Catalog            `json:"operations"`
	Subgraphs      []ManifestSubgraph `json:"subgraphs"`
	SupergraphPath string             `json:"supergraph_path"`
	Version        string             `json:"version"`
}

type ManifestSubgraph struct {
	Digest       string            `json:"digest"`
	Name         string            `json:"name"`
	RestMappings map[string]string `json:"rest_mappings"`
	RoutingURL   string            `json:"routing_url"`
	SchemaPath   *string           `json:"schema_path"`
	SchemaURL    *string           `json:"schema_url"`
}

func newManifest(schema *FederatedSchema, catalog Catalog) Manifest {
	subgraphs := make([]ManifestSubgraph, 0, len(schema.Subgraphs))
	for _, snapshot := range schema.Subgraphs {
		definition := snapshot.Definition
		mappings := make(map[string]string, len(definition.RestMappings))
		for _, mapping := range definition.NormalizedRestMappings() {
			mappings[mapping.Path] = mapping.Field
		}
		subgraphs = append(subgraphs, ManifestSubgraph{
			Digest:       snapshot.Digest,
			Name:         definition.Name,
			RestMappings: mappings,
			RoutingURL:   definition.RoutingURL,
			SchemaPath:   optional(definition.SchemaPath),
			SchemaURL:    optional(definition.SchemaURL),
		})
	}
	return Manifest{
		ComposedAt:     formatTimestamp(schema.ComposedAt),
		Operations:     catalog,
		Subgraphs:      subgraphs,
		SupergraphPath: schema.SupergraphPath,
		Version:        schema.Version,
	}
}

func (m Manifest) Marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// LoadManifest reads a manifest previously written by a Publisher.
func LoadManifest(fs afero.Fs, path string) (*Manifest, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "read manifest '%s'", path)
	}
	var manifest Manifest
	if err = json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrapf(err, "decode manifest '%s'", path)
	}
	if manifest.Operations == nil {
		manifest.Operations = Catalog{}
	}
	return &manifest, nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
