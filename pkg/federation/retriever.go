package federation

import (
	"context"
	"net/http"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/spf13/afero"

	"github.com/decarvalhoe/meetinity/pkg/httpclient"
)

const (
	DefaultSchemaConnectTimeout = 5 * time.Second
	DefaultSchemaReadTimeout    = 10 * time.Second

	schemaCacheSize = 128
)

type cachedSchema struct {
	etag string
	sdl  string
}

// Retriever resolves the schema text of a subgraph definition.
// The sources are tried in a fixed order: inline SDL, local file, remote URL.
// Failures are returned immediately, there are no retries.
type Retriever struct {
	client *http.Client
	fs     afero.Fs
	cache  *lru.Cache
}

// NewRetriever creates a Retriever. A nil client uses httpclient.New with the default schema timeouts,
// a nil fs uses the operating system filesystem.
func NewRetriever(client *http.Client, fs afero.Fs) *Retriever {
	if client == nil {
		client = httpclient.New(DefaultSchemaConnectTimeout, DefaultSchemaReadTimeout)
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	// lru.New only fails for a non-positive size
	cache, _ := lru.New(schemaCacheSize)
	return &Retriever{
		client: client,
		fs:     fs,
		cache:  cache,
	}
}

func (r *Retriever) Retrieve(ctx context.Context, definition SubgraphDefinition) (string, error) {
	if definition.SDL != "" {
		return definition.SDL, nil
	}
	if definition.SchemaPath != "" {
		return r.readFile(definition)
	}
	return r.fetch(ctx, definition)
}

func (r *Retriever) readFile(definition SubgraphDefinition) (string, error) {
	data, err := afero.ReadFile(r.fs, definition.SchemaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", retrievalError(definition.Name, nil, "schema file '%s' does not exist", definition.SchemaPath)
		}
		return "", retrievalError(definition.Name, err, "read schema file '%s'", definition.SchemaPath)
	}
	return string(data), nil
}

func (r *Retriever) fetch(ctx context.Context, definition SubgraphDefinition) (string, error) {
	if definition.SchemaURL == "" {
		return "", retrievalError(definition.Name, nil, "missing a schema_url")
	}

	header := http.Header{}
	for key, value := range definition.Headers {
		header.Set(key, value)
	}

	cacheKey := definition.Name + "\x00" + definition.SchemaURL
	var cached *cachedSchema
	if value, ok := r.cache.Get(cacheKey); ok {
		cached = value.(*cachedSchema)
		header.Set(httpclient.IfNoneMatchHeader, cached.etag)
	}

	response, err := httpclient.Get(ctx, r.client, definition.SchemaURL, header)
	if err != nil {
		return "", retrievalError(definition.Name, err, "failed to download schema")
	}

	if response.StatusCode == http.StatusNotModified && cached != nil {
		return cached.sdl, nil
	}
	if response.StatusCode >= http.StatusBadRequest || response.StatusCode == http.StatusNotModified {
		return "", retrievalError(definition.Name, nil, "schema endpoint returned %d", response.StatusCode)
	}

	sdl := string(response.Body)
	if etag := response.Header.Get(httpclient.ETagHeader); etag != "" {
		r.cache.Add(cacheKey, &cachedSchema{etag: etag, sdl: sdl})
	} else if cached != nil {
		r.cache.Remove(cacheKey)
	}
	return sdl, nil
}
