// Package http serves the federated schema, its metadata and the GraphQL router proxy.
package http

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/jensneuse/abstractlogger"

	"github.com/decarvalhoe/meetinity/pkg/federation"
	"github.com/decarvalhoe/meetinity/pkg/httpclient"
	"github.com/decarvalhoe/meetinity/pkg/proxy"
)

const (
	graphqlPath    = "/graphql"
	schemaPath     = "/graphql/schema"
	metadataPath   = "/graphql/metadata"
	operationsPath = "/graphql/operations"
	metricsPath    = "/metrics"

	httpContentTypeApplicationJson string = "application/json"
	httpContentTypeTextPlain       string = "text/plain; charset=utf-8"

	federationDisabledMessage = "GraphQL federation disabled"
)

type subgraphMetadata struct {
	Name       string `json:"name"`
	RoutingURL string `json:"routing_url"`
	Digest     string `json:"digest"`
}

type schemaMetadata struct {
	Version        string             `json:"version"`
	ComposedAt     string             `json:"composed_at"`
	ManifestPath   string             `json:"manifest_path"`
	SupergraphPath string             `json:"supergraph_path"`
	Operations     federation.Catalog `json:"operations"`
	Subgraphs      []subgraphMetadata `json:"subgraphs"`
}

func (g *GatewayHTTPRequestHandler) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	if g.federation == nil {
		proxy.WriteError(w, http.StatusNotFound, federationDisabledMessage)
		return
	}
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet, http.MethodPost:
	default:
		g.methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodOptions)
		return
	}
	if g.routerProxy == nil {
		proxy.WriteError(w, http.StatusServiceUnavailable, "GraphQL router not configured")
		return
	}
	g.routerProxy.ServeHTTP(w, r)
}

func (g *GatewayHTTPRequestHandler) handleSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		g.methodNotAllowed(w, http.MethodGet)
		return
	}
	schema, _ := g.snapshot()
	if schema == nil {
		proxy.WriteError(w, http.StatusNotFound, federationDisabledMessage)
		return
	}
	w.Header().Set(httpclient.ContentTypeHeader, httpContentTypeTextPlain)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(schema.SupergraphSDL))
}

func (g *GatewayHTTPRequestHandler) handleMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		g.methodNotAllowed(w, http.MethodGet)
		return
	}
	schema, catalog := g.snapshot()
	if schema == nil {
		proxy.WriteError(w, http.StatusNotFound, federationDisabledMessage)
		return
	}

	subgraphs := make([]subgraphMetadata, 0, len(schema.Subgraphs))
	for _, snapshot := range schema.Subgraphs {
		subgraphs = append(subgraphs, subgraphMetadata{
			Name:       snapshot.Definition.Name,
			RoutingURL: snapshot.Definition.RoutingURL,
			Digest:     snapshot.Digest,
		})
	}
	g.writeJSON(w, schemaMetadata{
		Version:        schema.Version,
		ComposedAt:     schema.ComposedAt.UTC().Format(time.RFC3339Nano),
		ManifestPath:   schema.ManifestPath,
		SupergraphPath: schema.SupergraphPath,
		Operations:     catalog,
		Subgraphs:      subgraphs,
	})
}

func (g *GatewayHTTPRequestHandler) handleOperations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		g.methodNotAllowed(w, http.MethodGet)
		return
	}
	if g.federation == nil {
		proxy.WriteError(w, http.StatusNotFound, federationDisabledMessage)
		return
	}
	_, catalog := g.federation.Snapshot()
	g.writeJSON(w, catalog)
}

func (g *GatewayHTTPRequestHandler) snapshot() (*federation.FederatedSchema, federation.Catalog) {
	if g.federation == nil {
		return nil, nil
	}
	return g.federation.Snapshot()
}

func (g *GatewayHTTPRequestHandler) writeJSON(w http.ResponseWriter, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		g.log.Error("GatewayHTTPRequestHandler.writeJSON",
			log.Error(err),
		)
		proxy.WriteError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set(httpclient.ContentTypeHeader, httpContentTypeApplicationJson)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (g *GatewayHTTPRequestHandler) methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, method := range allowed {
		w.Header().Add("Allow", method)
	}
	proxy.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
}
