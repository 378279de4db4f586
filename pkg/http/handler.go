package http

import (
	"net/http"

	log "github.com/jensneuse/abstractlogger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/decarvalhoe/meetinity/pkg/federation"
	"github.com/decarvalhoe/meetinity/pkg/proxy"
)

// FederationProvider is the read side of a federation.Gateway.
// Snapshot must return a schema and the catalog composed with it.
type FederationProvider interface {
	Snapshot() (*federation.FederatedSchema, federation.Catalog)
}

type HandlerConfig struct {
	// Federation is nil when federation is disabled.
	Federation FederationProvider
	// RouterURL is the GraphQL router requests to /graphql are proxied to.
	RouterURL    string
	RouterClient *http.Client
	// Gatherer enables /metrics when set.
	Gatherer prometheus.Gatherer
}

func NewGatewayHTTPHandler(config HandlerConfig, logger log.Logger) http.Handler {
	if logger == nil {
		logger = log.NoopLogger
	}
	g := &GatewayHTTPRequestHandler{
		log:        logger,
		federation: config.Federation,
		mux:        http.NewServeMux(),
	}
	if config.RouterURL != "" {
		g.routerProxy = proxy.NewRouterProxy(config.RouterURL, config.RouterClient, logger)
	}

	g.mux.HandleFunc(graphqlPath, g.handleGraphQL)
	g.mux.HandleFunc(schemaPath, g.handleSchema)
	g.mux.HandleFunc(metadataPath, g.handleMetadata)
	g.mux.HandleFunc(operationsPath, g.handleOperations)
	if config.Gatherer != nil {
		g.mux.Handle(metricsPath, promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{}))
	}
	return g
}

type GatewayHTTPRequestHandler struct {
	log         log.Logger
	federation  FederationProvider
	routerProxy *proxy.Proxy
	mux         *http.ServeMux
}

func (g *GatewayHTTPRequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}
