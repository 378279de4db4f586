package federation

import (
	"context"
	"net/http"
	"sync"
	"time"

	log "github.com/jensneuse/abstractlogger"
	"github.com/spf13/afero"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// Option configures a Gateway.
type Option func(g *Gateway)

func WithLogger(logger log.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithClock replaces the clock used for composition timestamps.
func WithClock(clock func() time.Time) Option {
	return func(g *Gateway) {
		g.clock = clock
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(g *Gateway) {
		g.metrics = metrics
	}
}

// WithHTTPClient sets the client used to download remote subgraph schemas.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = client
	}
}

// WithFs sets the filesystem schema files are read from and artifacts are written to.
func WithFs(fs afero.Fs) Option {
	return func(g *Gateway) {
		g.fs = fs
	}
}

// state is swapped as a whole so readers never see a schema together with the catalog of another one.
type state struct {
	schema  *FederatedSchema
	catalog Catalog
}

// Gateway composes subgraph schemas into a supergraph and publishes it.
//
// RefreshSchema calls are serialized: there is a single writer at a time. Readers (Latest,
// OperationCatalog, ValidateRestMappings) never block on a running composition and observe
// either the previous or the next complete schema.
type Gateway struct {
	subgraphs atomic.Pointer[[]SubgraphDefinition]
	latest    atomic.Pointer[state]
	refreshMu sync.Mutex

	retriever *Retriever
	publisher *Publisher

	fs         afero.Fs
	httpClient *http.Client
	clock      func() time.Time
	logger     log.Logger
	metrics    *Metrics
}

// NewGateway creates a Gateway for subgraphs writing artifacts to supergraphDir and the manifest to contractDir.
// It fails when no subgraph is given or when a definition is invalid.
func NewGateway(subgraphs []SubgraphDefinition, supergraphDir, contractDir string, opts ...Option) (*Gateway, error) {
	if err := validateDefinitions(subgraphs); err != nil {
		return nil, err
	}

	g := &Gateway{
		clock:  func() time.Time { return time.Now().UTC() },
		logger: log.NoopLogger,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.fs == nil {
		g.fs = afero.NewOsFs()
	}

	g.retriever = NewRetriever(g.httpClient, g.fs)
	g.publisher = NewPublisher(g.fs, supergraphDir, contractDir)
	g.storeSubgraphs(subgraphs)
	return g, nil
}

// ReplaceSubgraphs swaps the subgraph set used by the next composition.
// The published schema is left untouched until RefreshSchema runs.
func (g *Gateway) ReplaceSubgraphs(subgraphs []SubgraphDefinition) error {
	if err := validateDefinitions(subgraphs); err != nil {
		return err
	}
	g.storeSubgraphs(subgraphs)
	return nil
}

func (g *Gateway) storeSubgraphs(subgraphs []SubgraphDefinition) {
	own := make([]SubgraphDefinition, len(subgraphs))
	copy(own, subgraphs)
	g.subgraphs.Store(&own)
}

// Subgraphs returns a copy of the current subgraph definitions.
func (g *Gateway) Subgraphs() []SubgraphDefinition {
	current := *g.subgraphs.Load()
	out := make([]SubgraphDefinition, len(current))
	copy(out, current)
	return out
}

// Latest returns the most recently published schema or nil when no composition succeeded yet.
func (g *Gateway) Latest() *FederatedSchema {
	if s := g.latest.Load(); s != nil {
		return s.schema
	}
	return nil
}

// OperationCatalog returns a copy of the catalog of the latest schema.
func (g *Gateway) OperationCatalog() Catalog {
	if s := g.latest.Load(); s != nil {
		return s.catalog.clone()
	}
	return Catalog{}
}

// Snapshot returns the latest schema together with a copy of the catalog composed with it.
// Both come from the same publication. Before the first composition the schema is nil.
func (g *Gateway) Snapshot() (*FederatedSchema, Catalog) {
	if s := g.latest.Load(); s != nil {
		return s.schema, s.catalog.clone()
	}
	return nil, Catalog{}
}

// ManifestPath returns the manifest of the latest schema, or an empty string.
func (g *Gateway) ManifestPath() string {
	if schema := g.Latest(); schema != nil {
		return schema.ManifestPath
	}
	return ""
}

// PublishContract makes sure the current subgraphs are published and returns the manifest path.
func (g *Gateway) PublishContract(ctx context.Context) (string, error) {
	schema, err := g.RefreshSchema(ctx, false)
	if err != nil {
		return "", err
	}
	return schema.ManifestPath, nil
}

// RefreshSchema composes the current subgraphs and publishes the result.
// Unless force is set, an unchanged version returns the latest schema without any I/O.
// On failure nothing is published and the previous schema stays in place.
func (g *Gateway) RefreshSchema(ctx context.Context, force bool) (*FederatedSchema, error) {
	g.refreshMu.Lock()
	defer g.refreshMu.Unlock()

	started := time.Now()
	schema, err := g.refresh(ctx, force)
	if err != nil {
		g.metrics.recordComposition(outcomeFailed, started)
		g.logger.Error("federation.Gateway.RefreshSchema",
			log.Error(err),
		)
		return nil, err
	}
	return schema, nil
}

func (g *Gateway) refresh(ctx context.Context, force bool) (*FederatedSchema, error) {
	started := time.Now()
	definitions := *g.subgraphs.Load()

	snapshots, err := g.loadSnapshots(ctx, definitions)
	if err != nil {
		return nil, err
	}
	version := Version(snapshots)

	if current := g.latest.Load(); !force && current != nil && current.schema.Version == version {
		g.metrics.recordComposition(outcomeCached, started)
		g.logger.Debug("supergraph unchanged",
			log.String("version", version),
		)
		return current.schema, nil
	}

	composedAt := g.clock()
	schema := &FederatedSchema{
		Version:       version,
		ComposedAt:    composedAt,
		SupergraphSDL: ComposeSupergraph(snapshots, composedAt),
		Subgraphs:     snapshots,
	}

	schema.SupergraphPath, err = g.publisher.WriteSupergraph(version, schema.SupergraphSDL)
	if err != nil {
		return nil, publicationError(err, "publish supergraph")
	}

	catalog, conflicts := BuildCatalog(snapshotDefinitions(snapshots))
	for _, conflict := range conflicts {
		g.logger.Warn("rest path declared by several subgraphs",
			log.String("path", conflict.Path),
			log.String("kept", conflict.Kept.Subgraph),
			log.String("dropped", conflict.Dropped.Subgraph),
		)
	}

	schema.ManifestPath, err = g.publisher.WriteManifest(newManifest(schema, catalog))
	if err != nil {
		return nil, publicationError(err, "publish manifest")
	}

	// The alias only moves once the manifest describes the new version.
	if err = g.publisher.UpdateAlias(schema.SupergraphPath); err != nil {
		g.metrics.recordAliasFailure()
		g.logger.Warn("supergraph alias not updated",
			log.String("alias", g.publisher.AliasPath()),
			log.Error(err),
		)
	}

	g.latest.Store(&state{schema: schema, catalog: catalog})

	g.metrics.recordComposition(outcomeComposed, started)
	g.metrics.recordCatalog(catalog, conflicts)
	g.metrics.RecordSupergraphVersion(version)
	g.logger.Info("supergraph published",
		log.String("version", version),
		log.String("path", schema.SupergraphPath),
		log.Int("subgraphs", len(snapshots)),
		log.Int("operations", len(catalog)),
	)
	return schema, nil
}

// loadSnapshots retrieves all schemas concurrently. The first failure cancels the others
// and aborts the composition.
func (g *Gateway) loadSnapshots(ctx context.Context, definitions []SubgraphDefinition) ([]SubgraphSnapshot, error) {
	snapshots := make([]SubgraphSnapshot, len(definitions))
	group, groupCtx := errgroup.WithContext(ctx)
	for i := range definitions {
		i := i
		group.Go(func() error {
			started := time.Now()
			sdl, err := g.retriever.Retrieve(groupCtx, definitions[i])
			if err != nil {
				return err
			}
			g.metrics.recordFetch(definitions[i], started)
			snapshots[i] = SubgraphSnapshot{
				Definition: definitions[i],
				SDL:        sdl,
				Digest:     Digest(sdl),
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func snapshotDefinitions(snapshots []SubgraphSnapshot) []SubgraphDefinition {
	definitions := make([]SubgraphDefinition, 0, len(snapshots))
	for _, snapshot := range snapshots {
		definitions = append(definitions, snapshot.Definition)
	}
	return definitions
}
