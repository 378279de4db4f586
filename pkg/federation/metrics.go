package federation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeComposed = "composed"
	outcomeCached   = "cached"
	outcomeFailed   = "failed"
)

// Metrics contains the composition metrics of one gateway.
type Metrics struct {
	SupergraphVersion   *prometheus.GaugeVec
	Compositions        *prometheus.CounterVec
	CompositionDuration prometheus.Histogram
	SchemaFetchDuration *prometheus.HistogramVec
	AliasFailures       prometheus.Counter
	CatalogOperations   prometheus.Gauge
	CatalogConflicts    prometheus.Gauge
}

// NewMetrics creates the composition metrics and registers them with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		SupergraphVersion: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "meetinity",
				Subsystem: "federation",
				Name:      "supergraph_info",
				Help:      "Currently published supergraph version (1 for the latest version)",
			},
			[]string{"version"},
		),

		Compositions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "meetinity",
				Subsystem: "federation",
				Name:      "compositions_total",
				Help:      "Total number of schema refreshes by outcome",
			},
			[]string{"outcome"},
		),

		CompositionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "meetinity",
				Subsystem: "federation",
				Name:      "composition_duration_seconds",
				Help:      "Duration of schema refreshes in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		SchemaFetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "meetinity",
				Subsystem: "federation",
				Name:      "schema_retrieval_duration_seconds",
				Help:      "Duration of subgraph schema retrieval in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"subgraph", "source"},
		),

		AliasFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "meetinity",
				Subsystem: "federation",
				Name:      "alias_failures_total",
				Help:      "Total number of failed supergraph alias updates",
			},
		),

		CatalogOperations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "meetinity",
				Subsystem: "federation",
				Name:      "catalog_operations",
				Help:      "Number of REST paths in the operation catalog",
			},
		),

		CatalogConflicts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "meetinity",
				Subsystem: "federation",
				Name:      "catalog_conflicts",
				Help:      "Number of REST paths declared by more than one subgraph",
			},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.SupergraphVersion,
			m.Compositions,
			m.CompositionDuration,
			m.SchemaFetchDuration,
			m.AliasFailures,
			m.CatalogOperations,
			m.CatalogConflicts,
		)
	}
	return m
}

// RecordSupergraphVersion marks version as the only published version.
func (m *Metrics) RecordSupergraphVersion(version string) {
	if m == nil {
		return
	}
	m.SupergraphVersion.Reset()
	m.SupergraphVersion.WithLabelValues(version).Set(1)
}

func (m *Metrics) recordComposition(outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.Compositions.WithLabelValues(outcome).Inc()
	m.CompositionDuration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) recordFetch(definition SubgraphDefinition, started time.Time) {
	if m == nil {
		return
	}
	m.SchemaFetchDuration.WithLabelValues(definition.Name, definition.SchemaSource()).Observe(time.Since(started).Seconds())
}

func (m *Metrics) recordAliasFailure() {
	if m == nil {
		return
	}
	m.AliasFailures.Inc()
}

func (m *Metrics) recordCatalog(catalog Catalog, conflicts []CatalogConflict) {
	if m == nil {
		return
	}
	m.CatalogOperations.Set(float64(len(catalog)))
	m.CatalogConflicts.Set(float64(len(conflicts)))
}
