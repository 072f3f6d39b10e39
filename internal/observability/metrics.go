package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// hazard-intel query pipeline.
type Metrics struct {
	// Feed fetch metrics.
	FetchRequests *prometheus.CounterVec   // labels: source, outcome={success,error}
	FetchDuration *prometheus.HistogramVec // labels: source
	EventsFetched *prometheus.CounterVec   // labels: source
	EventsInAOI   *prometheus.CounterVec   // labels: source

	// Record-level degradation metrics.
	ParseFallbacks    *prometheus.CounterVec // labels: source, kind={publish_time,row_timestamp,coordinates}
	EndpointFallbacks prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,no_result,error}

	// Query cycle metrics.
	QueryCycles        prometheus.Counter
	QueryCycleDuration prometheus.Histogram
	SnapshotsPublished prometheus.Counter
	PublishErrors      prometheus.Counter
	PipelineReady      prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.EventsFetched,
		m.EventsInAOI,
		m.ParseFallbacks,
		m.EndpointFallbacks,
		m.GeocodeRequests,
		m.QueryCycles,
		m.QueryCycleDuration,
		m.SnapshotsPublished,
		m.PublishErrors,
		m.PipelineReady,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// construct pipelines repeatedly without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "fetch_requests_total",
			Help:      "Feed fetch attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hazard_intel",
			Name:      "fetch_duration_seconds",
			Help:      "Feed fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"source"}),
		EventsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "events_fetched_total",
			Help:      "Canonical events produced by each feed adapter.",
		}, []string{"source"}),
		EventsInAOI: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "events_in_aoi_total",
			Help:      "Events retained by the AOI distance filter.",
		}, []string{"source"}),
		ParseFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "record_parse_fallbacks_total",
			Help:      "Per-record field degradations by source and kind.",
		}, []string{"source", "kind"}),
		EndpointFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "endpoint_fallbacks_total",
			Help:      "Fire-detection fetches that fell through to an alternate endpoint.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "geocode_requests_total",
			Help:      "AOI geocoding requests by outcome.",
		}, []string{"outcome"}),
		QueryCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "query_cycles_total",
			Help:      "Completed fetch-filter-aggregate cycles.",
		}),
		QueryCycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_intel",
			Name:      "query_cycle_duration_seconds",
			Help:      "Duration of a complete query cycle.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "snapshots_published_total",
			Help:      "Snapshots published to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_intel",
			Name:      "publish_errors_total",
			Help:      "Failed snapshot publishes.",
		}),
		PipelineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_intel",
			Name:      "pipeline_ready",
			Help:      "1 once the pipeline has completed a query cycle.",
		}),
	}
}
