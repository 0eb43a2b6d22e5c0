// Package metrics provides Prometheus metrics for rxnspace builds.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for reaction space builds.
type Metrics struct {
	// Build metrics
	BuildsCompleted *prometheus.CounterVec
	BuildsSkipped   *prometheus.CounterVec
	BuildsFailed    *prometheus.CounterVec

	// Timing metrics
	LoadDuration    *prometheus.HistogramVec
	BuildDuration   *prometheus.HistogramVec
	EncodeDuration  *prometheus.HistogramVec
	PublishDuration *prometheus.HistogramVec

	// Size metrics
	ComponentRecords *prometheus.HistogramVec
	SpaceEntries     *prometheus.HistogramVec
	SpaceWidth       *prometheus.GaugeVec
	OutputBytes      *prometheus.HistogramVec

	// Error metrics
	StageErrors *prometheus.CounterVec
}

// Config holds metrics configuration.
type Config struct {
	Enabled bool
	Address string // Address for metrics HTTP server (e.g., ":9090")
}

var defaultMetrics *Metrics

// Init initializes the global metrics on the default registry.
// Call this once at startup.
func Init(namespace string) *Metrics {
	defaultMetrics = New(namespace, prometheus.DefaultRegisterer)
	return defaultMetrics
}

// New creates metrics registered on reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "rxnspace"
	}
	factory := promauto.With(reg)

	return &Metrics{
		BuildsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_completed_total",
				Help:      "Total number of reaction spaces published",
			},
			[]string{"dataset", "format"},
		),
		BuildsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_skipped_total",
				Help:      "Total number of builds skipped (unchanged inputs, output exists)",
			},
			[]string{"dataset"},
		),
		BuildsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_failed_total",
				Help:      "Total number of builds that failed",
			},
			[]string{"dataset"},
		),
		LoadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "load_duration_seconds",
				Help:      "Time to load and parse all components",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
			},
			[]string{"dataset"},
		),
		BuildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "build_duration_seconds",
				Help:      "Time to enumerate the reaction space",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~30s
			},
			[]string{"dataset"},
		),
		EncodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "encode_duration_seconds",
				Help:      "Time to encode the reaction space",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
			},
			[]string{"dataset", "format"},
		),
		PublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "publish_duration_seconds",
				Help:      "Time to write the output and manifest to storage",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"dataset", "backend"},
		),
		ComponentRecords: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "component_records",
				Help:      "Number of records per component table",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10), // 1 to ~260k
			},
			[]string{"dataset"},
		),
		SpaceEntries: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "space_entries",
				Help:      "Number of entries per reaction space",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 12), // 1 to ~4M
			},
			[]string{"dataset"},
		),
		SpaceWidth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "space_width",
				Help:      "Feature columns of the last built reaction space",
			},
			[]string{"dataset"},
		),
		OutputBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "output_bytes",
				Help:      "Size of encoded outputs in bytes",
				Buckets:   prometheus.ExponentialBuckets(1024, 2, 18), // 1KB to ~128MB
			},
			[]string{"dataset", "format"},
		),
		StageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_errors_total",
				Help:      "Total number of errors by pipeline stage",
			},
			[]string{"dataset", "stage"},
		),
	}
}

// Get returns the global metrics instance.
// Returns nil if Init has not been called.
func Get() *Metrics {
	return defaultMetrics
}

// Handler returns the HTTP handler serving /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// StartServer starts an HTTP server for Prometheus metrics scraping.
// Blocks until the server exits.
func StartServer(address string) error {
	return http.ListenAndServe(address, Handler())
}

// Labels is a convenience type for metric labels.
type Labels struct {
	Dataset string
	Format  string
	Backend string
	Stage   string
}

func (m *Metrics) IncBuildsCompleted(l Labels) {
	m.BuildsCompleted.WithLabelValues(l.Dataset, l.Format).Inc()
}

func (m *Metrics) IncBuildsSkipped(l Labels) {
	m.BuildsSkipped.WithLabelValues(l.Dataset).Inc()
}

func (m *Metrics) IncBuildsFailed(l Labels) {
	m.BuildsFailed.WithLabelValues(l.Dataset).Inc()
}

func (m *Metrics) ObserveLoadDuration(l Labels, seconds float64) {
	m.LoadDuration.WithLabelValues(l.Dataset).Observe(seconds)
}

func (m *Metrics) ObserveBuildDuration(l Labels, seconds float64) {
	m.BuildDuration.WithLabelValues(l.Dataset).Observe(seconds)
}

func (m *Metrics) ObserveEncodeDuration(l Labels, seconds float64) {
	m.EncodeDuration.WithLabelValues(l.Dataset, l.Format).Observe(seconds)
}

func (m *Metrics) ObservePublishDuration(l Labels, seconds float64) {
	m.PublishDuration.WithLabelValues(l.Dataset, l.Backend).Observe(seconds)
}

func (m *Metrics) ObserveComponentRecords(l Labels, records float64) {
	m.ComponentRecords.WithLabelValues(l.Dataset).Observe(records)
}

func (m *Metrics) ObserveSpaceEntries(l Labels, entries float64) {
	m.SpaceEntries.WithLabelValues(l.Dataset).Observe(entries)
}

func (m *Metrics) SetSpaceWidth(l Labels, width float64) {
	m.SpaceWidth.WithLabelValues(l.Dataset).Set(width)
}

func (m *Metrics) ObserveOutputBytes(l Labels, bytes float64) {
	m.OutputBytes.WithLabelValues(l.Dataset, l.Format).Observe(bytes)
}

// IncStageErrors increments the error counter for l.Stage
// ("load", "build", "encode", "validate", "publish", "catalog", "provenance").
func (m *Metrics) IncStageErrors(l Labels) {
	m.StageErrors.WithLabelValues(l.Dataset, l.Stage).Inc()
}
