package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes.
const (
	OutcomeAccepted      = "accepted"
	OutcomeInvalid       = "invalid"
	OutcomeRateLimited   = "rate_limited"
	OutcomeNotOnList     = "not_on_list"
	OutcomeNotConfigured = "not_configured"
	OutcomeStorageError  = "storage_error"
)

// Import row results.
const (
	ImportImported  = "imported"
	ImportDuplicate = "duplicate"
	ImportInvalid   = "invalid"
	ImportFailed    = "failed"
)

// LatencyBuckets are the default latency buckets, in milliseconds.
var LatencyBuckets = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

var similarityBuckets = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.75, 0.8, 0.9, 1}

// Manager owns the Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Submission pipeline
	submissions     *prometheus.CounterVec
	matchSimilarity prometheus.Histogram
	guestsAccepted  prometheus.Counter
	inviteeCount    prometheus.Gauge
	importRows      *prometheus.CounterVec

	// Storage
	storageLatency *prometheus.HistogramVec
	storageErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rsvp",
		subsystem:        "api",
		histogramBuckets: LatencyBuckets,
		enabled:          true,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.submissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "submissions_total",
		Help:        "RSVP submissions by outcome",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.matchSimilarity = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "match_similarity",
		Help:        "Best similarity score seen per validated guest name",
		Buckets:     similarityBuckets,
		ConstLabels: labels,
	})

	m.guestsAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "guests_accepted_total",
		Help:        "Guest rows persisted from accepted submissions",
		ConstLabels: labels,
	})

	m.inviteeCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "invitees",
		Help:        "Current number of invitees on the guest list",
		ConstLabels: labels,
	})

	m.importRows = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "invitee_import_rows_total",
		Help:        "Invitee import rows by result",
		ConstLabels: labels,
	}, []string{"result"})

	m.storageLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "storage_latency_milliseconds",
		Help:        "Storage operation latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"operation"})

	m.storageErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "storage_errors_total",
		Help:        "Storage operation failures",
		ConstLabels: labels,
	}, []string{"operation"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_endpoint_total",
		Help:        "Total number of error responses by endpoint",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})
}

// RecordSubmission counts one submission with the given outcome.
func (m *Manager) RecordSubmission(outcome string) {
	if m.enabled {
		m.submissions.WithLabelValues(outcome).Inc()
	}
}

// RecordMatchSimilarity observes a best-match similarity score.
func (m *Manager) RecordMatchSimilarity(similarity float64) {
	if m.enabled {
		m.matchSimilarity.Observe(similarity)
	}
}

// RecordGuestsAccepted adds persisted guest rows.
func (m *Manager) RecordGuestsAccepted(n int) {
	if m.enabled && n > 0 {
		m.guestsAccepted.Add(float64(n))
	}
}

// UpdateInviteeCount sets the invitee gauge.
func (m *Manager) UpdateInviteeCount(n int64) {
	if m.enabled {
		m.inviteeCount.Set(float64(n))
	}
}

// RecordImportRow counts one processed import row.
func (m *Manager) RecordImportRow(result string) {
	if m.enabled {
		m.importRows.WithLabelValues(result).Inc()
	}
}

// RecordStorageLatency observes a storage operation duration.
func (m *Manager) RecordStorageLatency(operation string, latencyMs float64) {
	if m.enabled {
		m.storageLatency.WithLabelValues(operation).Observe(latencyMs)
	}
}

// RecordStorageError counts a failed storage operation.
func (m *Manager) RecordStorageError(operation string) {
	if m.enabled {
		m.storageErrors.WithLabelValues(operation).Inc()
	}
}

// RecordHTTPRequest counts an HTTP request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string) {
	if m.enabled {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration observes an HTTP request duration in milliseconds.
func (m *Manager) RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if m.enabled {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// RecordErrorByEndpoint counts an error response.
func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	if m.enabled {
		m.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// Global helpers backed by the default manager.

func RecordSubmission(outcome string)            { globalManager.RecordSubmission(outcome) }
func RecordMatchSimilarity(similarity float64)   { globalManager.RecordMatchSimilarity(similarity) }
func RecordGuestsAccepted(n int)                 { globalManager.RecordGuestsAccepted(n) }
func UpdateInviteeCount(n int64)                 { globalManager.UpdateInviteeCount(n) }
func RecordImportRow(result string)              { globalManager.RecordImportRow(result) }
func RecordStorageError(operation string)        { globalManager.RecordStorageError(operation) }
func RecordStorageLatency(op string, ms float64) { globalManager.RecordStorageLatency(op, ms) }
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode)
}
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequestDuration(endpoint, method, statusCode, durationMs)
}
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.RecordErrorByEndpoint(endpoint, method, errorType)
}

// GetRegistry returns the registry backing the global helpers.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
