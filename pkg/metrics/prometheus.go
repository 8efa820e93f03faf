// Package metrics provides Prometheus metrics for the skill-proof ledger service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the ledger service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ledger metrics
	contributionsSubmitted prometheus.Counter
	contributionsDuplicate prometheus.Counter
	batchesOpened          prometheus.Counter
	batchesClosed          prometheus.Counter
	openBatches            prometheus.Gauge
	totalContributions     prometheus.Gauge

	// Decryption protocol metrics
	decryptionRequests  prometheus.Counter
	callbacksCompleted  prometheus.Counter
	callbacksReplayed   prometheus.Counter
	callbacksMismatched prometheus.Counter
	callbacksFailed     prometheus.Counter
	pendingContexts     prometheus.Gauge

	// Guard metrics
	cooldownRejections *prometheus.CounterVec
	authRejections     *prometheus.CounterVec
	pausedRejections   prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// GetRegistry returns the registry all global metrics are registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "skillproof",
		subsystem:        "ledger",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.contributionsSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "contributions_submitted_total",
		Help:      "Total number of contributions accepted into the registry",
	})

	m.contributionsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "contributions_duplicate_total",
		Help:      "Total number of submissions rejected for reusing a contribution id",
	})

	m.batchesOpened = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batches_opened_total",
		Help:      "Total number of review batches opened",
	})

	m.batchesClosed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batches_closed_total",
		Help:      "Total number of review batches closed",
	})

	m.openBatches = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "open_batches",
		Help:      "Current number of batches accepting contributions",
	})

	m.totalContributions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "total_contributions",
		Help:      "Total number of contributions stored across all batches",
	})

	m.decryptionRequests = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "decryption_requests_total",
		Help:      "Total number of decryption requests dispatched to the oracle",
	})

	m.callbacksCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "callbacks_completed_total",
		Help:      "Total number of oracle callbacks accepted and marked processed",
	})

	m.callbacksReplayed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "callbacks_replayed_total",
		Help:      "Total number of oracle callbacks rejected as replays of a processed context",
	})

	m.callbacksMismatched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "callbacks_state_mismatch_total",
		Help:      "Total number of oracle callbacks rejected because the live snapshot hash drifted",
	})

	m.callbacksFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "callbacks_failed_total",
		Help:      "Total number of oracle callbacks rejected for malformed cleartext or bad proof",
	})

	m.pendingContexts = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pending_decryption_contexts",
		Help:      "Current number of decryption contexts awaiting a verified callback",
	})

	m.cooldownRejections = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "cooldown_rejections_total",
			Help:      "Total number of operations rejected by the cooldown guard, by action class",
		},
		[]string{"action_class"},
	)

	m.authRejections = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "auth_rejections_total",
			Help:      "Total number of operations rejected for a missing role, by role",
		},
		[]string{"role"},
	)

	m.pausedRejections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "paused_rejections_total",
		Help:      "Total number of mutations rejected while the system was paused",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordContributionSubmitted increments the accepted contributions counter.
func RecordContributionSubmitted() {
	globalManager.contributionsSubmitted.Inc()
}

// RecordContributionDuplicate increments the duplicate submission counter.
func RecordContributionDuplicate() {
	globalManager.contributionsDuplicate.Inc()
}

// RecordBatchOpened increments the opened batches counter.
func RecordBatchOpened() {
	globalManager.batchesOpened.Inc()
}

// RecordBatchClosed increments the closed batches counter.
func RecordBatchClosed() {
	globalManager.batchesClosed.Inc()
}

// UpdateOpenBatches sets the open batch gauge.
func UpdateOpenBatches(count int) {
	globalManager.openBatches.Set(float64(count))
}

// UpdateTotalContributions sets the stored contribution gauge.
func UpdateTotalContributions(count int) {
	globalManager.totalContributions.Set(float64(count))
}

// RecordDecryptionRequested increments the dispatched request counter.
func RecordDecryptionRequested() {
	globalManager.decryptionRequests.Inc()
}

// RecordCallbackCompleted increments the accepted callback counter.
func RecordCallbackCompleted() {
	globalManager.callbacksCompleted.Inc()
}

// RecordCallbackReplayed increments the replayed callback counter.
func RecordCallbackReplayed() {
	globalManager.callbacksReplayed.Inc()
}

// RecordCallbackMismatched increments the state-mismatch callback counter.
func RecordCallbackMismatched() {
	globalManager.callbacksMismatched.Inc()
}

// RecordCallbackFailed increments the failed callback counter.
func RecordCallbackFailed() {
	globalManager.callbacksFailed.Inc()
}

// UpdatePendingContexts sets the pending decryption context gauge.
func UpdatePendingContexts(count int) {
	globalManager.pendingContexts.Set(float64(count))
}

// RecordCooldownRejection increments the cooldown rejection counter for a class.
func RecordCooldownRejection(actionClass string) {
	globalManager.cooldownRejections.WithLabelValues(actionClass).Inc()
}

// RecordAuthRejection increments the authorization rejection counter for a role.
func RecordAuthRejection(role string) {
	globalManager.authRejections.WithLabelValues(role).Inc()
}

// RecordPausedRejection increments the paused rejection counter.
func RecordPausedRejection() {
	globalManager.pausedRejections.Inc()
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}
