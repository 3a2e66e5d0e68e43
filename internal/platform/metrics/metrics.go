package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	CredentialsIssued   *prometheus.CounterVec
	CredentialsRevoked  prometheus.Counter
	IssuanceRejected    *prometheus.CounterVec
	Verifications       *prometheus.CounterVec
	VerificationChecks  *prometheus.CounterVec
	LedgerFailures      *prometheus.CounterVec
	PersistenceFailures *prometheus.CounterVec
	EndpointLatency     *prometheus.HistogramVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CredentialsIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credhub_credentials_issued_total",
			Help: "Total number of credentials issued, labeled by type",
		}, []string{"type"}),
		CredentialsRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "credhub_credentials_revoked_total",
			Help: "Total number of revocations that found a credential",
		}),
		IssuanceRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credhub_issuance_rejected_total",
			Help: "Issuance requests rejected during validation, labeled by reason",
		}, []string{"reason"}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credhub_verifications_total",
			Help: "Verification attempts, labeled by outcome (verified, rejected, malformed)",
		}, []string{"outcome"}),
		VerificationChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credhub_verification_checks_total",
			Help: "Individual verification checks, labeled by check name and result",
		}, []string{"check", "result"}),
		LedgerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credhub_ledger_failures_total",
			Help: "Failed or timed out ledger calls, labeled by operation",
		}, []string{"operation"}),
		PersistenceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credhub_persistence_failures_total",
			Help: "Durable write failures, labeled by collection",
		}, []string{"collection"}),
		// - Latency per endpoint (histogram)
		EndpointLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "credhub_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

// IncrementCredentialsIssued increments the issued counter for a credential type
func (m *Metrics) IncrementCredentialsIssued(credType string) {
	m.CredentialsIssued.WithLabelValues(credType).Inc()
}

func (m *Metrics) IncrementCredentialsRevoked() {
	m.CredentialsRevoked.Inc()
}

func (m *Metrics) IncrementIssuanceRejected(reason string) {
	m.IssuanceRejected.WithLabelValues(reason).Inc()
}

// IncrementVerifications counts a finished verification by outcome
func (m *Metrics) IncrementVerifications(outcome string) {
	m.Verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveCheck(check string, passed bool) {
	result := "fail"
	if passed {
		result = "pass"
	}
	m.VerificationChecks.WithLabelValues(check, result).Inc()
}

func (m *Metrics) IncrementLedgerFailures(operation string) {
	m.LedgerFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncrementPersistenceFailures(collection string) {
	m.PersistenceFailures.WithLabelValues(collection).Inc()
}

// ObserveEndpointLatency records the latency for a given endpoint
func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}
