package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters.
type Metrics struct {
	foreignCalls        prometheus.Counter
	verificationsValid  prometheus.Counter
	verificationsFailed prometheus.Counter
	pollAttempts        prometheus.Counter
	ledgerErrors        prometheus.Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// Init initializes global metrics (idempotent).
func Init() *Metrics {
	once.Do(func() {
		metrics = &Metrics{
			foreignCalls: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "donation_oracle_foreign_calls_total",
				Help: "Total number of oracle calls received",
			}),
			verificationsValid: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "donation_oracle_verifications_valid_total",
				Help: "Total number of verifications that returned a valid verdict",
			}),
			verificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "donation_oracle_verifications_failed_total",
				Help: "Total number of verifications that returned an invalid verdict",
			}),
			pollAttempts: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "donation_oracle_poll_attempts_total",
				Help: "Total number of receipt poll attempts against the ledger",
			}),
			ledgerErrors: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "donation_oracle_ledger_errors_total",
				Help: "Total number of transient ledger RPC errors",
			}),
		}
		prometheus.MustRegister(
			metrics.foreignCalls,
			metrics.verificationsValid,
			metrics.verificationsFailed,
			metrics.pollAttempts,
			metrics.ledgerErrors,
		)
	})
	return metrics
}

// ForeignCalls increments the received-calls counter.
func (m *Metrics) ForeignCalls() {
	if m != nil {
		m.foreignCalls.Inc()
	}
}

// VerificationValid increments the valid-verdict counter.
func (m *Metrics) VerificationValid() {
	if m != nil {
		m.verificationsValid.Inc()
	}
}

// VerificationFailed increments the invalid-verdict counter.
func (m *Metrics) VerificationFailed() {
	if m != nil {
		m.verificationsFailed.Inc()
	}
}

// PollAttempts increments the poll-attempt counter.
func (m *Metrics) PollAttempts() {
	if m != nil {
		m.pollAttempts.Inc()
	}
}

// LedgerErrors increments the transient-error counter.
func (m *Metrics) LedgerErrors() {
	if m != nil {
		m.ledgerErrors.Inc()
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
