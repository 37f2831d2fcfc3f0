// Package metrics exports verification, ledger and issuance measurements
// to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"certichain/internal/domain"
	"certichain/internal/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "certichain"

type Metrics struct {
	registry      *prometheus.Registry
	verdicts      *prometheus.CounterVec
	ledgerCalls   *prometheus.HistogramVec
	ledgerErrors  *prometheus.CounterVec
	issuances     *prometheus.CounterVec
	historyEvents *prometheus.CounterVec
}

// New registers collectors on a private registry together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Verification verdicts by path and status.",
		}, []string{"path", "status"}),
		ledgerCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_call_duration_seconds",
			Help:      "Ledger call latency by operation.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"op"}),
		ledgerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_call_errors_total",
			Help:      "Failed ledger calls by operation and error kind.",
		}, []string{"op", "kind"}),
		issuances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issuances_total",
			Help:      "Issuance attempts by outcome.",
		}, []string{"outcome"}),
		historyEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_events_total",
			Help:      "Ledger events stored by the history indexer.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.verdicts,
		m.ledgerCalls,
		m.ledgerErrors,
		m.issuances,
		m.historyEvents,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveVerdict(path domain.VerificationPath, status domain.VerdictStatus) {
	m.verdicts.WithLabelValues(string(path), string(status)).Inc()
}

func (m *Metrics) ObserveLedgerCall(op string, elapsed time.Duration, err error) {
	m.ledgerCalls.WithLabelValues(op).Observe(elapsed.Seconds())
	if err != nil {
		m.ledgerErrors.WithLabelValues(op, errorKind(err)).Inc()
	}
}

func (m *Metrics) ObserveIssuance(outcome string) {
	m.issuances.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHistoryEvent(kind domain.EventKind) {
	m.historyEvents.WithLabelValues(string(kind)).Inc()
}

// errorKind keeps label cardinality bounded.
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrTransient):
		return "transient"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrDuplicateCommitment):
		return "duplicate"
	case errors.Is(err, domain.ErrAlreadyRevoked):
		return "already_revoked"
	case errors.Is(err, domain.ErrInputValidation):
		return "input"
	case errors.Is(err, domain.ErrLedgerRejected):
		return "rejected"
	}
	return "other"
}

var _ usecase.Observer = (*Metrics)(nil)
