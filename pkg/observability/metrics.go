package observability

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/springjools/ombibot/pkg/domain"
)

const namespace = "ombibot"

// Catalog call outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport"
	OutcomeProtocol  = "protocol"
	OutcomeError     = "error"
)

// Metrics holds the bot's Prometheus collectors on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	catalog     *prometheus.HistogramVec
	evictions   prometheus.Counter
}

// MetricsOption configures Metrics.
type MetricsOption func(*Metrics)

// WithActiveSessions exports count as the active sessions gauge.
func WithActiveSessions(count func() float64) MetricsOption {
	return func(m *Metrics) {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live conversation sessions.",
		}, count))
	}
}

// WithRuntimeCollectors adds the Go runtime and process collectors.
func WithRuntimeCollectors() MetricsOption {
	return func(m *Metrics) {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
}

// NewMetrics creates and registers the collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Handled events by source state, target state and trigger.",
		}, []string{"from", "to", "trigger"}),
		catalog: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_call_duration_seconds",
			Help:      "Duration of catalog calls by operation and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "outcome"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_evictions_total",
			Help:      "Sessions dropped for inactivity.",
		}),
	}
	m.registry.MustRegister(m.transitions, m.catalog, m.evictions)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry exposes the registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks records engine activity.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			m.transitions.WithLabelValues(string(e.From), string(e.To), e.Trigger).Inc()
		},
		OnCatalogCall: func(ctx context.Context, e *domain.CatalogEvent) {
			m.catalog.WithLabelValues(e.Op, Outcome(e.Err)).Observe(e.Duration.Seconds())
		},
		OnSessionEvicted: func(ctx context.Context, userID string) {
			m.evictions.Inc()
		},
	}
}

// Outcome classifies a catalog error for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrTransport):
		return OutcomeTransport
	case errors.Is(err, domain.ErrProtocol):
		return OutcomeProtocol
	default:
		return OutcomeError
	}
}
