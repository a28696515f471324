// ABOUTME: Prometheus collectors for Bot API requests and conversation operations
// ABOUTME: Implements the telegram and conversation observer hooks

package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/2389/coven-telegram/internal/conversation"
	"github.com/2389/coven-telegram/internal/telegram"
	"github.com/2389/coven-telegram/internal/waiter"
)

const namespace = "coven_telegram"

// Outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeTimeout   = "timeout"
	OutcomeUnknown   = "unknown_conversation"
	OutcomeTransport = "transport_error"
	OutcomeError     = "error"
)

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests    *prometheus.CounterVec
	apiDuration    *prometheus.HistogramVec
	operations     *prometheus.CounterVec
	opDuration     *prometheus.HistogramVec
	activeSessions prometheus.Gauge
}

// New creates Metrics with Go runtime and process collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_api_requests_total",
			Help:      "Telegram Bot API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bot_api_request_duration_seconds",
			Help:      "Telegram Bot API request latency, long-polls included.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		}, []string{"method"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_operations_total",
			Help:      "Conversation operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversation_operation_duration_seconds",
			Help:      "Time spent in each conversation operation, waiting for the user included.",
			Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120, 180, 300},
		}, []string{"operation"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversations",
			Help:      "Conversations currently held in memory.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests,
		m.apiDuration,
		m.operations,
		m.opDuration,
		m.activeSessions,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest implements telegram.Observer.
func (m *Metrics) ObserveRequest(method string, err error, elapsed time.Duration) {
	m.apiRequests.WithLabelValues(method, Outcome(err)).Inc()
	m.apiDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveOperation implements conversation.Observer.
func (m *Metrics) ObserveOperation(op string, err error, elapsed time.Duration) {
	m.operations.WithLabelValues(op, Outcome(err)).Inc()
	m.opDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SetActiveSessions implements conversation.Observer.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Outcome classifies an error into a label value.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}

	var (
		timeoutErr   *waiter.ResponseTimeoutError
		unknownErr   *conversation.UnknownConversationError
		transportErr *telegram.TransportError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return OutcomeTimeout
	case errors.As(err, &unknownErr):
		return OutcomeUnknown
	case errors.As(err, &transportErr):
		return OutcomeTransport
	default:
		return OutcomeError
	}
}
