// Package metrics описывает метрики Prometheus сервиса. Все методы
// безопасно вызывать на nil *Metrics: в этом случае они ничего не делают.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chat_relay"

// Metrics набор счетчиков и гистограмм сервиса.
type Metrics struct {
	registry *prometheus.Registry

	relayOutcomes      *prometheus.CounterVec
	completionResults  *prometheus.CounterVec
	completionDuration prometheus.Histogram
	deliveryResults    *prometheus.CounterVec
	remindersPublished prometheus.Counter
}

// New регистрирует метрики в собственном реестре вместе со стандартными
// метриками процесса и рантайма Go.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		relayOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_updates_total",
			Help:      "Processed webhook updates by outcome.",
		}, []string{"outcome"}),
		completionResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_requests_total",
			Help:      "Completion endpoint calls by result.",
		}, []string{"result"}),
		completionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Latency of completion endpoint calls.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 90},
		}),
		deliveryResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_requests_total",
			Help:      "Messaging platform calls by method and result.",
		}, []string{"method", "result"}),
		remindersPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trial_reminders_published_total",
			Help:      "Trial expiry reminders published to the queue.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.relayOutcomes,
		m.completionResults,
		m.completionDuration,
		m.deliveryResults,
		m.remindersPublished,
	)
	return m
}

// Handler отдает метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RelayOutcome(outcome string) {
	if m == nil {
		return
	}
	m.relayOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CompletionResult(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.completionResults.WithLabelValues(result).Inc()
	m.completionDuration.Observe(took.Seconds())
}

func (m *Metrics) DeliveryResult(method, result string) {
	if m == nil {
		return
	}
	m.deliveryResults.WithLabelValues(method, result).Inc()
}

func (m *Metrics) ReminderPublished() {
	if m == nil {
		return
	}
	m.remindersPublished.Inc()
}
