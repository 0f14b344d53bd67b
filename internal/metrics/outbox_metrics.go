package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты публикации outbox-сообщения.
const (
	OutboxResultSent       = "sent"
	OutboxResultRetryError = "retry_error"
	OutboxResultFailed     = "failed"
	OutboxResultDLQFailed  = "dlq_failed"
	OutboxResultEnqueued   = "enqueued"
	OutboxResultEnqueueErr = "enqueue_error"
)

// OutboxMetrics описывает состояние outbox и доставки событий.
type OutboxMetrics struct {
	attempts     *prometheus.CounterVec
	pending      prometheus.Gauge
	oldestAgeSec prometheus.Gauge
}

// NewOutboxMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewOutboxMetrics() *OutboxMetrics {
	return NewOutboxMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOutboxMetricsWithRegisterer регистрирует метрики в заданном registerer.
func NewOutboxMetricsWithRegisterer(registerer prometheus.Registerer) *OutboxMetrics {
	return &OutboxMetrics{
		attempts: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "routedemo_outbox_publish_attempts_total",
			Help: "Total number of outbox operations grouped by result.",
		}, []string{"result"}), "routedemo_outbox_publish_attempts_total"),
		pending: register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "routedemo_outbox_pending_records",
			Help: "Current number of pending records in the outbox.",
		}), "routedemo_outbox_pending_records"),
		oldestAgeSec: register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "routedemo_outbox_oldest_pending_age_seconds",
			Help: "Age in seconds of the oldest pending outbox record.",
		}), "routedemo_outbox_oldest_pending_age_seconds"),
	}
}

// IncResult увеличивает счётчик результата. Допускает nil-получателя.
func (m *OutboxMetrics) IncResult(result string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(result).Inc()
}

// SetBacklog публикует размер очереди и возраст самого старого сообщения.
func (m *OutboxMetrics) SetBacklog(pending int, oldestAge time.Duration) {
	if m == nil {
		return
	}
	if oldestAge < 0 {
		oldestAge = 0
	}
	m.pending.Set(float64(pending))
	m.oldestAgeSec.Set(oldestAge.Seconds())
}
