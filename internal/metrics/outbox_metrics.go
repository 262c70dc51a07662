package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты доставки сообщения outbox.
const (
	DeliverySent       = "sent"
	DeliveryRetry      = "retry"
	DeliveryFailed     = "failed"
	DeliveryDeadLetter = "dead_letter"
	DeliveryDLQFailed  = "dlq_failed"
)

// OutboxMetrics — метрики доставки transactional outbox.
type OutboxMetrics struct {
	deliveries       *prometheus.CounterVec
	pending          prometheus.Gauge
	oldestPendingAge prometheus.Gauge
}

// NewOutboxMetrics создаёт метрики outbox в DefaultRegisterer.
func NewOutboxMetrics() *OutboxMetrics {
	return NewOutboxMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOutboxMetricsWithRegisterer создаёт метрики outbox в указанном registry.
func NewOutboxMetricsWithRegisterer(registerer prometheus.Registerer) *OutboxMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OutboxMetrics{
		deliveries: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shop_outbox_publish_attempts_total",
			Help: "Total number of outbox publish attempts grouped by result",
		}, []string{"result"}),
		pending: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "shop_outbox_pending_records",
			Help: "Current number of pending records in transactional outbox",
		}),
		oldestPendingAge: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "shop_outbox_oldest_pending_age_seconds",
			Help: "Age in seconds of the oldest pending outbox record",
		}),
	}
}

// RecordDelivery увеличивает счётчик попыток с указанным результатом.
func (m *OutboxMetrics) RecordDelivery(result string) {
	m.deliveries.WithLabelValues(result).Inc()
}

// SetBacklog выставляет размер и возраст backlog.
func (m *OutboxMetrics) SetBacklog(pending int, oldest time.Duration) {
	if oldest < 0 || pending == 0 {
		oldest = 0
	}
	m.pending.Set(float64(pending))
	m.oldestPendingAge.Set(oldest.Seconds())
}
