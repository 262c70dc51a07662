package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Операции над заказом, используемые как значение label "operation".
const (
	OperationCreate  = "create"
	OperationUpdate  = "update"
	OperationDelete  = "delete"
	OperationRestore = "restore"
)

// OrderMetrics содержит метрики жизненного цикла заказов.
type OrderMetrics struct {
	// Счётчики операций по результату
	operations *prometheus.CounterVec

	// Гистограммы
	operationDuration *prometheus.HistogramVec
	orderTotal        prometheus.Histogram
	itemsPerOrder     prometheus.Histogram

	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge для заказов, которые сейчас создаются
	inFlight prometheus.Gauge
}

// NewOrderMetrics создаёт метрики заказов в DefaultRegisterer.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer создаёт метрики в указанном registry.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shop_order_operations_total",
			Help: "Total number of order operations grouped by operation and result",
		}, []string{"operation", "result"}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "shop_order_operation_duration_seconds",
			Help:    "Duration of order operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		orderTotal: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "shop_order_total_amount",
			Help:    "Total amount of created orders",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		itemsPerOrder: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "shop_order_line_items",
			Help:    "Number of line items in created orders",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shop_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "shop_orders_in_flight",
			Help: "Number of order create operations currently running",
		}),
	}
}

// RecordOperation фиксирует результат и длительность операции.
func (m *OrderMetrics) RecordOperation(operation string, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordOrderPlaced записывает сумму и число позиций созданного заказа.
func (m *OrderMetrics) RecordOrderPlaced(total decimal.Decimal, items int) {
	m.orderTotal.Observe(total.InexactFloat64())
	m.itemsPerOrder.Observe(float64(items))
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *OrderMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *OrderMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// CreateStarted увеличивает количество создаваемых заказов.
func (m *OrderMetrics) CreateStarted() {
	m.inFlight.Inc()
}

// CreateFinished уменьшает количество создаваемых заказов.
func (m *OrderMetrics) CreateFinished() {
	m.inFlight.Dec()
}
