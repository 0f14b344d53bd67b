package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/IanKulin/route-demo/internal/domain"
)

// RecordMetrics считает изменения в хранилище записей.
type RecordMetrics struct {
	mutations      *prometheus.CounterVec
	cascadedOrders prometheus.Counter
	lastMutation   *prometheus.GaugeVec
}

// NewRecordMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewRecordMetrics() *RecordMetrics {
	return NewRecordMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewRecordMetricsWithRegisterer регистрирует метрики в заданном registerer.
func NewRecordMetricsWithRegisterer(registerer prometheus.Registerer) *RecordMetrics {
	return &RecordMetrics{
		mutations: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "routedemo_record_mutations_total",
			Help: "Total number of applied record mutations grouped by entity and action.",
		}, []string{"entity", "action"}), "routedemo_record_mutations_total"),
		cascadedOrders: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "routedemo_cascade_deleted_orders_total",
			Help: "Total number of orders removed by customer cascading delete.",
		}), "routedemo_cascade_deleted_orders_total"),
		lastMutation: register(registerer, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "routedemo_record_last_mutation_timestamp_seconds",
			Help: "Unix time of the last applied mutation per entity.",
		}, []string{"entity"}), "routedemo_record_last_mutation_timestamp_seconds"),
	}
}

// Observe реализует domain.RecordObserver.
func (m *RecordMetrics) Observe(event domain.RecordEvent) {
	m.mutations.WithLabelValues(string(event.Entity), string(event.Action)).Inc()
	if event.Cascade {
		m.cascadedOrders.Inc()
	}
	if !event.Occurred.IsZero() {
		m.lastMutation.WithLabelValues(string(event.Entity)).Set(float64(event.Occurred.Unix()))
	}
}

// RegisterStoreGauges публикует текущие размеры коллекций.
func RegisterStoreGauges(registerer prometheus.Registerer, counts func() domain.RecordCounts) {
	register(registerer, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "routedemo_customers",
		Help: "Current number of customers in the record store.",
	}, func() float64 { return float64(counts().Customers) }), "routedemo_customers")
	register(registerer, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "routedemo_orders",
		Help: "Current number of orders in the record store.",
	}, func() float64 { return float64(counts().Orders) }), "routedemo_orders")
}

var _ domain.RecordObserver = (*RecordMetrics)(nil)
