package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты операций хранилища для label "result".
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// StoreMetrics - метрики обращений к хранилищу документов.
// Все методы безопасны для nil-получателя, чтобы репозитории работали без метрик.
type StoreMetrics struct {
	opDuration  *prometheus.HistogramVec
	opTotal     *prometheus.CounterVec
	allocations *prometheus.CounterVec
	lastTicket  prometheus.Gauge
}

// NewStoreMetrics регистрирует метрики в глобальном реестре.
func NewStoreMetrics() *StoreMetrics {
	return NewStoreMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStoreMetricsWithRegisterer регистрирует метрики в переданном реестре.
func NewStoreMetricsWithRegisterer(registerer prometheus.Registerer) *StoreMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StoreMetrics{
		opDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "pos_store_operation_duration_seconds",
			Help:    "Duration of document store operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"backend", "operation"}),
		opTotal: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pos_store_operations_total",
			Help: "Total number of document store operations by result",
		}, []string{"backend", "operation", "result"}),
		allocations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pos_sequence_allocations_total",
			Help: "Total number of sub-order ids handed out by the sequence allocator",
		}, []string{"backend"}),
		lastTicket: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "pos_sequence_last_allocated",
			Help: "Last sub-order id handed out by this process",
		}),
	}
}

// ObserveOperation записывает длительность и результат операции.
func (m *StoreMetrics) ObserveOperation(backend, operation, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	m.opTotal.WithLabelValues(backend, operation, result).Inc()
}

// RecordAllocation учитывает выданный номер подзаказа.
func (m *StoreMetrics) RecordAllocation(backend string, id uint64) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(backend).Inc()
	m.lastTicket.Set(float64(id))
}
