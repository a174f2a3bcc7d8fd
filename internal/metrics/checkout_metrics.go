package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит счётчики кассовых операций.
type CheckoutMetrics struct {
	ordersPlaced    prometheus.Counter
	ordersVoided    prometheus.Counter
	ordersPickedUp  prometheus.Counter
	payments        *prometheus.CounterVec
	paymentsAmount  *prometheus.CounterVec
	customersSigned prometheus.Counter
	eventFailures   prometheus.Counter
}

// NewCheckoutMetrics создаёт метрики кассы в глобальном реестре.
func NewCheckoutMetrics() *CheckoutMetrics {
	return NewCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCheckoutMetricsWithRegisterer создаёт метрики кассы в переданном реестре.
func NewCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		ordersPlaced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_orders_placed_total",
			Help: "Total number of orders dropped off",
		}),
		ordersVoided: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_orders_voided_total",
			Help: "Total number of voided orders",
		}),
		ordersPickedUp: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_orders_picked_up_total",
			Help: "Total number of orders picked up",
		}),
		payments: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pos_payments_total",
			Help: "Total number of payments by payment type",
		}, []string{"type"}),
		paymentsAmount: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pos_payments_amount_total",
			Help: "Sum of accepted payments by payment type",
		}, []string{"type"}),
		customersSigned: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_customers_registered_total",
			Help: "Total number of registered customers",
		}),
		eventFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_order_event_publish_failures_total",
			Help: "Total number of order events that failed to publish",
		}),
	}
}

func (m *CheckoutMetrics) RecordOrderPlaced() {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
}

func (m *CheckoutMetrics) RecordOrderVoided() {
	if m == nil {
		return
	}
	m.ordersVoided.Inc()
}

func (m *CheckoutMetrics) RecordOrderPickedUp() {
	if m == nil {
		return
	}
	m.ordersPickedUp.Inc()
}

// RecordPayment учитывает принятый платёж и его сумму.
func (m *CheckoutMetrics) RecordPayment(paymentType string, amount float64) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(paymentType).Inc()
	m.paymentsAmount.WithLabelValues(paymentType).Add(amount)
}

func (m *CheckoutMetrics) RecordCustomerRegistered() {
	if m == nil {
		return
	}
	m.customersSigned.Inc()
}

func (m *CheckoutMetrics) RecordEventFailure() {
	if m == nil {
		return
	}
	m.eventFailures.Inc()
}
