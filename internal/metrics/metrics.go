// Package metrics holds the Prometheus collectors for stock and sale
// operations. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pos"

type Metrics struct {
	MovementsTotal   *prometheus.CounterVec
	UnitsMovedTotal  *prometheus.CounterVec
	SalesTotal       *prometheus.CounterVec
	SalesAmountTotal *prometheus.CounterVec
	RejectedTotal    *prometheus.CounterVec
	CheckoutDuration prometheus.Histogram
	EventsDropped    *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MovementsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "movements_total",
			Help:      "Committed stock movements by type",
		}, []string{"type"}),
		UnitsMovedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "units_moved_total",
			Help:      "Units moved by committed stock movements, by type",
		}, []string{"type"}),
		SalesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sales",
			Name:      "completed_total",
			Help:      "Completed sales by payment method",
		}, []string{"payment_method"}),
		SalesAmountTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sales",
			Name:      "amount_total",
			Help:      "Revenue of completed sales by payment method",
		}, []string{"payment_method"}),
		RejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_rejected_total",
			Help:      "Rejected stock operations by operation and error kind",
		}, []string{"operation", "kind"}),
		CheckoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sales",
			Name:      "checkout_duration_seconds",
			Help:      "Checkout latency including the database transaction",
			Buckets:   prometheus.DefBuckets,
		}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Stock events that could not be delivered, by sink",
		}, []string{"sink"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.MovementsTotal,
			m.UnitsMovedTotal,
			m.SalesTotal,
			m.SalesAmountTotal,
			m.RejectedTotal,
			m.CheckoutDuration,
			m.EventsDropped,
		)
	}
	return m
}

func (m *Metrics) MovementApplied(movementType string, quantity int) {
	if m == nil {
		return
	}
	m.MovementsTotal.WithLabelValues(movementType).Inc()
	m.UnitsMovedTotal.WithLabelValues(movementType).Add(float64(quantity))
}

func (m *Metrics) SaleCompleted(paymentMethod string, amount float64, took time.Duration) {
	if m == nil {
		return
	}
	m.SalesTotal.WithLabelValues(paymentMethod).Inc()
	m.SalesAmountTotal.WithLabelValues(paymentMethod).Add(amount)
	m.CheckoutDuration.Observe(took.Seconds())
}

func (m *Metrics) Rejected(operation, kind string) {
	if m == nil {
		return
	}
	m.RejectedTotal.WithLabelValues(operation, kind).Inc()
}

func (m *Metrics) EventDropped(sink string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(sink).Inc()
}
