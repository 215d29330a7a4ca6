// Package metrics содержит счётчики Prometheus для записи и оплаты.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clinic"

var (
	// Bookings результат записи на приём: ok или код ошибки
	Bookings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_total",
		Help:      "Appointment booking attempts by result.",
	}, []string{"result"})

	Cancellations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cancellations_total",
		Help:      "Appointment cancellations by result.",
	}, []string{"result"})

	PaymentOrders = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_orders_total",
		Help:      "Payment orders opened per gateway.",
	}, []string{"gateway", "result"})

	// Settlements исход сверки оплаты: settled, already_settled, payment_failed или код ошибки
	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_settlements_total",
		Help:      "Payment verification outcomes per gateway.",
	}, []string{"gateway", "outcome"})

	GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_request_seconds",
		Help:      "Latency of payment gateway calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"gateway", "op"})

	SweepReleased = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_released_slots_total",
		Help:      "Orphaned slot reservations released by the reconcile sweep.",
	})

	HTTPRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Result возвращает метку результата: ok для nil, иначе переданный код
func Result(code string) string {
	if code == "" {
		return "ok"
	}
	return code
}
