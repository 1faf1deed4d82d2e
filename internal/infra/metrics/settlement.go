package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		paymentsTotal,
		paymentsAmountTotal,
		refundsTotal,
		settlementErrorsTotal,
		bookingTransitionsTotal,
		sweeperActionsTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment entries written, by scene and gateway.",
		},
		[]string{"scene", "gateway"},
	)

	paymentsAmountTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_amount_total",
			Help: "Sum of settled payment amounts by gateway.",
		},
		[]string{"gateway"},
	)

	refundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refunds_total",
			Help: "Refund entries written, by gateway.",
		},
		[]string{"gateway"},
	)

	settlementErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_errors_total",
			Help: "Settlement failures by error kind.",
		},
		[]string{"kind"},
	)

	bookingTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Booking status transitions by target status.",
		},
		[]string{"status"},
	)

	sweeperActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweeper_actions_total",
			Help: "Entities touched by scheduled sweeps, by job.",
		},
		[]string{"job"},
	)
)

func IncPayment(scene, gateway string) {
	paymentsTotal.WithLabelValues(norm(scene), norm(gateway)).Inc()
}

func AddPaymentAmount(gateway string, amount decimal.Decimal) {
	paymentsAmountTotal.WithLabelValues(norm(gateway)).Add(amount.Abs().InexactFloat64())
}

func IncRefund(gateway string) {
	refundsTotal.WithLabelValues(norm(gateway)).Inc()
}

func IncSettlementError(kind string) {
	settlementErrorsTotal.WithLabelValues(norm(kind)).Inc()
}

func IncBookingTransition(status string) {
	bookingTransitionsTotal.WithLabelValues(norm(status)).Inc()
}

func AddSweeperActions(job string, n int) {
	if n <= 0 {
		return
	}
	sweeperActionsTotal.WithLabelValues(norm(job)).Add(float64(n))
}
