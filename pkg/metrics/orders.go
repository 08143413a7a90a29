package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics counts order lifecycle outcomes.
type OrderMetrics struct {
	placed   *prometheus.CounterVec
	rejected *prometheus.CounterVec
	refunds  prometheus.Counter
	refunded prometheus.Counter
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders committed, by payment method.",
	}, []string{"payment_method"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Order attempts rejected, by reason.",
	}, []string{"reason"})
	refunds := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_refunds_total",
		Help: "Refunds credited to customer wallets.",
	})
	refunded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_refunded_paise_total",
		Help: "Paise credited to customer wallets as refunds.",
	})
	reg.MustRegister(placed, rejected, refunds, refunded)
	return &OrderMetrics{placed: placed, rejected: rejected, refunds: refunds, refunded: refunded}
}

func (m *OrderMetrics) IncPlaced(method string) {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.WithLabelValues(normalizeLabel(method)).Inc()
}

func (m *OrderMetrics) IncRejected(reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveRefund records a wallet refund of amountPaise.
func (m *OrderMetrics) ObserveRefund(amountPaise int64) {
	if m == nil || m.refunds == nil {
		return
	}
	m.refunds.Inc()
	m.refunded.Add(float64(amountPaise))
}
