package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FulfillmentMetrics counts purchase lifecycle outcomes.
type FulfillmentMetrics struct {
	PurchasesPlaced   *prometheus.CounterVec
	Completions       *prometheus.CounterVec
	Refunds           *prometheus.CounterVec
	WebhookEvents     *prometheus.CounterVec
	ProviderLatencyMS *prometheus.HistogramVec
}

func NewFulfillmentMetrics(namespace string, registerer prometheus.Registerer) *FulfillmentMetrics {
	m := &FulfillmentMetrics{
		PurchasesPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fulfillment",
			Name:      "purchases_placed_total",
			Help:      "Purchases placed, by initial state.",
		}, []string{"state"}),
		Completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fulfillment",
			Name:      "purchase_completions_total",
			Help:      "Purchase completion attempts, by result.",
		}, []string{"result"}),
		Refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fulfillment",
			Name:      "item_refunds_total",
			Help:      "Purchased item refund attempts, by result.",
		}, []string{"result"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fulfillment",
			Name:      "webhook_events_total",
			Help:      "Payment provider webhook events, by type and result.",
		}, []string{"type", "result"}),
		ProviderLatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fulfillment",
			Name:      "payment_provider_duration_ms",
			Help:      "Payment provider call latency in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"operation"}),
	}

	registerer.MustRegister(m.PurchasesPlaced, m.Completions, m.Refunds, m.WebhookEvents, m.ProviderLatencyMS)

	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}
