package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the submission-engine metrics on a private
// prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	OrdersAccepted    prometheus.Counter
	OrdersRejected    prometheus.Counter
	OrdersRateLimited prometheus.Counter
	OrdersOutOfStock  prometheus.Counter
	OrdersFailed      prometheus.Counter
	DecrementWarnings prometheus.Counter
	SubmitLatencySec  prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	accepted := prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_accepted_total"})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_rejected_total"})
	rateLimited := prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_rate_limited_total"})
	outOfStock := prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_out_of_stock_total"})
	failed := prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_persistence_failed_total"})
	decrementWarnings := prometheus.NewCounter(prometheus.CounterOpts{Name: "stock_decrement_warnings_total"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_submit_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(accepted, rejected, rateLimited, outOfStock, failed, decrementWarnings, latency)

	return &Registry{
		reg:               r,
		OrdersAccepted:    accepted,
		OrdersRejected:    rejected,
		OrdersRateLimited: rateLimited,
		OrdersOutOfStock:  outOfStock,
		OrdersFailed:      failed,
		DecrementWarnings: decrementWarnings,
		SubmitLatencySec:  latency,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
