// Package metrics implements the ledger's MetricsCollector on top of
// prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	volume     *prometheus.CounterVec
	amounts    *prometheus.HistogramVec
	flagged    *prometheus.CounterVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		operations: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operations by name and result",
		}, []string{"operation", "result"}),
		volume: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transaction_volume_total",
			Help: "Total committed transaction volume by kind, in currency units",
		}, []string{"kind"}),
		amounts: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_transaction_amount",
			Help:    "Committed transaction amounts by kind",
			Buckets: []float64{10, 100, 500, 1000, 5000, 10000, 50000},
		}, []string{"kind"}),
		flagged: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_flagged_transactions_total",
			Help: "Transactions flagged by fraud screening, by kind",
		}, []string{"kind"}),
	}
}

func (c *Collector) RecordOperation(op, result string) {
	c.operations.WithLabelValues(op, result).Inc()
}

func (c *Collector) RecordTransaction(kind string, amount float64) {
	c.volume.WithLabelValues(kind).Add(amount)
	c.amounts.WithLabelValues(kind).Observe(amount)
}

func (c *Collector) RecordFlagged(kind string) {
	c.flagged.WithLabelValues(kind).Inc()
}

// Handler serves the collector's registry for a /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
