// Package metrics exposes ledger activity as Prometheus collectors.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erazemk/zaloga/internal/model"
)

const namespace = "zaloga"

// Metrics holds the collectors updated by the checkout coordinator. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Mutations  *prometheus.CounterVec
	Rejections *prometheus.CounterVec
	LowStock   prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_mutations_total",
			Help:      "Committed ledger mutations by transaction kind and subject kind.",
		}, []string{"kind", "subject"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_rejections_total",
			Help:      "Mutations rejected by a business rule, by error code.",
		}, []string{"code"}),
		LowStock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "items_needing_restock",
			Help:      "Items whose status is restock or out_of_stock at the last alert.",
		}),
	}
	reg.MustRegister(m.Mutations, m.Rejections, m.LowStock)
	return m
}

// ObserveMutation counts a committed transaction.
func (m *Metrics) ObserveMutation(t *model.Transaction) {
	if m == nil || t == nil {
		return
	}
	m.Mutations.WithLabelValues(t.Kind, t.Subject().Kind).Inc()
}

// ObserveRejection counts err if it is a business-rule rejection.
func (m *Metrics) ObserveRejection(err error) {
	if m == nil {
		return
	}
	if code := model.ErrorCode(err); code != "" {
		m.Rejections.WithLabelValues(code).Inc()
	}
}

// NotifyLowStock records the size of a low-stock batch. It satisfies
// alert.Notifier.
func (m *Metrics) NotifyLowStock(_ context.Context, items []model.Item) error {
	if m == nil {
		return nil
	}
	m.LowStock.Set(float64(len(items)))
	return nil
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
