package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts catalog domain events. A nil *Metrics is a valid no-op.
type Metrics struct {
	slugCollisions   *prometheus.CounterVec
	ratingRecomputes prometheus.Counter
}

// NewMetrics creates the catalog metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		slugCollisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_slug_collisions_total",
			Help: "Slug unique violations hit while writing, by entity",
		}, []string{"entity"}),
		ratingRecomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_rating_recomputations_total",
			Help: "Product rating aggregates recomputed",
		}),
	}
	reg.MustRegister(m.slugCollisions, m.ratingRecomputes)
	return m
}

func (m *Metrics) slugCollision(entity string) {
	if m != nil {
		m.slugCollisions.WithLabelValues(entity).Inc()
	}
}

func (m *Metrics) ratingRecomputed() {
	if m != nil {
		m.ratingRecomputes.Inc()
	}
}
