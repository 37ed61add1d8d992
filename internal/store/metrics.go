package store

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cleared-dev/sepadd/internal/model"
)

// Metrics counts store operations.
type Metrics struct {
	operations   *prometheus.CounterVec
	cacheEntries prometheus.Gauge
	cacheHits    prometheus.Counter
}

// NewMetrics creates the store metrics and registers them on reg.
// With a nil reg the metrics are kept but not exported.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sepadd_store_operations_total",
			Help: "Store operations by operation and result",
		}, []string{"op", "result"}),
		cacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Name: "sepadd_store_cache_entries",
			Help: "Parsed documents held in the cache",
		}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "sepadd_store_cache_hits_total",
			Help: "Loads served from the parse cache",
		}),
	}
}

func (m *Metrics) observe(op string, err error) {
	m.operations.WithLabelValues(op, result(err)).Inc()
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrIDNotFound):
		return "not_found"
	case errors.Is(err, model.ErrDuplicateID):
		return "duplicate"
	case errors.Is(err, model.ErrInvalidArgument):
		return "invalid"
	default:
		return "error"
	}
}
