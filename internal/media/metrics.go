package media

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the cache's Prometheus instruments. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	lookupsTotal *prometheus.CounterVec
	fetchesTotal *prometheus.CounterVec
}

// NewMetrics registers the cache metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		lookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gramsetu_urlcache_lookups_total",
			Help: "Signed URL cache lookups by result (hit or miss).",
		}, []string{"result"}),
		fetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gramsetu_urlcache_fetches_total",
			Help: "Signed URL fetches by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) lookup(result string) {
	if m == nil {
		return
	}

	m.lookupsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) fetchDone(outcome string) {
	if m == nil {
		return
	}

	m.fetchesTotal.WithLabelValues(outcome).Inc()
}
