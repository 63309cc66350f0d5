package api

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's Prometheus instruments. A nil *Metrics is
// valid and records nothing, so library consumers without a registry pay
// no cost.
type Metrics struct {
	requestsTotal  *prometheus.CounterVec
	retriesTotal   prometheus.Counter
	refreshesTotal *prometheus.CounterVec
}

// NewMetrics registers the gateway metrics on reg. Pass a dedicated
// registry in tests to avoid default-registry collisions.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gramsetu_gateway_requests_total",
			Help: "Outbound API requests by method and HTTP status.",
		}, []string{"method", "status"}),
		retriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gramsetu_gateway_retries_total",
			Help: "Requests resent after a credential refresh.",
		}),
		refreshesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gramsetu_refreshes_total",
			Help: "Credential refresh attempts by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) request(method string, status int) {
	if m == nil {
		return
	}

	m.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) retried() {
	if m == nil {
		return
	}

	m.retriesTotal.Inc()
}

func (m *Metrics) refreshDone(outcome string) {
	if m == nil {
		return
	}

	m.refreshesTotal.WithLabelValues(outcome).Inc()
}
