// Package metrics provides Prometheus metrics for credential lifecycle operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels for refresh and lookup outcomes.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultHit     = "hit"
	ResultMiss    = "miss"
)

// Metrics holds Prometheus metrics for the gateway. A nil *Metrics is a
// valid no-op receiver so components can run without instrumentation.
type Metrics struct {
	serviceAuthRetries prometheus.Counter
	userRefreshTotal   *prometheus.CounterVec
	storeLookupsTotal  *prometheus.CounterVec
}

// New creates and registers gateway metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		serviceAuthRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_service_auth_retries_total",
			Help: "Total 401-triggered refresh retries by the service client",
		}),
		userRefreshTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_user_token_refreshes_total",
			Help: "Total lazy refresh attempts for end-user tokens",
		}, []string{"result"}),
		storeLookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_credential_store_lookups_total",
			Help: "Total credential store lookups",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncServiceAuthRetries() {
	if m == nil {
		return
	}
	m.serviceAuthRetries.Inc()
}

func (m *Metrics) IncUserRefresh(result string) {
	if m == nil {
		return
	}
	m.userRefreshTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncStoreLookup(result string) {
	if m == nil {
		return
	}
	m.storeLookupsTotal.WithLabelValues(result).Inc()
}
