package observability

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/florianilch/jolt-auth/internal/account"
	"github.com/florianilch/jolt-auth/internal/credstore"
	"github.com/florianilch/jolt-auth/internal/session"
)

// Metrics records authorization activity per role. It implements
// session.Observer.
type Metrics struct {
	registry *prometheus.Registry

	authStarted  *prometheus.CounterVec
	authFinished *prometheus.CounterVec
	accounts     *prometheus.GaugeVec
}

var _ session.Observer = (*Metrics)(nil)

// NewMetrics creates a registry with the service's collectors plus the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		authStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jolt_auth_authorizations_started_total",
			Help: "Authorization attempts started, by role.",
		}, []string{"role"}),
		authFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jolt_auth_authorizations_finished_total",
			Help: "Authorization callbacks handled, by role and result.",
		}, []string{"role", "result"}),
		accounts: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jolt_auth_accounts",
			Help: "Authorized accounts currently stored, by role.",
		}, []string{"role"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// AuthorizationStarted implements session.Observer.
func (m *Metrics) AuthorizationStarted(role account.Role) {
	m.authStarted.WithLabelValues(role.String()).Inc()
}

// AuthorizationFinished implements session.Observer.
func (m *Metrics) AuthorizationFinished(role account.Role, err error) {
	m.authFinished.WithLabelValues(role.String(), Result(err)).Inc()
}

// AccountsChanged implements session.Observer.
func (m *Metrics) AccountsChanged(role account.Role, count int) {
	m.accounts.WithLabelValues(role.String()).Set(float64(count))
}

// Result classifies an authorization outcome into a metric label.
func Result(err error) string {
	var (
		exchangeErr *session.TokenExchangeError
		lookupErr   *session.UserLookupError
		scopeErr    *session.InsufficientScopeError
		saveErr     *credstore.StoreSaveError
	)

	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, session.ErrCSRFMismatch):
		return "csrf_mismatch"
	case errors.As(err, &scopeErr):
		return "insufficient_scope"
	case errors.As(err, &exchangeErr):
		return "exchange_failed"
	case errors.As(err, &lookupErr):
		return "lookup_failed"
	case errors.As(err, &saveErr):
		return "save_failed"
	default:
		return "error"
	}
}
