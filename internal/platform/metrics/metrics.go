package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	UsersCreated       prometheus.Counter
	Ceremonies         *prometheus.CounterVec
	SessionRefreshes   *prometheus.CounterVec
	OAuthArtifacts     *prometheus.CounterVec
	TokenExchanges     *prometheus.CounterVec
	UserinfoRequests   *prometheus.CounterVec
	HashWait           prometheus.Histogram
	HashDuration       prometheus.Histogram
	HTTPDuration       *prometheus.HistogramVec
	GrantStoreDuration *prometheus.HistogramVec
}

var msBuckets = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000}

// New registers every metric on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UsersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "sigil_users_created_total",
			Help: "Total number of users created",
		}),
		Ceremonies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sigil_passkey_ceremonies_total",
			Help: "Passkey ceremonies by kind, phase and outcome",
		}, []string{"kind", "phase", "outcome"}),
		SessionRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sigil_session_refreshes_total",
			Help: "Refresh token exchanges by outcome",
		}, []string{"outcome"}),
		OAuthArtifacts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sigil_oauth_artifacts_issued_total",
			Help: "Artifacts minted by the authorize endpoint",
		}, []string{"type"}),
		TokenExchanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sigil_oauth_token_exchanges_total",
			Help: "Token endpoint calls by outcome",
		}, []string{"outcome"}),
		UserinfoRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sigil_oauth_userinfo_requests_total",
			Help: "Userinfo calls by outcome",
		}, []string{"outcome"}),
		HashWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigil_hash_pool_wait_ms",
			Help:    "Time spent waiting for a hashing slot in milliseconds",
			Buckets: msBuckets,
		}),
		HashDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigil_hash_duration_ms",
			Help:    "Time spent hashing or verifying a secret in milliseconds",
			Buckets: msBuckets,
		}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sigil_http_request_duration_ms",
			Help:    "HTTP request latency in milliseconds",
			Buckets: msBuckets,
		}, []string{"method", "route", "status"}),
		GrantStoreDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sigil_grant_store_duration_ms",
			Help:    "Latency of ephemeral grant store operations in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}, []string{"op"}),
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func (m *Metrics) IncrementUsersCreated() {
	if m == nil {
		return
	}
	m.UsersCreated.Inc()
}

func (m *Metrics) IncrementCeremony(kind, phase, outcome string) {
	if m == nil {
		return
	}
	m.Ceremonies.WithLabelValues(kind, phase, outcome).Inc()
}

func (m *Metrics) IncrementRefresh(outcome string) {
	if m == nil {
		return
	}
	m.SessionRefreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementArtifact(kind string) {
	if m == nil {
		return
	}
	m.OAuthArtifacts.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementTokenExchange(outcome string) {
	if m == nil {
		return
	}
	m.TokenExchanges.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementUserinfo(outcome string) {
	if m == nil {
		return
	}
	m.UserinfoRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHashWait(d time.Duration) {
	if m == nil {
		return
	}
	m.HashWait.Observe(ms(d))
}

func (m *Metrics) ObserveHashDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.HashDuration.Observe(ms(d))
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPDuration.WithLabelValues(method, route, status).Observe(ms(d))
}

func (m *Metrics) ObserveGrantStore(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.GrantStoreDuration.WithLabelValues(op).Observe(ms(d))
}
