package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics
// is valid and records nothing, so wiring metrics stays optional in tests.
type Metrics struct {
	UsersCreated       prometheus.Counter
	Logins             *prometheus.CounterVec
	TokenRotations     prometheus.Counter
	ReuseDetections    prometheus.Counter
	TokensSwept        prometheus.Counter
	RotationDurationMs prometheus.Histogram
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authcore_users_created_total",
			Help: "Total number of users created in the system",
		}),
		Logins: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_logins_total",
			Help: "Total login attempts by outcome",
		}, []string{"outcome"}),
		TokenRotations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authcore_token_rotations_total",
			Help: "Total successful refresh-token rotations",
		}),
		ReuseDetections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authcore_token_reuse_detections_total",
			Help: "Total refresh-token replay detections (family revocations)",
		}),
		TokensSwept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authcore_refresh_tokens_swept_total",
			Help: "Total expired refresh tokens removed by the sweeper",
		}),
		RotationDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "authcore_token_rotation_duration_ms",
			Help:    "Latency of refresh-token rotation in milliseconds",
			Buckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250},
		}),
	}
}

// IncrementUsersCreated increments the users created counter by 1
func (m *Metrics) IncrementUsersCreated() {
	if m == nil {
		return
	}
	m.UsersCreated.Inc()
}

// ObserveLogin records a login attempt with its outcome label.
func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}

// IncrementTokenRotations increments the rotation counter by 1
func (m *Metrics) IncrementTokenRotations() {
	if m == nil {
		return
	}
	m.TokenRotations.Inc()
}

// IncrementReuseDetections increments the replay-detection counter by 1
func (m *Metrics) IncrementReuseDetections() {
	if m == nil {
		return
	}
	m.ReuseDetections.Inc()
}

// AddTokensSwept records tokens removed by a sweeper pass.
func (m *Metrics) AddTokensSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TokensSwept.Add(float64(n))
}

// ObserveRotationDuration records rotation latency in milliseconds.
func (m *Metrics) ObserveRotationDuration(ms float64) {
	if m == nil {
		return
	}
	m.RotationDurationMs.Observe(ms)
}
