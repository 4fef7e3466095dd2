package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "moodlens", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "moodlens", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	SessionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "moodlens", Name: "sessions_created_total", Help: "Number of sessions created."},
	)
	// SessionValidations is labelled by outcome: ok, absent, malformed, not_found, expired, store_unavailable.
	SessionValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "moodlens", Name: "session_validations_total", Help: "Session validations by outcome."},
		[]string{"outcome"},
	)
	SessionsRevoked = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "moodlens", Name: "sessions_revoked_total", Help: "Sessions removed by reason (logout, logout_all, expired)."},
		[]string{"reason"},
	)
	SessionSweepRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "moodlens", Name: "session_sweep_removed_total", Help: "Expired sessions removed by the background sweep."},
	)
	SessionTokenCollisions = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "moodlens", Name: "session_token_collisions_total", Help: "Generated tokens rejected as already in use."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(SessionsCreated)
	reg.MustRegister(SessionValidations)
	reg.MustRegister(SessionsRevoked)
	reg.MustRegister(SessionSweepRemoved)
	reg.MustRegister(SessionTokenCollisions)
}
