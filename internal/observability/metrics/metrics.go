package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	NoncesIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_nonces_issued_total",
			Help: "Total number of login nonces issued.",
		},
		[]string{"result"},
	)

	AuthLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of wallet login attempts by outcome.",
		},
		[]string{"result"},
	)

	SignatureAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_signature_attempts_total",
			Help: "Signature verification attempts by key strategy.",
		},
		[]string{"strategy", "result"},
	)

	UsersRegisteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_users_registered_total",
			Help: "Users created implicitly on first wallet login.",
		},
	)

	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Total number of session tokens issued.",
		},
		[]string{"result"},
	)

	SessionChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_session_checks_total",
			Help: "Bearer session token validations.",
		},
		[]string{"result"},
	)
)

// MustRegister registers every collector on the default registry with a
// constant service label.
func MustRegister(serviceName string) {
	reg := prometheus.WrapRegistererWith(prometheus.Labels{"service": serviceName}, prometheus.DefaultRegisterer)
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		NoncesIssuedTotal,
		AuthLoginsTotal,
		SignatureAttemptsTotal,
		UsersRegisteredTotal,
		TokensIssuedTotal,
		SessionChecksTotal,
	)
}
