package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "credential_service"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "login_attempts_total",
			Help:      "Total number of login attempts",
		},
		[]string{"status"}, // success, unknown_email, wrong_password, account_locked, ...
	)

	AccountLockoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "account_lockouts_total",
			Help:      "Total number of accounts locked after repeated failures",
		},
	)

	TokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "token_refresh_total",
			Help:      "Total number of token refreshes",
		},
		[]string{"status"}, // success, reuse, failed
	)

	PasswordResetTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "password_reset_total",
			Help:      "Total number of password reset steps",
		},
		[]string{"step"}, // requested, completed, notify_failed
	)

	RateLimitRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rate_limit_rejected_total",
			Help:      "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
)

// RecordAuditEvent maps service audit actions onto the business counters.
func RecordAuditEvent(action string, fields map[string]string) {
	switch action {
	case "login_success":
		LoginAttemptsTotal.WithLabelValues("success").Inc()
	case "login_failed":
		reason := fields["reason"]
		if reason == "" {
			reason = "failed"
		}
		LoginAttemptsTotal.WithLabelValues(reason).Inc()
	case "account_locked":
		AccountLockoutsTotal.Inc()
	case "token_refreshed":
		TokenRefreshTotal.WithLabelValues("success").Inc()
	case "token_reuse_detected":
		TokenRefreshTotal.WithLabelValues("reuse").Inc()
	case "refresh_failed":
		TokenRefreshTotal.WithLabelValues("failed").Inc()
	case "password_reset_requested":
		PasswordResetTotal.WithLabelValues("requested").Inc()
	case "password_reset_completed":
		PasswordResetTotal.WithLabelValues("completed").Inc()
	case "password_reset_notify_failed":
		PasswordResetTotal.WithLabelValues("notify_failed").Inc()
	}
}

// Metrics records HTTP RED metrics.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.code())).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
