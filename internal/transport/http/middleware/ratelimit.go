package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/pkg/ratelimit"
)

// RateLimit admits at most the limiter's quota per client IP. Every route
// wrapped with the same limiter draws on one shared per-IP budget; routeKey
// only labels rejections. A limiter error lets the request through.
func RateLimit(limiter ratelimit.Limiter, routeKey string, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	if routeKey == "" {
		routeKey = "unknown"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			dec, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				zlog.Warn().Err(err).Str("route", routeKey).Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if dec.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
			}

			if !dec.Allowed {
				RateLimitRejectedTotal.WithLabelValues(routeKey).Inc()
				if secs := retryAfterSeconds(dec); secs > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(secs))
				}
				writeErr(w, r, domain.ErrRateLimited(routeKey))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds rounds up so clients never retry inside the window.
func retryAfterSeconds(dec ratelimit.Decision) int {
	if dec.RetryAfter <= 0 {
		return 0
	}
	secs := int(dec.RetryAfter.Seconds())
	if float64(secs) < dec.RetryAfter.Seconds() {
		secs++
	}
	return secs
}

func clientIP(r *http.Request) string {
	// Trust X-Forwarded-For only behind a proxy we control.
	xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xff != "" {
		parts := strings.Split(xff, ",")
		ip := strings.TrimSpace(parts[0])
		if ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
