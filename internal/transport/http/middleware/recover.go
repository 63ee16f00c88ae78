package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
	appCtx "github.com/baechuer/real-time-ressys/services/credential-service/internal/pkg/context"
)

// Recover turns a handler panic into a 500 envelope and reports it to
// Sentry when a client is configured.
func Recover(writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				reqID := appCtx.GetRequestID(r.Context())
				sentry.WithScope(func(scope *sentry.Scope) {
					scope.SetTag("request_id", reqID)
					scope.SetExtra("path", r.URL.Path)
					scope.SetExtra("stack", string(debug.Stack()))
					sentry.CaptureMessage(fmt.Sprintf("panic in request: %v", rec))
				})

				zlog.Error().
					Interface("panic", rec).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("request_id", reqID).
					Msg("panic_recovered")

				writeErr(w, r, domain.ErrInternal(fmt.Errorf("panic: %v", rec)))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
