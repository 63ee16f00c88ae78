package response

import (
	"net/http"

	pkgctx "github.com/baechuer/real-time-ressys/services/credential-service/internal/pkg/context"
)

// RequestIDFromContext extracts the id set by the RequestID middleware.
func RequestIDFromContext(r *http.Request) string {
	if r == nil {
		return ""
	}
	return pkgctx.GetRequestID(r.Context())
}
