package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/transport/http/response"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	Login(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	RevokeSessions(w http.ResponseWriter, r *http.Request)

	// Password reset
	PasswordResetRequest(w http.ResponseWriter, r *http.Request)
	PasswordResetConfirm(w http.ResponseWriter, r *http.Request)
}

type UserHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
	MeStatus(w http.ResponseWriter, r *http.Request)
	DeleteMe(w http.ResponseWriter, r *http.Request)
}

type Middleware = func(http.Handler) http.Handler

type Deps struct {
	Health HealthHandler
	Auth   AuthHandler
	Users  UserHandler

	AuthMW Middleware

	// Per-route limiters; nil means unlimited.
	LoginRL    Middleware
	RegisterRL Middleware
	ResetRL    Middleware

	// Coarse per-IP guard in front of everything; 0 disables it.
	GlobalLimit  int
	GlobalWindow time.Duration

	// 0 means middleware.DefaultMaxBodyBytes.
	MaxBodyBytes int64

	SecurityHeaders bool
	HSTS            bool
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("nil Users handler")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recover(response.WriteError))
	r.Use(middleware.AccessLog)
	r.Use(middleware.Metrics)
	if deps.SecurityHeaders {
		r.Use(middleware.SecurityHeaders(deps.HSTS))
	}
	r.Use(middleware.BodyLimit(deps.MaxBodyBytes, response.WriteError))

	if deps.GlobalLimit > 0 {
		window := deps.GlobalWindow
		if window <= 0 {
			window = time.Minute
		}
		r.Use(httprate.Limit(
			deps.GlobalLimit,
			window,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				response.WriteError(w, r, domain.ErrRateLimited("global"))
			}),
		))
	}

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// --- Users ---
		r.With(orNoop(deps.RegisterRL)).Post("/users", deps.Users.Register)
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMW)
			r.Get("/users/me", deps.Users.Me)
			r.Get("/users/me/status", deps.Users.MeStatus)
			r.Delete("/users/me", deps.Users.DeleteMe)
		})

		// --- Core auth ---
		r.Route("/auth", func(r chi.Router) {
			r.With(orNoop(deps.LoginRL)).Post("/login", deps.Auth.Login)
			r.Post("/refresh", deps.Auth.Refresh)
			r.With(deps.AuthMW).Post("/logout", deps.Auth.Logout)
			r.With(deps.AuthMW).Post("/sessions/revoke", deps.Auth.RevokeSessions)

			// --- Password reset ---
			r.With(orNoop(deps.ResetRL)).Post("/password-reset/request", deps.Auth.PasswordResetRequest)
			r.Post("/password-reset/confirm", deps.Auth.PasswordResetConfirm)
		})
	})

	return r, nil
}

func orNoop(mw Middleware) Middleware {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}
