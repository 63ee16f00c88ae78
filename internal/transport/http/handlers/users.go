package http_handlers

import (
	"net/http"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/transport/http/response"
)

type UserHandler struct {
	svc           *auth.Service
	secureCookies bool
}

func NewUserHandler(svc *auth.Service, secureCookies bool) *UserHandler {
	return &UserHandler{svc: svc, secureCookies: secureCookies}
}

// Register creates an account without issuing tokens.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	u, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", u.ID).
		Msg("user_registered")

	response.Created(w, dto.NewUserView(u))
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}
	response.OK(w, dto.NewUserView(u))
}

func (h *UserHandler) MeStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	st, err := h.svc.GetMyStatus(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewMeStatusResponse(st))
}

// DeleteMe removes the caller's account after re-checking the password.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	var req dto.DeleteAccountRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.DeleteAccount(r.Context(), userID, req.Password); err != nil {
		response.WriteError(w, r, err)
		return
	}

	security.ClearRefreshToken(w, h.secureCookies)
	response.NoContent(w)
}
