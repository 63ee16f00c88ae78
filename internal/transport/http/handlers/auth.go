package http_handlers

import (
	"net/http"
	"time"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/transport/http/response"
)

type AuthHandler struct {
	svc           *auth.Service
	refreshTTL    time.Duration
	secureCookies bool
}

func NewAuthHandler(svc *auth.Service, refreshTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		svc:           svc,
		refreshTTL:    refreshTTL,
		secureCookies: secureCookies,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Msg("user_logged_in")

	security.SetRefreshToken(w, res.Tokens.RefreshToken, h.refreshTTL, h.secureCookies)
	response.OK(w, dto.NewTokensView(res.Tokens))
}

// Refresh takes the token from the body and falls back to the cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	tok := refreshTokenFrom(r, req.RefreshToken)
	if tok == "" {
		response.WriteError(w, r, domain.ErrMissingField("refresh_token"))
		return
	}

	toks, err := h.svc.Refresh(r.Context(), tok)
	if err != nil {
		if domain.Is(err, domain.CodeTokenRevoked) {
			security.ClearRefreshToken(w, h.secureCookies)
		}
		response.WriteError(w, r, err)
		return
	}

	security.SetRefreshToken(w, toks.RefreshToken, h.refreshTTL, h.secureCookies)
	response.OK(w, dto.NewTokensView(toks))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	var req dto.LogoutRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.Logout(r.Context(), userID, refreshTokenFrom(r, req.RefreshToken)); err != nil {
		response.WriteError(w, r, err)
		return
	}

	security.ClearRefreshToken(w, h.secureCookies)
	response.OK(w, dto.MessageResponse{Message: dto.MsgLoggedOut})
}

// RevokeSessions revokes every refresh token of the caller.
func (h *AuthHandler) RevokeSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	n, err := h.svc.RevokeAllSessions(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	security.ClearRefreshToken(w, h.secureCookies)
	response.OK(w, dto.SessionsRevokeResponse{Revoked: n})
}

// PasswordResetRequest answers the same way whether or not the email exists.
func (h *AuthHandler) PasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.Accepted(w, dto.MessageResponse{Message: dto.MsgResetRequested})
}

func (h *AuthHandler) PasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetConfirmRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		response.WriteError(w, r, err)
		return
	}

	security.ClearRefreshToken(w, h.secureCookies)
	response.OK(w, dto.MessageResponse{Message: dto.MsgResetCompleted})
}

// ---- helpers ----

// decodeOptionalJSON accepts a request without a body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return nil
	}
	return response.DecodeJSON(w, r, dst)
}

func refreshTokenFrom(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	tok, err := security.ReadRefreshToken(r)
	if err != nil {
		return ""
	}
	return tok
}
