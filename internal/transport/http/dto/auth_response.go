package dto

import (
	"time"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

// UserView is the public user payload. The password hash and lockout
// counters never leave the service through it.
type UserView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func NewUserView(u domain.User) UserView {
	return UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// TokensView is returned by login and refresh.
type TokensView struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"` // "Bearer"
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

func NewTokensView(t auth.AuthTokens) TokensView {
	return TokensView{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		ExpiresIn:    t.ExpiresIn,
	}
}

type MessageResponse struct {
	Message string `json:"message"`
}

const (
	MsgLoggedOut      = "Successfully logged out"
	MsgResetRequested = "If an account exists with this email, a reset token has been generated"
	MsgResetCompleted = "Password has been reset successfully"
)

// -------- Sessions --------

type SessionsRevokeResponse struct {
	Revoked int `json:"revoked"`
}

// -------- Status --------

type MeStatusResponse struct {
	UserID              string     `json:"user_id"`
	Locked              bool       `json:"locked"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	LockedUntil         *time.Time `json:"locked_until,omitempty"`
}

func NewMeStatusResponse(s auth.UserStatus) MeStatusResponse {
	return MeStatusResponse{
		UserID:              s.UserID,
		Locked:              s.Locked,
		FailedLoginAttempts: s.FailedLoginAttempts,
		LockedUntil:         s.LockedUntil,
	}
}
