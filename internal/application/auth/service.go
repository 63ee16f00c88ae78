package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

// 32 bytes = 256 bits of entropy per opaque token.
const opaqueTokenBytes = 32

const defaultNotifyTimeout = 5 * time.Second

type Service struct {
	store    Store
	hasher   PasswordHasher
	codec    AccessCodec
	notifier ResetNotifier

	refresh *RefreshTokens
	resets  *PasswordResets
	lockout domain.LockoutPolicy

	notifyTimeout time.Duration
	audit         func(action string, fields map[string]string)
	now           func() time.Time
	dispatch      func(func())
}

type Config struct {
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
	Lockout       domain.LockoutPolicy
	NotifyTimeout time.Duration
}

func NewService(
	store Store,
	hasher PasswordHasher,
	codec AccessCodec,
	digests TokenHasher,
	notifier ResetNotifier,
	cfg Config,
) *Service {
	notifyTimeout := cfg.NotifyTimeout
	if notifyTimeout <= 0 {
		notifyTimeout = defaultNotifyTimeout
	}
	lockout := cfg.Lockout
	if lockout.Threshold <= 0 || lockout.Duration <= 0 {
		lockout = domain.DefaultLockoutPolicy()
	}
	return &Service{
		store:    store,
		hasher:   hasher,
		codec:    codec,
		notifier: notifier,

		refresh: NewRefreshTokens(digests, cfg.RefreshTTL),
		resets:  NewPasswordResets(digests, cfg.ResetTTL),
		lockout: lockout,

		notifyTimeout: notifyTimeout,
		audit:         func(string, map[string]string) {},
		now:           time.Now,
		dispatch:      func(fn func()) { go fn() },
	}
}

// AuthTokens is the common token output for handlers/DTO mapping.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64  // seconds
	TokenType    string // "Bearer"
}

type LoginResult struct {
	User   domain.User
	Tokens AuthTokens
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// WithClock replaces the wall clock for the service and its lifecycles.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
		s.refresh.now = now
		s.resets.now = now
	}
	return s
}

// WithDispatcher replaces how fire-and-forget work is started.
// The default runs it on a new goroutine.
func (s *Service) WithDispatcher(fn func(func())) *Service {
	if fn != nil {
		s.dispatch = fn
	}
	return s
}

// RefreshTokens exposes the refresh token lifecycle.
func (s *Service) RefreshTokens() *RefreshTokens { return s.refresh }

// PasswordResets exposes the reset token lifecycle.
func (s *Service) PasswordResets() *PasswordResets { return s.resets }

// Lockout returns the active lockout policy.
func (s *Service) Lockout() domain.LockoutPolicy { return s.lockout }

// issueTokens issues a refresh token inside tx and signs an access token.
func (s *Service) issueTokens(ctx context.Context, tx Tx, userID string) (AuthTokens, error) {
	refresh, err := s.refresh.Issue(ctx, tx, userID)
	if err != nil {
		return AuthTokens{}, err
	}

	access, expiresIn, err := s.codec.Issue(userID)
	if err != nil {
		return AuthTokens{}, domain.ErrTokenSignFailed(err)
	}

	return AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	}, nil
}

// newOpaqueToken returns a URL-safe opaque token.
func newOpaqueToken(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		return "", errors.New("invalid token length")
	}
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
