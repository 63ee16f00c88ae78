package domain

import (
	"strings"
	"time"
)

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string

	FailedLoginAttempts int
	LockedUntil         *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RefreshToken is the persisted side of an opaque refresh token.
// Only the digest of the raw value is ever stored.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t RefreshToken) Expired(now time.Time) bool {
	return UTC(now).After(UTC(t.ExpiresAt))
}

type PasswordResetToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

func (t PasswordResetToken) Expired(now time.Time) bool {
	return UTC(now).After(UTC(t.ExpiresAt))
}

// NormalizeEmail case-folds an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UTC normalizes t to UTC. Zone-less values read back from a store are
// already UTC wall time, so the conversion is a no-op for them.
func UTC(t time.Time) time.Time {
	return t.UTC()
}

// UTCPtr is the nil-safe form of UTC.
func UTCPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
