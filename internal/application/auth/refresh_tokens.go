package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

const DefaultRefreshTTL = 7 * 24 * time.Hour

// RefreshTokens issues, validates, rotates and revokes opaque refresh tokens.
// Every method runs against the caller's transaction.
type RefreshTokens struct {
	hasher TokenHasher
	ttl    time.Duration
	now    func() time.Time
	random func() (string, error)
}

func NewRefreshTokens(hasher TokenHasher, ttl time.Duration) *RefreshTokens {
	if ttl <= 0 {
		ttl = DefaultRefreshTTL
	}
	return &RefreshTokens{
		hasher: hasher,
		ttl:    ttl,
		now:    time.Now,
		random: func() (string, error) { return newOpaqueToken(opaqueTokenBytes) },
	}
}

// Issue stores the digest of a fresh token and returns the raw value.
// The raw value is unrecoverable afterwards.
func (rt *RefreshTokens) Issue(ctx context.Context, tx Tx, userID string) (string, error) {
	raw, err := rt.random()
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}

	now := domain.UTC(rt.now())
	rec := domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: rt.hasher.Digest(raw),
		ExpiresAt: now.Add(rt.ttl),
		Revoked:   false,
		CreatedAt: now,
	}
	if err := tx.SaveRefreshToken(ctx, rec); err != nil {
		return "", err
	}
	return raw, nil
}

// Validate checks existence, then revocation, then expiry, in that order.
func (rt *RefreshTokens) Validate(ctx context.Context, tx Tx, raw string) (domain.RefreshToken, error) {
	rec, err := rt.find(ctx, tx, raw)
	if err != nil {
		return domain.RefreshToken{}, err
	}
	if rec.Revoked {
		return domain.RefreshToken{}, domain.ErrTokenRevoked()
	}
	if rec.Expired(rt.now()) {
		return domain.RefreshToken{}, domain.ErrTokenExpired()
	}
	return rec, nil
}

// Rotate revokes rec and issues an independent token for the same user.
// Both writes commit or roll back together with tx.
func (rt *RefreshTokens) Rotate(ctx context.Context, tx Tx, rec domain.RefreshToken) (string, error) {
	rec.Revoked = true
	if err := tx.SaveRefreshToken(ctx, rec); err != nil {
		return "", err
	}
	return rt.Issue(ctx, tx, rec.UserID)
}

// RevokeOne revokes the token matching raw. Revoking an already revoked
// token succeeds; an unknown token fails with AUTH_TOKEN_INVALID.
func (rt *RefreshTokens) RevokeOne(ctx context.Context, tx Tx, raw string) (domain.RefreshToken, error) {
	rec, err := rt.find(ctx, tx, raw)
	if err != nil {
		return domain.RefreshToken{}, err
	}
	if rec.Revoked {
		return rec, nil
	}
	rec.Revoked = true
	if err := tx.SaveRefreshToken(ctx, rec); err != nil {
		return domain.RefreshToken{}, err
	}
	return rec, nil
}

// RevokeAll revokes every live token owned by userID and returns how many
// were revoked.
func (rt *RefreshTokens) RevokeAll(ctx context.Context, tx Tx, userID string) (int, error) {
	live, err := tx.ListUnrevokedRefreshTokens(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, rec := range live {
		rec.Revoked = true
		if err := tx.SaveRefreshToken(ctx, rec); err != nil {
			return 0, err
		}
	}
	return len(live), nil
}

// Owner returns the id of the user owning raw without locking the token.
func (rt *RefreshTokens) Owner(ctx context.Context, tx Tx, raw string) (string, error) {
	if raw == "" {
		return "", domain.ErrTokenInvalid()
	}
	userID, err := tx.RefreshTokenOwner(ctx, rt.hasher.Digest(raw))
	if err != nil {
		if domain.Is(err, domain.CodeRefreshTokenNotFound) {
			return "", domain.ErrTokenInvalid()
		}
		return "", err
	}
	return userID, nil
}

func (rt *RefreshTokens) find(ctx context.Context, tx Tx, raw string) (domain.RefreshToken, error) {
	if raw == "" {
		return domain.RefreshToken{}, domain.ErrTokenInvalid()
	}
	rec, err := tx.FindRefreshTokenByDigest(ctx, rt.hasher.Digest(raw))
	if err != nil {
		if domain.Is(err, domain.CodeRefreshTokenNotFound) {
			return domain.RefreshToken{}, domain.ErrTokenInvalid()
		}
		return domain.RefreshToken{}, err
	}
	return rec, nil
}
