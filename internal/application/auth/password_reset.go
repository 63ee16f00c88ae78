package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

const DefaultResetTTL = time.Hour

// PasswordResets issues and consumes one-time reset tokens.
type PasswordResets struct {
	hasher TokenHasher
	ttl    time.Duration
	now    func() time.Time
	random func() (string, error)
}

func NewPasswordResets(hasher TokenHasher, ttl time.Duration) *PasswordResets {
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	return &PasswordResets{
		hasher: hasher,
		ttl:    ttl,
		now:    time.Now,
		random: func() (string, error) { return newOpaqueToken(opaqueTokenBytes) },
	}
}

// Request stores a reset token for the account owning email.
// Unknown emails return ("", nil, nil) without touching the store, so the
// caller can answer identically in both cases.
func (pr *PasswordResets) Request(ctx context.Context, tx Tx, email string) (string, *domain.User, error) {
	u, err := tx.FindUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if domain.Is(err, domain.CodeUserNotFound) {
			return "", nil, nil
		}
		return "", nil, err
	}

	raw, err := pr.random()
	if err != nil {
		return "", nil, domain.ErrRandomFailed(err)
	}

	now := domain.UTC(pr.now())
	rec := domain.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		TokenHash: pr.hasher.Digest(raw),
		ExpiresAt: now.Add(pr.ttl),
		Used:      false,
		CreatedAt: now,
	}
	if err := tx.SaveResetToken(ctx, rec); err != nil {
		return "", nil, err
	}
	return raw, &u, nil
}

// Owner returns the id of the user owning raw without locking the token.
func (pr *PasswordResets) Owner(ctx context.Context, tx Tx, raw string) (string, error) {
	if raw == "" {
		return "", domain.ErrResetTokenInvalid()
	}
	userID, err := tx.ResetTokenOwner(ctx, pr.hasher.Digest(raw))
	if err != nil {
		if domain.Is(err, domain.CodeResetTokenNotFound) {
			return "", domain.ErrResetTokenInvalid()
		}
		return "", err
	}
	return userID, nil
}

// Confirm consumes the token matching raw. Absent, used and expired tokens
// all fail with RESET_TOKEN_INVALID.
func (pr *PasswordResets) Confirm(ctx context.Context, tx Tx, raw string) (domain.PasswordResetToken, error) {
	if raw == "" {
		return domain.PasswordResetToken{}, domain.ErrResetTokenInvalid()
	}

	rec, err := tx.FindResetTokenByDigest(ctx, pr.hasher.Digest(raw))
	if err != nil {
		if domain.Is(err, domain.CodeResetTokenNotFound) {
			return domain.PasswordResetToken{}, domain.ErrResetTokenInvalid()
		}
		return domain.PasswordResetToken{}, err
	}
	if rec.Used || rec.Expired(pr.now()) {
		return domain.PasswordResetToken{}, domain.ErrResetTokenInvalid()
	}

	rec.Used = true
	if err := tx.SaveResetToken(ctx, rec); err != nil {
		return domain.PasswordResetToken{}, err
	}
	return rec, nil
}
