package auth

import (
	"context"
	"strconv"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

// RequestPasswordReset issues a reset token for email and hands it to the
// notifier without waiting for delivery.
// IMPORTANT: non-enumerating. Unknown emails return nil like known ones.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	var (
		raw string
		u   *domain.User
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		raw, u, err = s.resets.Request(ctx, tx, email)
		return err
	})
	if err != nil {
		return err
	}
	if u == nil {
		s.audit("password_reset_requested", map[string]string{"email": email, "known": "false"})
		return nil
	}

	s.audit("password_reset_requested", map[string]string{"email": email, "user_id": u.ID, "known": "true"})
	s.notifyReset(ctx, PasswordResetEvent{UserID: u.ID, Email: u.Email, Token: raw})
	return nil
}

// notifyReset publishes on a detached context bounded by notifyTimeout.
// Delivery failures are audited and never reach the caller.
func (s *Service) notifyReset(ctx context.Context, evt PasswordResetEvent) {
	if s.notifier == nil {
		return
	}
	base := context.WithoutCancel(ctx)
	s.dispatch(func() {
		ctx, cancel := context.WithTimeout(base, s.notifyTimeout)
		defer cancel()

		if err := s.notifier.PublishPasswordReset(ctx, evt); err != nil {
			s.audit("password_reset_notify_failed", map[string]string{
				"user_id": evt.UserID,
				"error":   err.Error(),
			})
		}
	})
}

// ConfirmPasswordReset consumes the token, sets the new password and
// revokes every refresh token of the account, all in one transaction.
// The password is hashed only once the token has been accepted.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return domain.ErrResetTokenInvalid()
	}
	if newPassword == "" {
		return domain.ErrMissingField("new_password")
	}

	var (
		userID  string
		revoked int
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		owner, err := s.resets.Owner(ctx, tx, token)
		if err != nil {
			return err
		}

		u, err := tx.FindUserByID(ctx, owner)
		if err != nil {
			if domain.Is(err, domain.CodeUserNotFound) {
				return domain.ErrResetTokenInvalid()
			}
			return err
		}

		rec, err := s.resets.Confirm(ctx, tx, token)
		if err != nil {
			return err
		}
		if rec.UserID != u.ID {
			return domain.ErrResetTokenInvalid()
		}
		userID = u.ID

		hash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return domain.ErrHashFailed(err)
		}
		u.PasswordHash = hash
		u.UpdatedAt = domain.UTC(s.now())
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}

		revoked, err = s.refresh.RevokeAll(ctx, tx, u.ID)
		return err
	})
	if err != nil {
		return err
	}

	s.audit("password_reset_completed", map[string]string{
		"user_id":        userID,
		"revoked_tokens": strconv.Itoa(revoked),
	})
	return nil
}
