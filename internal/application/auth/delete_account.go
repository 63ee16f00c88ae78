package auth

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

// DeleteAccount removes the account after re-checking its password.
// Owned refresh and reset tokens go with it.
func (s *Service) DeleteAccount(ctx context.Context, userID, password string) error {
	if userID == "" {
		return domain.ErrTokenMissing()
	}
	if password == "" {
		return domain.ErrMissingField("password")
	}

	err := s.store.WithTx(ctx, func(tx Tx) error {
		u, err := tx.FindUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
			return domain.ErrInvalidCredentials()
		}
		return tx.DeleteUser(ctx, u.ID)
	})
	if err != nil {
		return err
	}

	s.audit("account_deleted", map[string]string{"user_id": userID})
	return nil
}
