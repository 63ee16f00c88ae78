package auth

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

// Logout revokes one refresh token owned by userID.
// A token belonging to another account is reported as unknown.
func (s *Service) Logout(ctx context.Context, userID, refreshToken string) error {
	if refreshToken == "" {
		return domain.ErrMissingField("refresh_token")
	}

	err := s.store.WithTx(ctx, func(tx Tx) error {
		rec, err := s.refresh.RevokeOne(ctx, tx, refreshToken)
		if err != nil {
			return err
		}
		if userID != "" && rec.UserID != userID {
			return domain.ErrTokenInvalid()
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit("logout", map[string]string{"user_id": userID})
	return nil
}
