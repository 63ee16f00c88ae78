package auth

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

func (s *Service) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.store.GetUserByID(ctx, userID)
}

// CurrentUser resolves a bearer access token to its account.
// Missing accounts look like a bad token; locked accounts are refused.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (domain.User, error) {
	if accessToken == "" {
		return domain.User{}, domain.ErrTokenMissing()
	}

	userID, err := s.codec.Verify(accessToken)
	if err != nil {
		return domain.User{}, err
	}

	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if domain.Is(err, domain.CodeUserNotFound) {
			return domain.User{}, domain.ErrTokenInvalid()
		}
		return domain.User{}, err
	}

	if s.lockout.IsLocked(u, s.now()) {
		return domain.User{}, domain.ErrAccountLocked()
	}
	return u, nil
}
