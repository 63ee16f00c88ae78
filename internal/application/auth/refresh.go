package auth

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

// Refresh rotates a refresh token and issues a new access token.
// Rotation rule: the presented token is revoked in the same transaction
// that issues its replacement; presenting it again yields AUTH_TOKEN_REVOKED.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthTokens, error) {
	var (
		toks   AuthTokens
		userID string
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		owner, err := s.refresh.Owner(ctx, tx, refreshToken)
		if err != nil {
			return err
		}
		userID = owner

		// user row before token row, same as login and revoke-all
		u, err := tx.FindUserByID(ctx, owner)
		if err != nil {
			if domain.Is(err, domain.CodeUserNotFound) {
				return domain.ErrTokenInvalid()
			}
			return err
		}

		rec, err := s.refresh.Validate(ctx, tx, refreshToken)
		if err != nil {
			return err
		}
		if rec.UserID != u.ID {
			return domain.ErrTokenInvalid()
		}

		// a lockout after issuance blocks refresh as well
		if s.lockout.IsLocked(u, s.now()) {
			return domain.ErrAccountLocked()
		}

		newRefresh, err := s.refresh.Rotate(ctx, tx, rec)
		if err != nil {
			return err
		}

		access, expiresIn, err := s.codec.Issue(u.ID)
		if err != nil {
			return domain.ErrTokenSignFailed(err)
		}

		toks = AuthTokens{
			AccessToken:  access,
			RefreshToken: newRefresh,
			TokenType:    "Bearer",
			ExpiresIn:    expiresIn,
		}
		return nil
	})
	if err != nil {
		action := "refresh_failed"
		if domain.Is(err, domain.CodeTokenRevoked) {
			action = "token_reuse_detected"
		}
		fields := map[string]string{"code": domainCode(err)}
		if userID != "" {
			fields["user_id"] = userID
		}
		s.audit(action, fields)
		return AuthTokens{}, err
	}

	s.audit("token_refreshed", map[string]string{"user_id": userID})
	return toks, nil
}
