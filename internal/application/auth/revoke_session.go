package auth

import (
	"context"
	"strconv"
	"strings"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

// RevokeAllSessions revokes every live refresh token of the caller and
// returns how many were revoked. Access tokens stay valid until they expire.
func (s *Service) RevokeAllSessions(ctx context.Context, userID string) (int, error) {
	userID = strings.TrimSpace(userID)

	audit := func(result string, err error, extra map[string]string) {
		fields := map[string]string{
			"user_id": userID,
			"result":  result,
		}
		if err != nil {
			fields["error_code"] = domainCode(err)
		}
		for k, v := range extra {
			fields[k] = v
		}
		s.audit("sessions_revoked", fields)
	}

	if userID == "" {
		return 0, domain.ErrTokenMissing()
	}

	var n int
	err := s.store.WithTx(ctx, func(tx Tx) error {
		// ensure user exists (so handler returns 404)
		if _, err := tx.FindUserByID(ctx, userID); err != nil {
			return err
		}
		var err error
		n, err = s.refresh.RevokeAll(ctx, tx, userID)
		return err
	})
	if err != nil {
		audit("error", err, nil)
		return 0, err
	}

	audit("success", nil, map[string]string{"revoked_tokens": strconv.Itoa(n)})
	return n, nil
}
