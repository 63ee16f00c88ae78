package auth

import (
	"context"
	"time"
)

type UserStatus struct {
	UserID              string
	Locked              bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
}

// GetMyStatus reports the lockout state of the caller's account.
func (s *Service) GetMyStatus(ctx context.Context, userID string) (UserStatus, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return UserStatus{}, err
	}

	locked := s.lockout.IsLocked(u, s.now())
	st := UserStatus{
		UserID:              u.ID,
		Locked:              locked,
		FailedLoginAttempts: u.FailedLoginAttempts,
	}
	if locked {
		st.LockedUntil = u.LockedUntil
	}
	return st, nil
}
