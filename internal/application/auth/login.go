package auth

import (
	"context"
	"strconv"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

// authOutcome carries the committed result of one authentication attempt.
// denied is set when the attempt was refused; failure bookkeeping is still
// committed in that case.
type authOutcome struct {
	user      domain.User
	denied    *domain.Error
	reason    string
	lockedNow bool
	revoked   int
}

// Authenticate checks email/password against the lockout state machine.
// IMPORTANT: unknown email and wrong password are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	var out authOutcome
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		out, err = s.authenticateTx(ctx, tx, email, password)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	s.auditAuthOutcome(email, out)
	if out.denied != nil {
		return domain.User{}, out.denied
	}
	return out.user, nil
}

// Login authenticates a user and issues an access + refresh token pair.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var (
		out  authOutcome
		toks AuthTokens
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		out, err = s.authenticateTx(ctx, tx, email, password)
		if err != nil || out.denied != nil {
			return err
		}
		toks, err = s.issueTokens(ctx, tx, out.user.ID)
		return err
	})
	if err != nil {
		return LoginResult{}, err
	}
	s.auditAuthOutcome(email, out)
	if out.denied != nil {
		return LoginResult{}, out.denied
	}
	return LoginResult{User: out.user, Tokens: toks}, nil
}

func (s *Service) authenticateTx(ctx context.Context, tx Tx, email, password string) (authOutcome, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return authOutcome{denied: domain.ErrInvalidCredentials(), reason: "empty_credentials"}, nil
	}

	u, err := tx.FindUserByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, domain.CodeUserNotFound) {
			return authOutcome{denied: domain.ErrInvalidCredentials(), reason: "unknown_email"}, nil
		}
		return authOutcome{}, err
	}

	now := s.now()
	if s.lockout.IsLocked(u, now) {
		return authOutcome{user: u, denied: domain.ErrAccountLocked(), reason: "account_locked"}, nil
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		lockedNow := s.lockout.RecordFailure(&u, now)
		u.UpdatedAt = domain.UTC(now)
		if err := tx.SaveUser(ctx, u); err != nil {
			return authOutcome{}, err
		}

		out := authOutcome{user: u, denied: domain.ErrInvalidCredentials(), reason: "wrong_password", lockedNow: lockedNow}
		if lockedNow {
			n, err := s.refresh.RevokeAll(ctx, tx, u.ID)
			if err != nil {
				return authOutcome{}, err
			}
			out.revoked = n
		}
		return out, nil
	}

	if u.FailedLoginAttempts != 0 || u.LockedUntil != nil {
		s.lockout.RecordSuccess(&u)
		u.UpdatedAt = domain.UTC(now)
		if err := tx.SaveUser(ctx, u); err != nil {
			return authOutcome{}, err
		}
	}
	return authOutcome{user: u}, nil
}

func (s *Service) auditAuthOutcome(email string, out authOutcome) {
	if out.denied == nil {
		s.audit("login_success", map[string]string{"user_id": out.user.ID})
		return
	}

	fields := map[string]string{
		"email":  email,
		"reason": out.reason,
		"code":   out.denied.Code,
	}
	if out.user.ID != "" {
		fields["user_id"] = out.user.ID
		fields["failed_attempts"] = strconv.Itoa(out.user.FailedLoginAttempts)
	}
	s.audit("login_failed", fields)

	if out.lockedNow {
		s.audit("account_locked", map[string]string{
			"user_id":        out.user.ID,
			"revoked_tokens": strconv.Itoa(out.revoked),
		})
	}
}
