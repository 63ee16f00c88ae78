package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

// Register creates an account. Tokens are not issued; the client logs in.
func (s *Service) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	name = strings.TrimSpace(name)
	email = domain.NormalizeEmail(email)
	if name == "" {
		return domain.User{}, domain.ErrMissingField("name")
	}
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if password == "" {
		return domain.User{}, domain.ErrMissingField("password")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, domain.ErrHashFailed(err)
	}

	now := domain.UTC(s.now())
	u := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var created domain.User
	err = s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		created, err = tx.CreateUser(ctx, u)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}

	s.audit("user_registered", map[string]string{"user_id": created.ID, "email": created.Email})
	return created, nil
}
