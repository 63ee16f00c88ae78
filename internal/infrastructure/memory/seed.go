package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

// Hasher is the minimal surface we need for seeding.
type Hasher interface {
	Hash(password string) (string, error)
}

type SeedUser struct {
	Name     string
	Email    string
	Password string
}

// DefaultSeedUsers are created for local development.
var DefaultSeedUsers = []SeedUser{
	{Name: "Demo User", Email: "user@example.com", Password: "UserPassword123!"},
	{Name: "Second User", Email: "second@example.com", Password: "SecondPassword123!"},
}

// SeedUsers creates users for local development. Existing emails are
// skipped, so it is safe to call repeatedly. Returns how many were created.
func SeedUsers(ctx context.Context, store auth.Store, hasher Hasher, seeds []SeedUser, log zerolog.Logger) int {
	created := 0
	for _, s := range seeds {
		hash, err := hasher.Hash(s.Password)
		if err != nil {
			log.Warn().Err(err).Str("email", s.Email).Msg("seed: hash failed")
			continue
		}

		now := domain.UTC(time.Now())
		u := domain.User{
			ID:           uuid.NewString(),
			Name:         s.Name,
			Email:        domain.NormalizeEmail(s.Email),
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		err = store.WithTx(ctx, func(tx auth.Tx) error {
			_, err := tx.CreateUser(ctx, u)
			return err
		})
		if err != nil {
			// ignore duplicates (restart safe)
			if !domain.Is(err, domain.CodeEmailExists) {
				log.Warn().Err(err).Str("email", s.Email).Msg("seed: create failed")
			}
			continue
		}
		created++
	}

	log.Info().Int("created", created).Msg("seed: users seeded")
	return created
}
