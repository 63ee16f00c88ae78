package postgres

import (
	"database/sql"
	"time"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

const userColumns = `id, name, email, password_hash, failed_login_attempts, locked_until, created_at, updated_at`

type userRow struct {
	ID                  string
	Name                string
	Email               string
	PasswordHash        string
	FailedLoginAttempts int
	LockedUntil         sql.NullTime
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (userRow, error) {
	var ur userRow
	err := row.Scan(
		&ur.ID,
		&ur.Name,
		&ur.Email,
		&ur.PasswordHash,
		&ur.FailedLoginAttempts,
		&ur.LockedUntil,
		&ur.CreatedAt,
		&ur.UpdatedAt,
	)
	return ur, err
}

func toDomainUser(ur userRow) domain.User {
	u := domain.User{
		ID:                  ur.ID,
		Name:                ur.Name,
		Email:               ur.Email,
		PasswordHash:        ur.PasswordHash,
		FailedLoginAttempts: ur.FailedLoginAttempts,
		CreatedAt:           domain.UTC(ur.CreatedAt),
		UpdatedAt:           domain.UTC(ur.UpdatedAt),
	}
	if ur.LockedUntil.Valid {
		t := domain.UTC(ur.LockedUntil.Time)
		u.LockedUntil = &t
	}
	return u
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: domain.UTC(*t), Valid: true}
}

const refreshColumns = `id, user_id, token_hash, expires_at, revoked, created_at`

func scanRefresh(row rowScanner) (domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	t.ExpiresAt = domain.UTC(t.ExpiresAt)
	t.CreatedAt = domain.UTC(t.CreatedAt)
	return t, err
}

const resetColumns = `id, user_id, token_hash, expires_at, used, created_at`

func scanReset(row rowScanner) (domain.PasswordResetToken, error) {
	var t domain.PasswordResetToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	t.ExpiresAt = domain.UTC(t.ExpiresAt)
	t.CreatedAt = domain.UTC(t.CreatedAt)
	return t, err
}
