package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

// Store is the Postgres credential store. Reads inside a transaction take
// row locks (FOR UPDATE) so concurrent attempts on one user or token
// serialize.
type Store struct {
	db *sql.DB
}

var _ auth.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx auth.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
		ReadOnly:  false,
	})
	if err != nil {
		return domain.ErrDBUnavailable(fmt.Errorf("begin tx: %w", err))
	}

	defer func() {
		// Safety: in case fn panics, rollback to avoid leaked tx.
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&txStore{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.ErrDBUnavailable(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	id, ok := parseID(id)
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}

	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	ur, err := scanUser(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return domain.User{}, mapErr(err, domain.ErrUserNotFound)
	}
	return toDomainUser(ur), nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

// parseID rejects ids that are not UUIDs before they reach a uuid column.
func parseID(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// txStore implements auth.Tx on one *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrUserNotFound()
	}

	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1 FOR UPDATE`
	ur, err := scanUser(t.tx.QueryRowContext(ctx, q, email))
	if err != nil {
		return domain.User{}, mapErr(err, domain.ErrUserNotFound)
	}
	return toDomainUser(ur), nil
}

func (t *txStore) FindUserByID(ctx context.Context, id string) (domain.User, error) {
	id, ok := parseID(id)
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}

	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	ur, err := scanUser(t.tx.QueryRowContext(ctx, q, id))
	if err != nil {
		return domain.User{}, mapErr(err, domain.ErrUserNotFound)
	}
	return toDomainUser(ur), nil
}

func (t *txStore) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = domain.NormalizeEmail(u.Email)
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if u.PasswordHash == "" {
		return domain.User{}, domain.ErrMissingField("password_hash")
	}

	q := `
INSERT INTO users (id, name, email, password_hash, failed_login_attempts, locked_until, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING ` + userColumns

	ur, err := scanUser(t.tx.QueryRowContext(ctx, q,
		u.ID, u.Name, u.Email, u.PasswordHash, u.FailedLoginAttempts,
		nullTime(u.LockedUntil), domain.UTC(u.CreatedAt), domain.UTC(u.UpdatedAt),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		return domain.User{}, mapErr(err, nil)
	}
	return toDomainUser(ur), nil
}

func (t *txStore) SaveUser(ctx context.Context, u domain.User) error {
	const q = `
UPDATE users
SET name = $2,
    password_hash = $3,
    failed_login_attempts = $4,
    locked_until = $5,
    updated_at = $6
WHERE id = $1`

	res, err := t.tx.ExecContext(ctx, q,
		u.ID, u.Name, u.PasswordHash, u.FailedLoginAttempts,
		nullTime(u.LockedUntil), domain.UTC(u.UpdatedAt),
	)
	if err != nil {
		return mapErr(err, nil)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

// DeleteUser relies on ON DELETE CASCADE for the token tables.
func (t *txStore) DeleteUser(ctx context.Context, id string) error {
	id, ok := parseID(id)
	if !ok {
		return domain.ErrUserNotFound()
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, nil)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

// RefreshTokenOwner takes no row lock.
func (t *txStore) RefreshTokenOwner(ctx context.Context, digest string) (string, error) {
	var userID string
	err := t.tx.QueryRowContext(ctx, `SELECT user_id FROM refresh_tokens WHERE token_hash = $1`, digest).Scan(&userID)
	if err != nil {
		return "", mapErr(err, domain.ErrRefreshTokenNotFound)
	}
	return userID, nil
}

func (t *txStore) FindRefreshTokenByDigest(ctx context.Context, digest string) (domain.RefreshToken, error) {
	q := `SELECT ` + refreshColumns + ` FROM refresh_tokens WHERE token_hash = $1 FOR UPDATE`
	rec, err := scanRefresh(t.tx.QueryRowContext(ctx, q, digest))
	if err != nil {
		return domain.RefreshToken{}, mapErr(err, domain.ErrRefreshTokenNotFound)
	}
	return rec, nil
}

// SaveRefreshToken inserts rec, or updates its revoked flag if the id
// already exists. revoked never flips back to false.
func (t *txStore) SaveRefreshToken(ctx context.Context, rec domain.RefreshToken) error {
	const q = `
INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE
SET revoked = refresh_tokens.revoked OR EXCLUDED.revoked`

	_, err := t.tx.ExecContext(ctx, q,
		rec.ID, rec.UserID, rec.TokenHash,
		domain.UTC(rec.ExpiresAt), rec.Revoked, domain.UTC(rec.CreatedAt),
	)
	return mapErr(err, nil)
}

func (t *txStore) ListUnrevokedRefreshTokens(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	userID, ok := parseID(userID)
	if !ok {
		return nil, nil
	}
	q := `SELECT ` + refreshColumns + ` FROM refresh_tokens WHERE user_id = $1 AND revoked = FALSE FOR UPDATE`
	rows, err := t.tx.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, mapErr(err, nil)
	}
	defer rows.Close()

	var out []domain.RefreshToken
	for rows.Next() {
		rec, err := scanRefresh(rows)
		if err != nil {
			return nil, mapErr(err, nil)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err, nil)
	}
	return out, nil
}

func (t *txStore) ResetTokenOwner(ctx context.Context, digest string) (string, error) {
	var userID string
	err := t.tx.QueryRowContext(ctx, `SELECT user_id FROM password_reset_tokens WHERE token_hash = $1`, digest).Scan(&userID)
	if err != nil {
		return "", mapErr(err, domain.ErrResetTokenNotFound)
	}
	return userID, nil
}

func (t *txStore) FindResetTokenByDigest(ctx context.Context, digest string) (domain.PasswordResetToken, error) {
	q := `SELECT ` + resetColumns + ` FROM password_reset_tokens WHERE token_hash = $1 FOR UPDATE`
	rec, err := scanReset(t.tx.QueryRowContext(ctx, q, digest))
	if err != nil {
		return domain.PasswordResetToken{}, mapErr(err, domain.ErrResetTokenNotFound)
	}
	return rec, nil
}

// SaveResetToken inserts rec, or sets used if the id already exists.
func (t *txStore) SaveResetToken(ctx context.Context, rec domain.PasswordResetToken) error {
	const q = `
INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, used, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE
SET used = password_reset_tokens.used OR EXCLUDED.used`

	_, err := t.tx.ExecContext(ctx, q,
		rec.ID, rec.UserID, rec.TokenHash,
		domain.UTC(rec.ExpiresAt), rec.Used, domain.UTC(rec.CreatedAt),
	)
	return mapErr(err, nil)
}
