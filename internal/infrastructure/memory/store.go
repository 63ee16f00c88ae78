package memory

import (
	"context"
	"sync"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

// Store is an in-process credential store. One mutex is held for the
// whole transaction, so transactions are serializable; writes go to a
// working copy that replaces the committed state only on success.
type Store struct {
	mu    sync.Mutex
	state state
}

var _ auth.Store = (*Store)(nil)

type state struct {
	users   map[string]domain.User               // by id
	emails  map[string]string                    // email -> id
	refresh map[string]domain.RefreshToken       // by digest
	resets  map[string]domain.PasswordResetToken // by digest
}

func newState() state {
	return state{
		users:   make(map[string]domain.User),
		emails:  make(map[string]string),
		refresh: make(map[string]domain.RefreshToken),
		resets:  make(map[string]domain.PasswordResetToken),
	}
}

func (s state) clone() state {
	cp := newState()
	for k, v := range s.users {
		cp.users[k] = v
	}
	for k, v := range s.emails {
		cp.emails[k] = v
	}
	for k, v := range s.refresh {
		cp.refresh[k] = v
	}
	for k, v := range s.resets {
		cp.resets[k] = v
	}
	return cp
}

func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx auth.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return domain.ErrDBUnavailable(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{st: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.st
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.state.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

type memTx struct {
	st state
}

func (t *memTx) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	id, ok := t.st.emails[domain.NormalizeEmail(email)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return t.st.users[id], nil
}

func (t *memTx) FindUserByID(ctx context.Context, id string) (domain.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (t *memTx) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = domain.NormalizeEmail(u.Email)
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if _, exists := t.st.emails[u.Email]; exists {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	u.CreatedAt = domain.UTC(u.CreatedAt)
	u.UpdatedAt = domain.UTC(u.UpdatedAt)
	u.LockedUntil = domain.UTCPtr(u.LockedUntil)

	t.st.users[u.ID] = u
	t.st.emails[u.Email] = u.ID
	return u, nil
}

func (t *memTx) SaveUser(ctx context.Context, u domain.User) error {
	prev, ok := t.st.users[u.ID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	// email is immutable here
	u.Email = prev.Email
	u.UpdatedAt = domain.UTC(u.UpdatedAt)
	u.LockedUntil = domain.UTCPtr(u.LockedUntil)
	t.st.users[u.ID] = u
	return nil
}

func (t *memTx) DeleteUser(ctx context.Context, id string) error {
	u, ok := t.st.users[id]
	if !ok {
		return domain.ErrUserNotFound()
	}
	delete(t.st.users, id)
	delete(t.st.emails, u.Email)

	for k, rec := range t.st.refresh {
		if rec.UserID == id {
			delete(t.st.refresh, k)
		}
	}
	for k, rec := range t.st.resets {
		if rec.UserID == id {
			delete(t.st.resets, k)
		}
	}
	return nil
}

func (t *memTx) RefreshTokenOwner(ctx context.Context, digest string) (string, error) {
	rec, ok := t.st.refresh[digest]
	if !ok {
		return "", domain.ErrRefreshTokenNotFound()
	}
	return rec.UserID, nil
}

func (t *memTx) FindRefreshTokenByDigest(ctx context.Context, digest string) (domain.RefreshToken, error) {
	rec, ok := t.st.refresh[digest]
	if !ok {
		return domain.RefreshToken{}, domain.ErrRefreshTokenNotFound()
	}
	return rec, nil
}

func (t *memTx) SaveRefreshToken(ctx context.Context, rec domain.RefreshToken) error {
	if prev, ok := t.st.refresh[rec.TokenHash]; ok {
		if prev.ID != rec.ID {
			return domain.ErrInternal(nil)
		}
		rec.Revoked = prev.Revoked || rec.Revoked
	}
	if _, ok := t.st.users[rec.UserID]; !ok {
		return domain.ErrUserNotFound()
	}
	rec.ExpiresAt = domain.UTC(rec.ExpiresAt)
	rec.CreatedAt = domain.UTC(rec.CreatedAt)
	t.st.refresh[rec.TokenHash] = rec
	return nil
}

func (t *memTx) ListUnrevokedRefreshTokens(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	var out []domain.RefreshToken
	for _, rec := range t.st.refresh {
		if rec.UserID == userID && !rec.Revoked {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (t *memTx) ResetTokenOwner(ctx context.Context, digest string) (string, error) {
	rec, ok := t.st.resets[digest]
	if !ok {
		return "", domain.ErrResetTokenNotFound()
	}
	return rec.UserID, nil
}

func (t *memTx) FindResetTokenByDigest(ctx context.Context, digest string) (domain.PasswordResetToken, error) {
	rec, ok := t.st.resets[digest]
	if !ok {
		return domain.PasswordResetToken{}, domain.ErrResetTokenNotFound()
	}
	return rec, nil
}

func (t *memTx) SaveResetToken(ctx context.Context, rec domain.PasswordResetToken) error {
	if prev, ok := t.st.resets[rec.TokenHash]; ok {
		if prev.ID != rec.ID {
			return domain.ErrInternal(nil)
		}
		rec.Used = prev.Used || rec.Used
	}
	if _, ok := t.st.users[rec.UserID]; !ok {
		return domain.ErrUserNotFound()
	}
	rec.ExpiresAt = domain.UTC(rec.ExpiresAt)
	rec.CreatedAt = domain.UTC(rec.CreatedAt)
	t.st.resets[rec.TokenHash] = rec
	return nil
}
