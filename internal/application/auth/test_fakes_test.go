package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

/*
Fake store: one mutex held for the whole transaction, writes go to a
copy that replaces the committed state only when fn returns nil.
*/

type storeState struct {
	users   map[string]domain.User
	refresh map[string]domain.RefreshToken       // by digest
	resets  map[string]domain.PasswordResetToken // by digest
}

func (s storeState) clone() storeState {
	cp := storeState{
		users:   make(map[string]domain.User, len(s.users)),
		refresh: make(map[string]domain.RefreshToken, len(s.refresh)),
		resets:  make(map[string]domain.PasswordResetToken, len(s.resets)),
	}
	for k, v := range s.users {
		cp.users[k] = v
	}
	for k, v := range s.refresh {
		cp.refresh[k] = v
	}
	for k, v := range s.resets {
		cp.resets[k] = v
	}
	return cp
}

type fakeStore struct {
	mu    sync.Mutex
	state storeState

	// injected errors (if set, method returns error)
	beginErr       error
	getUserErr     error
	findUserErr    error
	saveUserErr    error
	saveRefreshErr error
	listRefreshErr error
	saveResetErr   error
	deleteUserErr  error
	pingErr        error

	commits   int
	rollbacks int

	// row locks taken by the last transaction, in order
	lastLocks []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: storeState{}.clone()}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.beginErr != nil {
		return f.beginErr
	}
	tx := &fakeTx{f: f, st: f.state.clone()}
	err := fn(tx)
	f.lastLocks = tx.locks
	if err != nil {
		f.rollbacks++
		return err
	}
	f.state = tx.st
	f.commits++
	return nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getUserErr != nil {
		return domain.User{}, f.getUserErr
	}
	u, ok := f.state.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

// seedUser stores u directly in the committed state.
func (f *fakeStore) seedUser(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.users[u.ID] = u
}

func (f *fakeStore) user(id string) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.users[id]
}

func (f *fakeStore) refreshByDigest(digest string) (domain.RefreshToken, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.state.refresh[digest]
	return rec, ok
}

func (f *fakeStore) liveRefreshCount(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, rec := range f.state.refresh {
		if rec.UserID == userID && !rec.Revoked {
			n++
		}
	}
	return n
}

func (f *fakeStore) resetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.state.resets)
}

func (f *fakeStore) setResetExpiry(digest string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.state.resets[digest]
	rec.ExpiresAt = at
	f.state.resets[digest] = rec
}

func (f *fakeStore) locks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lastLocks...)
}

type fakeTx struct {
	f     *fakeStore
	st    storeState
	locks []string
}

func (t *fakeTx) lock(row string) { t.locks = append(t.locks, row) }

func (t *fakeTx) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	if t.f.findUserErr != nil {
		return domain.User{}, t.f.findUserErr
	}
	for _, u := range t.st.users {
		if u.Email == email {
			t.lock("user:" + u.ID)
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (t *fakeTx) FindUserByID(ctx context.Context, id string) (domain.User, error) {
	if t.f.findUserErr != nil {
		return domain.User{}, t.f.findUserErr
	}
	u, ok := t.st.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	t.lock("user:" + id)
	return u, nil
}

func (t *fakeTx) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	for _, existing := range t.st.users {
		if existing.Email == u.Email {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
	}
	t.st.users[u.ID] = u
	return u, nil
}

func (t *fakeTx) SaveUser(ctx context.Context, u domain.User) error {
	if t.f.saveUserErr != nil {
		return t.f.saveUserErr
	}
	if _, ok := t.st.users[u.ID]; !ok {
		return domain.ErrUserNotFound()
	}
	t.st.users[u.ID] = u
	return nil
}

func (t *fakeTx) DeleteUser(ctx context.Context, id string) error {
	if t.f.deleteUserErr != nil {
		return t.f.deleteUserErr
	}
	delete(t.st.users, id)
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

func (t *fakeTx) RefreshTokenOwner(ctx context.Context, digest string) (string, error) {
	rec, ok := t.st.refresh[digest]
	if !ok {
		return "", domain.ErrRefreshTokenNotFound()
	}
	return rec.UserID, nil
}

func (t *fakeTx) FindRefreshTokenByDigest(ctx context.Context, digest string) (domain.RefreshToken, error) {
	rec, ok := t.st.refresh[digest]
	if !ok {
		return domain.RefreshToken{}, domain.ErrRefreshTokenNotFound()
	}
	t.lock("refresh:" + digest)
	return rec, nil
}

func (t *fakeTx) SaveRefreshToken(ctx context.Context, rec domain.RefreshToken) error {
	if t.f.saveRefreshErr != nil {
		return t.f.saveRefreshErr
	}
	t.st.refresh[rec.TokenHash] = rec
	return nil
}

func (t *fakeTx) ListUnrevokedRefreshTokens(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	if t.f.listRefreshErr != nil {
		return nil, t.f.listRefreshErr
	}
	var out []domain.RefreshToken
	for _, rec := range t.st.refresh {
		if rec.UserID == userID && !rec.Revoked {
			t.lock("refresh:" + rec.TokenHash)
			out = append(out, rec)
		}
	}
	return out, nil
}

func (t *fakeTx) ResetTokenOwner(ctx context.Context, digest string) (string, error) {
	rec, ok := t.st.resets[digest]
	if !ok {
		return "", domain.ErrResetTokenNotFound()
	}
	return rec.UserID, nil
}

func (t *fakeTx) FindResetTokenByDigest(ctx context.Context, digest string) (domain.PasswordResetToken, error) {
	rec, ok := t.st.resets[digest]
	if !ok {
		return domain.PasswordResetToken{}, domain.ErrResetTokenNotFound()
	}
	t.lock("reset:" + digest)
	return rec, nil
}

func (t *fakeTx) SaveResetToken(ctx context.Context, rec domain.PasswordResetToken) error {
	if t.f.saveResetErr != nil {
		return t.f.saveResetErr
	}
	t.st.resets[rec.TokenHash] = rec
	return nil
}

/*
Other ports
*/

type fakeHasher struct {
	hashFn    func(pw string) (string, error)
	compareFn func(hash, pw string) error
	hashCalls atomic.Int32
}

func (h *fakeHasher) Hash(password string) (string, error) {
	h.hashCalls.Add(1)
	if h.hashFn != nil {
		return h.hashFn(password)
	}
	return "hash:" + password, nil
}

func (h *fakeHasher) Compare(hash string, password string) error {
	if h.compareFn != nil {
		return h.compareFn(hash, password)
	}
	if hash != "hash:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type fakeCodec struct {
	issueErr error
}

func (c *fakeCodec) Issue(userID string) (string, int64, error) {
	if c.issueErr != nil {
		return "", 0, c.issueErr
	}
	return "access:" + userID, 900, nil
}

func (c *fakeCodec) Verify(token string) (string, error) {
	if token == "expired" {
		return "", domain.ErrTokenExpired()
	}
	id, ok := strings.CutPrefix(token, "access:")
	if !ok || id == "" {
		return "", domain.ErrTokenInvalid()
	}
	return id, nil
}

type fakeDigester struct{}

func (fakeDigester) Digest(raw string) string { return "d:" + raw }

type fakeNotifier struct {
	mu     sync.Mutex
	err    error
	events []PasswordResetEvent
}

func (n *fakeNotifier) PublishPasswordReset(ctx context.Context, evt PasswordResetEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
	return n.err
}

func (n *fakeNotifier) published() []PasswordResetEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]PasswordResetEvent(nil), n.events...)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

/*
Wiring
*/

type testEnv struct {
	svc      *Service
	store    *fakeStore
	hasher   *fakeHasher
	codec    *fakeCodec
	notifier *fakeNotifier
	clock    *fakeClock
	audits   *[]auditEntry
}

func newSvcForTest(t *testing.T) testEnv {
	t.Helper()

	env := testEnv{
		store:    newFakeStore(),
		hasher:   &fakeHasher{},
		codec:    &fakeCodec{},
		notifier: &fakeNotifier{},
		clock:    newFakeClock(),
		audits:   &[]auditEntry{},
	}

	cfg := Config{
		RefreshTTL: 7 * 24 * time.Hour,
		ResetTTL:   time.Hour,
		Lockout:    domain.DefaultLockoutPolicy(),
	}

	var mu sync.Mutex
	env.svc = NewService(env.store, env.hasher, env.codec, fakeDigester{}, env.notifier, cfg).
		WithClock(env.clock.Now).
		// run notifications inline so tests observe them deterministically
		WithDispatcher(func(fn func()) { fn() }).
		WithAudit(func(action string, fields map[string]string) {
			cp := map[string]string{}
			for k, v := range fields {
				cp[k] = v
			}
			mu.Lock()
			*env.audits = append(*env.audits, auditEntry{action: action, fields: cp})
			mu.Unlock()
		})

	// sanity check: no nil ports
	if env.svc == nil {
		t.Fatalf("svc is nil")
	}
	return env
}

// seedAlice stores an unlocked account with password "correct horse".
func (e testEnv) seedAlice() domain.User {
	now := e.clock.Now()
	u := domain.User{
		ID:           "u-alice",
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "hash:correct horse",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	e.store.seedUser(u)
	return u
}

/*
Small assertions
*/

func requireDomainCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	got := domainCode(err)
	if got != wantCode {
		t.Fatalf("expected domain code %q, got %q (err=%v)", wantCode, got, err)
	}
}

func lastAudit(audits *[]auditEntry) (auditEntry, bool) {
	if audits == nil || len(*audits) == 0 {
		return auditEntry{}, false
	}
	return (*audits)[len(*audits)-1], true
}

func requireAuditAction(t *testing.T, audits *[]auditEntry, wantAction string) auditEntry {
	t.Helper()
	e, ok := lastAudit(audits)
	if !ok {
		t.Fatalf("expected audit entry, got none")
	}
	if e.action != wantAction {
		t.Fatalf("expected audit action %q, got %q", wantAction, e.action)
	}
	return e
}

// findAudit returns the most recent entry with action.
func findAudit(t *testing.T, audits *[]auditEntry, action string) auditEntry {
	t.Helper()
	for i := len(*audits) - 1; i >= 0; i-- {
		if (*audits)[i].action == action {
			return (*audits)[i]
		}
	}
	t.Fatalf("expected audit action %q, got %v", action, *audits)
	return auditEntry{}
}

// requireUserLockedFirst fails unless every token row lock in locks comes
// after the lock on userID's row.
func requireUserLockedFirst(t *testing.T, locks []string, userID string) {
	t.Helper()
	if len(locks) == 0 || locks[0] != "user:"+userID {
		t.Fatalf("expected user:%s locked first, got %v", userID, locks)
	}
}

func requireAuditField(t *testing.T, e auditEntry, k, want string) {
	t.Helper()
	got := strings.TrimSpace(e.fields[k])
	if got != want {
		t.Fatalf("expected audit field %q=%q, got %q (all=%v)", k, want, got, e.fields)
	}
}
