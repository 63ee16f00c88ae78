package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/infrastructure/memory"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/transport/http/middleware"
)

const testSecret = "test-secret-test-secret-test-secret"

type captureNotifier struct {
	mu     sync.Mutex
	events []auth.PasswordResetEvent
}

func (n *captureNotifier) PublishPasswordReset(_ context.Context, evt auth.PasswordResetEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
	return nil
}

func (n *captureNotifier) last(t *testing.T) auth.PasswordResetEvent {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		t.Fatalf("expected a reset notification")
	}
	return n.events[len(n.events)-1]
}

type handlerEnv struct {
	svc      *auth.Service
	store    *memory.Store
	notifier *captureNotifier
	auth     *AuthHandler
	users    *UserHandler
}

func newHandlerEnv(t *testing.T) handlerEnv {
	t.Helper()

	store := memory.NewStore()
	notifier := &captureNotifier{}
	svc := auth.NewService(
		store,
		security.NewBcryptHasher(bcrypt.MinCost),
		security.NewJWTCodec(testSecret, "test", 15*time.Minute),
		security.SHA256Digester{},
		notifier,
		auth.Config{RefreshTTL: time.Hour, ResetTTL: time.Hour},
	).WithDispatcher(func(fn func()) { fn() })

	return handlerEnv{
		svc:      svc,
		store:    store,
		notifier: notifier,
		auth:     NewAuthHandler(svc, time.Hour, false),
		users:    NewUserHandler(svc, false),
	}
}

// registerAndLogin creates an account and returns it with a fresh token pair.
func (e handlerEnv) registerAndLogin(t *testing.T, email, password string) (domain.User, auth.AuthTokens) {
	t.Helper()
	ctx := context.Background()

	u, err := e.svc.Register(ctx, "Test User", email, password)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	res, err := e.svc.Login(ctx, email, password)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return u, res.Tokens
}

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// mustReadData decodes the {"data": ...} envelope into out.
func mustReadData(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil || len(env.Data) == 0 {
		t.Fatalf("decode envelope failed; body=%s", rr.Body.String())
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data failed; body=%s err=%v", rr.Body.String(), err)
	}
}

// requireErrorCode checks status and the error envelope code.
func requireErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	if rr.Code != status {
		t.Fatalf("expected status %d, got %d; body=%s", status, rr.Code, rr.Body.String())
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v; body=%s", err, rr.Body.String())
	}
	if body.Error.Code != code {
		t.Fatalf("expected code %s, got %s", code, body.Error.Code)
	}
}

// readCookie finds cookie by name from response headers.
func readCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// withUserCtx injects the authenticated user the way middleware.Auth does.
func withUserCtx(req *http.Request, u domain.User) *http.Request {
	return req.WithContext(middleware.WithUser(req.Context(), u))
}

func postJSON(t *testing.T, path string, body any) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, mustJSONBody(t, body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
