//go:build integration

package integration

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/infrastructure/security"
)

// setupPostgres starts postgres:17, applies the migrations and returns
// the connection URL and an open pool.
func setupPostgres(t *testing.T) (string, *sql.DB) {
	t.Helper()
	ctx := context.Background()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if _, err := testcontainers.NewDockerClientWithOpts(ctx); err != nil {
		t.Skipf("skipping integration test because Docker is unavailable: %v", err)
	}

	ctr, err := tcpostgres.Run(ctx, "postgres:17",
		tcpostgres.WithDatabase("credentials"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, postgres.MigrateUp(dsn))

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.PingContext(ctx))

	return dsn, db
}

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

func (n *captureNotifier) lastToken(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.events, "expected a reset notification")
	return n.events[len(n.events)-1].Token
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type itEnv struct {
	db       *sql.DB
	store    *postgres.Store
	svc      *auth.Service
	notifier *captureNotifier
	clock    *clock
}

func newEnv(t *testing.T) itEnv {
	t.Helper()
	_, db := setupPostgres(t)

	store := postgres.New(db)
	notifier := &captureNotifier{}
	clk := &clock{now: time.Now().UTC().Truncate(time.Microsecond)}

	svc := auth.NewService(
		store,
		security.NewBcryptHasher(bcrypt.MinCost),
		security.NewJWTCodec("integration-secret-integration-secret", "credential-service-it", 15*time.Minute).WithClock(clk.Now),
		security.SHA256Digester{},
		notifier,
		auth.Config{
			RefreshTTL: 24 * time.Hour,
			ResetTTL:   time.Hour,
			Lockout:    domain.DefaultLockoutPolicy(),
		},
	).WithClock(clk.Now).WithDispatcher(func(fn func()) { fn() })

	return itEnv{db: db, store: store, svc: svc, notifier: notifier, clock: clk}
}

func (e itEnv) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}
