package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/infrastructure/memory"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/infrastructure/redis"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/observability"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/pkg/ratelimit"
	http_handlers "github.com/baechuer/real-time-ressys/services/credential-service/internal/transport/http/handlers"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/transport/http/response"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(dsn string, debug bool) (*sql.DB, error)

	Migrate func(dsn string) error

	NewRedis func(addr, password string, db int) *redis.Client

	NewNotifier func(url, exchange string) (Notifier, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

// Notifier is a reset notifier that owns a connection.
type Notifier interface {
	auth.ResetNotifier
	Close() error
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Env); err != nil {
		logger.Logger.Warn().Err(err).Msg("sentry init failed; panics are only logged")
	} else if cfg.SentryDSN != "" {
		cleanupFns = append(cleanupFns, observability.FlushSentry)
	}

	// 1) store
	var store auth.Store
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		logger.Logger.Warn().Msg("using in-memory credential store; data is lost on restart")
		store = memory.NewStore()

	default:
		db, err := deps.NewDB(cfg.DatabaseURL, cfg.DBDebug)
		if err != nil {
			return fail(err)
		}
		cleanupFns = append(cleanupFns, func() { _ = db.Close() })

		if cfg.DBAutoMigrate {
			if deps.Migrate == nil {
				return fail(errors.New("bootstrap: DB_AUTO_MIGRATE set but no migrator"))
			}
			if err := deps.Migrate(cfg.DatabaseURL); err != nil {
				return fail(err)
			}
			logger.Logger.Info().Msg("migrations applied")
		}
		store = postgres.New(db)
	}

	// 2) rate limiter (redis best-effort)
	var limiter ratelimit.Limiter = memory.NewSlidingWindowLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	if cfg.RateLimitBackend == config.RateLimitBackendRedis && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := c.Ping(context.Background()); err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; using in-process rate limiter")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			limiter = redis.NewFixedWindowLimiter(c, cfg.RateLimitRequests, cfg.RateLimitWindow)
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
	}

	// 3) notifier
	var notifier auth.ResetNotifier
	if cfg.RabbitURL == "" {
		logger.Logger.Warn().Msg("RABBIT_URL not set; reset notifications are logged only")
		notifier = memory.NewLogNotifier(logger.Logger)
	} else {
		pub, err := deps.NewNotifier(cfg.RabbitURL, cfg.RabbitExchange)
		switch {
		case err == nil:
			notifier = pub
			cleanupFns = append(cleanupFns, func() { _ = pub.Close() })
		case cfg.IsDev():
			logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; reset notifications are logged only")
			notifier = memory.NewLogNotifier(logger.Logger)
		default:
			return fail(err)
		}
	}

	// 4) security
	logger.Logger.Info().Str("issuer", cfg.JWTIssuer).Msg("initializing jwt codec")
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	codec := security.NewJWTCodec(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)

	// 5) service
	auditLog := audit.New(logger.Logger)
	authSvc := auth.NewService(
		store,
		hasher,
		codec,
		security.SHA256Digester{},
		notifier,
		auth.Config{
			RefreshTTL: cfg.RefreshTokenTTL,
			ResetTTL:   cfg.PasswordResetTokenTTL,
			Lockout: domain.LockoutPolicy{
				Threshold: cfg.LockoutThreshold,
				Duration:  cfg.LockoutDuration,
			},
			NotifyTimeout: cfg.NotifyTimeout,
		},
	).WithAudit(func(action string, fields map[string]string) {
		auditLog.Record(action, fields)
		middleware.RecordAuditEvent(action, fields)
	})

	// seed (dev + memory only)
	if cfg.IsDev() && cfg.StoreBackend == config.StoreBackendMemory {
		n := memory.SeedUsers(context.Background(), store, hasher, memory.DefaultSeedUsers, logger.Logger)
		logger.Logger.Info().Int("created", n).Msg("seeded dev users")
	}

	// 6) handlers + middleware
	secureCookies := cfg.SecureCookies()

	authH := http_handlers.NewAuthHandler(authSvc, cfg.RefreshTokenTTL, secureCookies)
	userH := http_handlers.NewUserHandler(authSvc, secureCookies)
	healthH := http_handlers.NewHealthHandler(store)

	rl := func(route string) router.Middleware {
		return middleware.RateLimit(limiter, route, response.WriteError)
	}

	// 7) router
	mux, err := deps.NewRouter(router.Deps{
		Health: healthH,
		Auth:   authH,
		Users:  userH,
		AuthMW: middleware.Auth(authSvc, response.WriteError),

		LoginRL:    rl("auth.login"),
		RegisterRL: rl("users.register"),
		ResetRL:    rl("auth.password_reset.request"),

		GlobalLimit:  cfg.GlobalRateLimit,
		GlobalWindow: time.Minute,

		MaxBodyBytes:    cfg.MaxBodyBytes,
		SecurityHeaders: cfg.SecurityHeaders,
		HSTS:            cfg.SecureCookies(),
	})
	if err != nil {
		return fail(err)
	}

	// 8) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		Migrate:    postgres.MigrateUp,
		NewRedis:   redis.New,
		NewNotifier: func(url, exchange string) (Notifier, error) {
			return rabbitmq.NewPublisher(url, exchange)
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
