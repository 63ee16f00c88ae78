package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"

	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"

	// HS256 keys shorter than this are refused outside dev.
	minJWTSecretLen = 32

	minBcryptCost = 4
	maxBcryptCost = 31
)

type Config struct {
	//App
	Env string // dev / staging / prod
	//HTTP
	HTTPAddr string
	//Auth / Security
	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int

	// Lockout
	LockoutThreshold int
	LockoutDuration  time.Duration

	// Password reset
	PasswordResetTokenTTL time.Duration
	NotifyTimeout         time.Duration

	// Storage
	StoreBackend  string
	DatabaseURL   string
	DBAutoMigrate bool
	DBDebug       bool

	// Rate limiting
	RateLimitBackend  string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	GlobalRateLimit   int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Messaging
	RabbitURL      string
	RabbitExchange string

	// Observability
	SentryDSN string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	MaxBodyBytes     int64
	SecurityHeaders  bool
}

func (c *Config) IsDev() bool { return c.Env == "dev" }

// SecureCookies is true everywhere except local dev.
func (c *Config) SecureCookies() bool { return !c.IsDev() }

// Load reads an optional .env file and then the process environment.
// Missing required values fail fast.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:              getEnv("ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		JWTIssuer:        getEnv("JWT_ISSUER", "credential-service"),
		StoreBackend:     strings.ToLower(getEnv("STORE_BACKEND", StoreBackendPostgres)),
		RateLimitBackend: strings.ToLower(getEnv("RATE_LIMIT_BACKEND", RateLimitBackendMemory)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RabbitURL:        os.Getenv("RABBIT_URL"),
		RabbitExchange:   getEnv("RABBIT_EXCHANGE", "credential.events"),
		SentryDSN:        os.Getenv("SENTRY_DSN"),
	}

	// required values
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env var: JWT_SECRET")
	}
	if !cfg.IsDev() && len(cfg.JWTSecret) < minJWTSecretLen {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes outside dev", minJWTSecretLen)
	}

	var err error
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"ACCESS_TOKEN_TTL", 15 * time.Minute, &cfg.AccessTokenTTL},
		{"REFRESH_TOKEN_TTL", 7 * 24 * time.Hour, &cfg.RefreshTokenTTL},
		{"PASSWORD_RESET_TOKEN_TTL", time.Hour, &cfg.PasswordResetTokenTTL},
		{"LOCKOUT_DURATION", 15 * time.Minute, &cfg.LockoutDuration},
		{"NOTIFY_TIMEOUT", 5 * time.Second, &cfg.NotifyTimeout},
		{"RATE_LIMIT_WINDOW", 60 * time.Second, &cfg.RateLimitWindow},
		{"HTTP_READ_TIMEOUT", 10 * time.Second, &cfg.HTTPReadTimeout},
		{"HTTP_WRITE_TIMEOUT", 30 * time.Second, &cfg.HTTPWriteTimeout},
		{"HTTP_IDLE_TIMEOUT", time.Minute, &cfg.HTTPIdleTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = getDuration(d.key, d.def); err != nil {
			return nil, err
		}
		if *d.dst <= 0 {
			return nil, fmt.Errorf("%s must be positive", d.key)
		}
	}

	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"LOCKOUT_THRESHOLD", 5, &cfg.LockoutThreshold},
		{"RATE_LIMIT_REQUESTS", 5, &cfg.RateLimitRequests},
		{"GLOBAL_RATE_LIMIT", 0, &cfg.GlobalRateLimit},
		{"REDIS_DB", 0, &cfg.RedisDB},
		{"BCRYPT_COST", 12, &cfg.BcryptCost},
	}
	for _, i := range ints {
		if *i.dst, err = getInt(i.key, i.def); err != nil {
			return nil, err
		}
	}
	if cfg.LockoutThreshold <= 0 {
		return nil, fmt.Errorf("LOCKOUT_THRESHOLD must be positive")
	}
	if cfg.RateLimitRequests <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	if cfg.BcryptCost < minBcryptCost || cfg.BcryptCost > maxBcryptCost {
		return nil, fmt.Errorf("BCRYPT_COST must be between %d and %d", minBcryptCost, maxBcryptCost)
	}

	if cfg.DBAutoMigrate, err = getBool("DB_AUTO_MIGRATE", false); err != nil {
		return nil, err
	}
	if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.SecurityHeaders, err = getBool("SECURITY_HEADERS_ENABLED", true); err != nil {
		return nil, err
	}

	maxBody, err := getInt("REQUEST_BODY_MAX_BYTES", 1<<20)
	if err != nil {
		return nil, err
	}
	if maxBody <= 0 {
		return nil, fmt.Errorf("REQUEST_BODY_MAX_BYTES must be positive")
	}
	cfg.MaxBodyBytes = int64(maxBody)

	// Infrastructure dependencies.
	// Fail fast here to avoid starting in a partially-initialized state.
	switch cfg.StoreBackend {
	case StoreBackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("missing required env var: DATABASE_URL")
		}
	case StoreBackendMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q", cfg.StoreBackend)
	}

	switch cfg.RateLimitBackend {
	case RateLimitBackendRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("missing required env var: REDIS_ADDR")
		}
	case RateLimitBackendMemory:
	default:
		return nil, fmt.Errorf("invalid RATE_LIMIT_BACKEND %q", cfg.RateLimitBackend)
	}

	if cfg.RabbitURL == "" && !cfg.IsDev() {
		return nil, fmt.Errorf("missing required env var: RABBIT_URL")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}
