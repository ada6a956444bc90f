package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"ats-backend/internal/shared/telemetry"
)

const defaultPingTimeout = 5 * time.Second

var ErrNoDatabaseURL = errors.New("DATABASE_URL is empty")

// Profile names the kind of process that owns a pool.
type Profile string

const (
	ProfileServer  Profile = "server"
	ProfileLambda  Profile = "lambda"
	ProfileMigrate Profile = "migrate"
)

// Options controls pool sizing and the connect-time ping.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// OptionsFor returns the pool defaults for p. Lambda pools stay tiny since
// every concurrent execution environment holds its own.
func OptionsFor(p Profile) Options {
	switch p {
	case ProfileLambda:
		return Options{MaxOpenConns: 2, MaxIdleConns: 1, ConnMaxLifetime: 15 * time.Minute, ConnMaxIdleTime: 30 * time.Second, PingTimeout: 3 * time.Second}
	case ProfileMigrate:
		return Options{MaxOpenConns: 1, MaxIdleConns: 1, ConnMaxLifetime: time.Hour, ConnMaxIdleTime: 2 * time.Minute, PingTimeout: defaultPingTimeout}
	default:
		return Options{MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: time.Hour, ConnMaxIdleTime: 2 * time.Minute, PingTimeout: defaultPingTimeout}
	}
}

// WithEnv applies DB_* overrides. Malformed values are logged and ignored.
func (o Options) WithEnv() Options {
	ints := map[string]*int{
		"DB_MAX_OPEN_CONNS": &o.MaxOpenConns,
		"DB_MAX_IDLE_CONNS": &o.MaxIdleConns,
	}
	for key, dst := range ints {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			telemetry.Error("db.env_invalid", map[string]any{"key": key, "error": err.Error()})
			continue
		}
		*dst = v
	}
	durations := map[string]*time.Duration{
		"DB_CONN_MAX_LIFETIME":  &o.ConnMaxLifetime,
		"DB_CONN_MAX_IDLE_TIME": &o.ConnMaxIdleTime,
		"DB_PING_TIMEOUT":       &o.PingTimeout,
	}
	for key, dst := range durations {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			continue
		}
		v, err := time.ParseDuration(raw)
		if err != nil {
			telemetry.Error("db.env_invalid", map[string]any{"key": key, "error": err.Error()})
			continue
		}
		*dst = v
	}
	return o
}

// IsLambdaRuntime reports whether the process runs inside AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// CurrentProfile picks the pool profile for a long-lived process.
func CurrentProfile() Profile {
	if IsLambdaRuntime() {
		return ProfileLambda
	}
	return ProfileServer
}

var openDB = sql.Open

// Connect opens a pgx-backed pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, ErrNoDatabaseURL
	}
	pool, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	configure(pool, opts)

	if err := Ping(ctx, pool, opts.PingTimeout); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	telemetry.Info("db.connected", PoolStats(pool))
	return pool, nil
}

// Ping checks connectivity with its own deadline.
func Ping(ctx context.Context, pool *sql.DB, timeout time.Duration) error {
	if pool == nil {
		return errors.New("database not configured")
	}
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return pool.PingContext(ctx)
}

// PoolStats flattens sql.DBStats into log fields.
func PoolStats(pool *sql.DB) map[string]any {
	s := pool.Stats()
	return map[string]any{
		"open":     s.OpenConnections,
		"in_use":   s.InUse,
		"idle":     s.Idle,
		"wait":     s.WaitCount,
		"max_open": s.MaxOpenConnections,
	}
}

func configure(pool *sql.DB, opts Options) {
	fallback := OptionsFor(ProfileServer)
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = fallback.MaxOpenConns
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = fallback.MaxIdleConns
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = fallback.ConnMaxLifetime
	}
	pool.SetMaxOpenConns(opts.MaxOpenConns)
	pool.SetMaxIdleConns(opts.MaxIdleConns)
	pool.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

// shared is the pool reused across warm Lambda invocations.
var shared struct {
	mu   sync.Mutex
	pool *sql.DB
}

// Shared returns the process-wide pool, connecting on first use. A failed
// connect is not cached; the next call tries again.
func Shared(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	if shared.pool != nil {
		return shared.pool, nil
	}
	pool, err := Connect(ctx, databaseURL, opts)
	if err != nil {
		return nil, err
	}
	shared.pool = pool
	return pool, nil
}
