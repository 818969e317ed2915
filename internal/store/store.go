package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultApplicationName tags every session so the LISTEN connection and
// the request pool are easy to tell apart in pg_stat_activity.
const DefaultApplicationName = "rating-pulse"

// Options tunes the shared connection pool. Zero values keep pgx defaults.
type Options struct {
	MaxConns               int32
	MinConns               int32
	MaxConnIdleTime        time.Duration
	MaxConnLifetime        time.Duration
	ConnTimeout            time.Duration
	StatementCacheCapacity int
	ApplicationName        string
	Logger                 *log.Logger
}

// Store owns the process-wide connection pool. It is opened once at startup,
// shared by the event repository and the change feed, and closed on shutdown.
type Store struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	opts   Options
}

// New opens the pool and fails unless the database answers a ping within
// ConnTimeout. This is the only store failure that is fatal to the server.
func New(ctx context.Context, dbURL string, opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	cfg, err := poolConfig(dbURL, opts)
	if err != nil {
		return nil, err
	}
	opts.Logger.Printf("store: opening pool (max=%d, min=%d, idle=%s, life=%s, stmt_cache=%d, app=%s)",
		cfg.MaxConns, cfg.MinConns, cfg.MaxConnIdleTime, cfg.MaxConnLifetime,
		cfg.ConnConfig.StatementCacheCapacity, cfg.ConnConfig.RuntimeParams["application_name"])

	connCtx, cancel := withOptionalTimeout(ctx, opts.ConnTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(connCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	opts.Logger.Println("store: database connection established")
	return &Store{pool: pool, logger: opts.Logger, opts: opts}, nil
}

func poolConfig(dbURL string, opts Options) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.StatementCacheCapacity > 0 {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
		cfg.ConnConfig.StatementCacheCapacity = opts.StatementCacheCapacity
	}

	name := opts.ApplicationName
	if name == "" {
		name = DefaultApplicationName
	}
	if _, set := cfg.ConnConfig.RuntimeParams["application_name"]; !set {
		cfg.ConnConfig.RuntimeParams["application_name"] = name
	}
	return cfg, nil
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return ctx, func() {}
}

// Close releases the pool. Hijacked listener connections are closed by
// their owners.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.logger.Println("store: closing connection pool")
	s.pool.Close()
}

// HealthCheck pings the database through the pool.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return errors.New("store: not initialized")
	}
	checkCtx, cancel := withOptionalTimeout(ctx, s.opts.ConnTimeout)
	defer cancel()
	return s.pool.Ping(checkCtx)
}

// Pool exposes the pgx pool to the repository and the change feed.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
