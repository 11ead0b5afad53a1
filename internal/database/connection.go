package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"petshop/internal/config"
	"petshop/internal/logger"
)

// connectAttempts bounds the startup dial loop. Postgres is usually the
// last dependency to come up in a compose environment, so each retry
// backs off a little longer than the previous one.
const connectAttempts = 5

// DB is the pooled PostgreSQL handle shared by every repository. It
// exposes only the pgx surface the repositories actually use.
type DB struct {
	Pool   *pgxpool.Pool
	logger *logger.Logger
}

// New dials PostgreSQL and verifies the connection. Pool sizing comes
// from the database config section; connections are recycled hourly so
// a rolling restart of Postgres drains cleanly.
func New(cfg *config.Config, log *logger.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = poolConfig.MaxConns / 4
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := dial(poolConfig, log)
	if err != nil {
		return nil, err
	}

	log.Info("db_connected", "Connected to PostgreSQL", "startup", map[string]interface{}{
		"host":      cfg.Database.Host,
		"database":  cfg.Database.Database,
		"max_conns": cfg.Database.MaxConns,
	})

	return &DB{
		Pool:   pool,
		logger: log,
	}, nil
}

// dial retries the initial connection with linear backoff.
func dial(poolConfig *pgxpool.Config, log *logger.Logger) (*pgxpool.Pool, error) {
	var lastErr error

	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = pool.Ping(pingCtx)
			cancel()
			if err == nil {
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err

		if attempt < connectAttempts {
			wait := time.Duration(attempt) * 2 * time.Second
			log.Error("db_connect_retry",
				fmt.Sprintf("PostgreSQL not ready, retrying in %v", wait),
				"startup", err, map[string]interface{}{
					"attempt": attempt,
				})
			time.Sleep(wait)
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectAttempts, lastErr)
}

// Close releases the pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping reports whether the database is reachable. Backs the health
// endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Begin starts a transaction. The order repository is the only caller;
// everything else runs single statements.
func (db *DB) Begin(ctx context.Context) (pgx.Tx, error) {
	return db.Pool.Begin(ctx)
}

// Exec runs a statement and discards the result.
func (db *DB) Exec(ctx context.Context, sql string, args ...interface{}) error {
	_, err := db.Pool.Exec(ctx, sql, args...)
	return err
}

// Query runs a multi-row query.
func (db *DB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return db.Pool.Query(ctx, sql, args...)
}

// QueryRow runs a single-row query.
func (db *DB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return db.Pool.QueryRow(ctx, sql, args...)
}
