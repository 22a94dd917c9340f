package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/autotriage/internal/config"
)

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

func parseDialect(databaseURL string) (dialect, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return 0, fmt.Errorf("parse database URL: %w", err)
	}
	switch u.Scheme {
	case "postgres", "postgresql":
		return dialectPostgres, nil
	case "sqlite3", "sqlite":
		return dialectSQLite, nil
	default:
		return 0, fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
}

func (d dialect) migrationsDir() string {
	if d == dialectSQLite {
		return "sqlite"
	}
	return "postgres"
}

// migrateURL rewrites databaseURL into the form the migrate driver registers.
func (d dialect) migrateURL(databaseURL string) string {
	if d == dialectSQLite {
		return "sqlite3://" + sqlitePath(databaseURL)
	}
	return databaseURL
}

// sqlitePath strips the scheme from a sqlite3:// or sqlite:// URL.
// "sqlite3://feedbacks.db" is relative, "sqlite3:///var/db/f.db" absolute.
func sqlitePath(databaseURL string) string {
	for _, prefix := range []string{"sqlite3://", "sqlite://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}

// Open connects to the database named by cfg.URL, applies pending migrations
// and returns the matching Store.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	d, err := parseDialect(cfg.URL)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(cfg.URL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if d == dialectSQLite {
		return OpenSQLite(ctx, sqlitePath(cfg.URL))
	}

	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewPostgresStore(pool), nil
}

// Connect opens a pgx pool sized from cfg and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
