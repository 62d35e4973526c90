package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"journal-backend/internal/config"
)

const pingTimeout = 5 * time.Second

// NewPool opens the journal database and checks it answers before the
// server starts taking requests.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(withSSLMode(cfg.URL, cfg.SSLMode))
	if err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging journal database: %w", err)
	}
	return pool, nil
}

// withSSLMode adds sslmode to a postgres:// URL or a key=value DSN that
// does not set one already.
func withSSLMode(dsn, mode string) string {
	dsn = strings.TrimSpace(dsn)
	if mode == "" || dsn == "" {
		return dsn
	}

	if !strings.Contains(dsn, "://") {
		if strings.Contains(dsn, "sslmode=") {
			return dsn
		}
		return dsn + " sslmode=" + mode
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	q := u.Query()
	if q.Get("sslmode") != "" {
		return dsn
	}
	q.Set("sslmode", mode)
	u.RawQuery = q.Encode()
	return u.String()
}
