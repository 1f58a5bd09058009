package database

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/BradenHooton/giftgate/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	auditApplicationName = "giftgate-audit"

	// auditStatementTimeout bounds every statement on audit connections
	auditStatementTimeout = 2 * time.Second

	auditConnectTimeout = 10 * time.Second
	auditPingTimeout    = 2 * time.Second
)

// DB is the audit database: the Postgres pool behind the security event
// repository. It is optional; without it events only reach the log.
type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenAuditDB connects to the audit database and verifies it answers a ping
func OpenAuditDB(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	poolConfig, err := auditPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, auditConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create audit connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach audit database %s/%s: %w", cfg.Host, cfg.Name, err)
	}

	logger.Info("audit database connection established",
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Name),
		slog.Int("max_conns", int(poolConfig.MaxConns)),
		slog.Int("min_conns", int(poolConfig.MinConns)),
		slog.Duration("statement_timeout", auditStatementTimeout),
	)

	return &DB{Pool: pool, logger: logger}, nil
}

// auditPoolConfig builds the pool settings without connecting. Audit
// connections identify themselves in pg_stat_activity and carry a server-side
// statement timeout.
func auditPoolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse audit database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = min(cfg.MinConns, cfg.MaxConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod

	params := poolConfig.ConnConfig.RuntimeParams
	if params["application_name"] == "" {
		params["application_name"] = auditApplicationName
	}
	params["statement_timeout"] = strconv.FormatInt(auditStatementTimeout.Milliseconds(), 10)

	return poolConfig, nil
}

// Close releases the pool
func (db *DB) Close() {
	db.logger.Info("closing audit database connection pool")
	db.Pool.Close()
}

// HealthCheck reports whether the audit database still answers. /health
// treats a failure as degraded, not down.
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, auditPingTimeout)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("audit database unreachable: %w", err)
	}
	return nil
}
