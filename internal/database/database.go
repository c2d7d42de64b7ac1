package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dominoboard/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Connect opens a pgx pool against DB_CONNECTION_STRING and pings it.
func Connect(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(DSN(cfg.DBConnection, cfg.IsDevelopment()))
	if err != nil {
		return nil, fmt.Errorf("parse db connection string: %w", err)
	}
	// The Supabase transaction pooler does not support server-side prepared statements.
	if !cfg.IsDevelopment() {
		poolCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}
	poolCfg.MaxConns = 25
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	logger.Info().Str("db_port", portFromDSN(cfg.DBConnection)).Msg("Database connection successful")
	return pool, nil
}

// DSN disables SSL for local development unless the connection string already sets sslmode.
func DSN(dsn string, development bool) string {
	if !development || strings.Contains(dsn, "sslmode") {
		return dsn
	}
	separator := " "
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		separator = "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
	}
	return dsn + separator + "sslmode=disable"
}

// portFromDSN extracts the port of a URL-style DSN for logging.
func portFromDSN(dsn string) string {
	parts := strings.Split(dsn, ":")
	for i, part := range parts {
		if strings.Contains(part, "@") && len(parts) > i+1 {
			return strings.Split(parts[i+1], "/")[0]
		}
	}
	return "not_found"
}
