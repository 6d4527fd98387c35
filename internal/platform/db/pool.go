package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// uniqueViolation is the SQLSTATE Postgres reports for a duplicate key.
const uniqueViolation = "23505"

// PoolConfig describes the Postgres pool behind the case and result stores.
type PoolConfig struct {
	URL      string
	MaxConns int32
	MinConns int32
	// HealthCheckPeriod overrides pgxpool's idle check interval when set.
	HealthCheckPeriod time.Duration
	Logger            zerolog.Logger
}

// NewPool opens the pool and fails unless the database answers a ping.
func NewPool(ctx context.Context, pc PoolConfig) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(pc.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if pc.MaxConns > 0 {
		cfg.MaxConns = pc.MaxConns
	}
	if pc.MinConns > 0 && pc.MinConns <= cfg.MaxConns {
		cfg.MinConns = pc.MinConns
	}
	if pc.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = pc.HealthCheckPeriod
	}

	log := pc.Logger.With().
		Str("store", "postgres").
		Str("host", cfg.ConnConfig.Host).
		Str("database", cfg.ConnConfig.Database).
		Logger()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	start := time.Now()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("database did not answer ping")
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info().
		Int32("max_conns", cfg.MaxConns).
		Int32("min_conns", cfg.MinConns).
		Dur("ping", time.Since(start)).
		Msg("connection pool ready")
	return pool, nil
}

// IsUniqueViolation reports whether err is a Postgres duplicate key error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
