package kvstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore keeps coordination values in a single PostgreSQL table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	prefix string
}

// NewPostgresStore connects to dsn and creates the kv table if needed.
func NewPostgresStore(ctx context.Context, dsn, prefix string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	poolCfg.MaxConns = 5
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	slog.Info("connected to PostgreSQL coordination store", "component", "kvstore")
	return &PostgresStore{pool: pool, prefix: prefix}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	k := joinPrefix(s.prefix, key)

	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM coordination_kv WHERE key = $1`, k).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("get %s: %w", k, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	k := joinPrefix(s.prefix, key)

	query := `
		INSERT INTO coordination_kv (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := s.pool.Exec(ctx, query, k, nonNil(value)); err != nil {
		return fmt.Errorf("set %s: %w", k, err)
	}
	return nil
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error) {
	k := joinPrefix(s.prefix, key)

	var query string
	var args []any
	if old == nil {
		query = `
			INSERT INTO coordination_kv (key, value)
			VALUES ($1, $2)
			ON CONFLICT (key) DO NOTHING
		`
		args = []any{k, nonNil(value)}
	} else {
		query = `
			UPDATE coordination_kv
			SET value = $2, updated_at = NOW()
			WHERE key = $1 AND value = $3
		`
		args = []any{k, nonNil(value), old}
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("cas %s: %w", k, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Close releases database connections.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// value is NOT NULL; pgx encodes a nil slice as NULL.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

var _ CASStore = (*PostgresStore)(nil)
