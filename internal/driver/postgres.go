package driver

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/postgres.sql
var postgresSchema string

const (
	postgresLoadQuery = `SELECT value FROM compat_blobs WHERE key = $1`
	postgresSaveQuery = `
		INSERT INTO compat_blobs (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

// PostgresPersistence stores blobs in the compat_blobs table.
type PostgresPersistence struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and creates the table when it does not exist.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresPersistence, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}
	return &PostgresPersistence{pool: pool}, nil
}

func (p *PostgresPersistence) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := p.pool.QueryRow(ctx, postgresLoadQuery, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("postgres: read blob %s: %w", key, err)
	}
	return value, true, nil
}

func (p *PostgresPersistence) Save(ctx context.Context, key string, value []byte) error {
	if _, err := p.pool.Exec(ctx, postgresSaveQuery, key, value); err != nil {
		return fmt.Errorf("postgres: write blob %s: %w", key, err)
	}
	return nil
}

func (p *PostgresPersistence) Close(context.Context) error {
	p.pool.Close()
	return nil
}
