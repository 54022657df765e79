package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agenthands/compat/internal/config"
)

// Open builds the backend named by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Persistence, error) {
	var (
		p   Persistence
		err error
	)

	switch cfg.Backend {
	case "", "memory":
		return NewMemoryPersistence(), nil
	case "sqlite":
		p, err = openSQLite(cfg.SQLite)
	case "badger":
		p, err = openBadger(cfg.Badger, logger)
	case "memgraph":
		p, err = openMemgraph(ctx, cfg.Memgraph, logger)
	case "postgres":
		p, err = openPostgres(ctx, cfg.Postgres)
	case "gcs":
		p, err = openGCS(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("storage opened", "backend", cfg.Backend)
	return p, nil
}

func openSQLite(cfg config.SQLiteConfig) (Persistence, error) {
	s, err := OpenSQLite(cfg.Path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openBadger(cfg config.BadgerConfig, logger *slog.Logger) (Persistence, error) {
	b, err := OpenBadger(BadgerOptions{
		Path:       cfg.Path,
		InMemory:   cfg.InMemory,
		SyncWrites: !cfg.InMemory,
		Logger:     logger.With("component", "badger"),
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func openMemgraph(ctx context.Context, cfg config.MemgraphConfig, logger *slog.Logger) (Persistence, error) {
	d, err := NewMemgraphDriver(ctx, cfg.URI, cfg.User, cfg.Password, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to memgraph: %w", err)
	}
	g, err := NewGraphPersistence(ctx, d)
	if err != nil {
		d.Close(ctx)
		return nil, err
	}
	return g, nil
}

func openPostgres(ctx context.Context, cfg config.PostgresConfig) (Persistence, error) {
	p, err := OpenPostgres(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func openGCS(ctx context.Context, cfg config.GCSConfig) (Persistence, error) {
	g, err := OpenGCS(ctx, GCSOptions{
		Bucket:          cfg.Bucket,
		Prefix:          cfg.Prefix,
		CredentialsFile: cfg.CredentialsFile,
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}
