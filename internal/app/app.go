// Package app wires configuration into a running Engine for the binaries.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agenthands/compat/internal/config"
	"github.com/agenthands/compat/internal/core"
	"github.com/agenthands/compat/internal/core/dedupe"
	"github.com/agenthands/compat/internal/driver"
	"github.com/agenthands/compat/internal/metrics"
	"github.com/agenthands/compat/internal/shopify"
)

// App owns the persistence backend behind Engine.
type App struct {
	Engine      *core.Engine
	Persistence driver.Persistence
	Metrics     *metrics.Metrics
}

// NewLogger returns a text logger at the named level.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// New opens storage, loads the engine and attaches the Shopify provider when
// configured. reg may be nil to run without metrics.
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*App, error) {
	policy, err := dedupe.ParsePolicy(cfg.Ingestion.DuplicatePolicy)
	if err != nil {
		return nil, err
	}

	p, err := driver.Open(ctx, cfg.Storage, logger.With("component", "driver"))
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	var m *metrics.Metrics
	if reg != nil {
		m = metrics.New(reg)
	}

	engine := core.Open(ctx, metrics.InstrumentPersistence(p, m), core.Options{
		Delimiter:       cfg.Ingestion.DelimiterRune(),
		DuplicatePolicy: policy,
	}, logger)
	engine.Metrics = m
	m.SetCatalogSize(engine.Catalog.Len())

	if cfg.Shopify.Enabled() {
		client, err := shopify.NewClient(shopify.Config{
			StoreDomain:       cfg.Shopify.StoreDomain,
			AccessToken:       cfg.Shopify.AccessToken,
			APIVersion:        cfg.Shopify.APIVersion,
			PageSize:          cfg.Shopify.PageSize,
			RequestsPerSecond: cfg.Shopify.RequestsPerSecond,
			MaxRetries:        cfg.Shopify.MaxRetries,
			Timeout:           time.Duration(cfg.Shopify.TimeoutSeconds) * time.Second,
		}, logger.With("component", "shopify"))
		if err != nil {
			p.Close(ctx)
			return nil, err
		}
		engine.Provider = client
	}

	return &App{Engine: engine, Persistence: p, Metrics: m}, nil
}

func (a *App) Close(ctx context.Context) error {
	return a.Persistence.Close(ctx)
}

// RefreshLoop refreshes the catalog every interval until ctx is done. Failures
// are logged and the previous catalog stays in place.
func (a *App) RefreshLoop(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.Engine.RefreshCatalog(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("scheduled catalog refresh failed", "error", err)
			}
		}
	}
}
