package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/compat/internal/core/catalog"
	"github.com/agenthands/compat/internal/core/dedupe"
	"github.com/agenthands/compat/internal/core/ingest"
	"github.com/agenthands/compat/internal/core/model"
	"github.com/agenthands/compat/internal/core/reconcile"
	"github.com/agenthands/compat/internal/core/settings"
	"github.com/agenthands/compat/internal/core/store"
	"github.com/agenthands/compat/internal/driver"
	"github.com/agenthands/compat/internal/metrics"
)

// ErrNoProvider is returned by RefreshCatalog when no upstream catalog is configured.
var ErrNoProvider = errors.New("no catalog provider configured")

type Options struct {
	// Delimiter for uploaded CSV. Zero means comma.
	Delimiter       rune
	DuplicatePolicy dedupe.Policy
}

// Engine answers compatibility queries over the current store, catalog and settings.
type Engine struct {
	Store        *store.Store
	Catalog      *catalog.Cache
	Registry     *settings.Registry
	Deduplicator *dedupe.Deduplicator
	// Provider feeds RefreshCatalog. Optional.
	Provider catalog.Provider
	// Metrics is optional.
	Metrics *metrics.Metrics

	delimiter rune
	logger    *slog.Logger
}

func NewEngine(s *store.Store, c *catalog.Cache, r *settings.Registry, opts Options, logger *slog.Logger) *Engine {
	return &Engine{
		Store:        s,
		Catalog:      c,
		Registry:     r,
		Deduplicator: dedupe.NewDeduplicator(opts.DuplicatePolicy),
		delimiter:    opts.Delimiter,
		logger:       logger,
	}
}

// Open loads all three snapshots from p. Unusable stored data degrades to empty
// or default state.
func Open(ctx context.Context, p driver.Persistence, opts Options, logger *slog.Logger) *Engine {
	e := NewEngine(
		store.Load(ctx, p, logger.With("component", "store")),
		catalog.Load(ctx, p, logger.With("component", "catalog")),
		settings.Load(ctx, p, logger.With("component", "settings")),
		opts,
		logger,
	)
	logger.Info("engine ready", "records", e.Store.Len(), "products", e.Catalog.Len())
	return e
}

// CompatibleProductsFor is the single read path used by both the admin API and the widget.
func (e *Engine) CompatibleProductsFor(productID string) []model.ResolvedReference {
	return reconcile.Resolve(productID, e.Store, e.Catalog, e.Registry.Get())
}

func (e *Engine) MissingProducts() []string {
	missing := reconcile.MissingProducts(e.Store.GetAll(), e.Catalog)
	e.Metrics.SetMissingProducts(len(missing))
	return missing
}

// WidgetView is what the storefront embed renders. It is computed even when the
// widget is disabled; Enabled=false tells the embedder to render nothing.
type WidgetView struct {
	Enabled  bool                      `json:"enabled"`
	Title    string                    `json:"title"`
	Position string                    `json:"position"`
	Products []model.ResolvedReference `json:"products"`
}

func (e *Engine) Widget(productID string) WidgetView {
	s := e.Registry.Get()
	return WidgetView{
		Enabled:  s.EnableWidget,
		Title:    s.WidgetTitle,
		Position: s.WidgetPosition,
		Products: reconcile.Resolve(productID, e.Store, e.Catalog, s),
	}
}

type UploadStatus string

const (
	StatusSuccess UploadStatus = "success"
	StatusError   UploadStatus = "error"
)

type UploadResult struct {
	ID      uuid.UUID    `json:"id"`
	Status  UploadStatus `json:"status"`
	Errors  []string     `json:"errors"`
	Records int          `json:"records"`
	// Persisted is false when the snapshot was swapped in but could not be saved.
	Persisted bool `json:"persisted"`
}

// Upload runs one CSV through parse, validation, derivation and the duplicate
// policy, then replaces the store. Parse and validation failures are reported in
// the result and leave the store untouched. A non-nil error means either the input
// could not be read or the new snapshot is live but was not persisted
// (*model.PersistenceError).
func (e *Engine) Upload(ctx context.Context, r io.Reader) (UploadResult, error) {
	result := UploadResult{ID: uuid.New(), Errors: []string{}}
	logger := e.logger.With("upload_id", result.ID.String())

	table, err := ingest.Parse(r, ingest.ParseOptions{Delimiter: e.delimiter})
	if err != nil {
		result.Status = StatusError
		result.Errors = []string{"CSV parsing error: " + err.Error()}
		e.Metrics.ObserveUpload(string(StatusError), 0)
		logger.Warn("upload rejected", "error", err)

		var perr *model.ParseError
		if errors.As(err, &perr) {
			return result, nil
		}
		return result, err
	}

	errs := ingest.Validate(table)
	var records []model.CompatibilityRecord
	if len(errs) == 0 {
		var duplicates []dedupe.Duplicate
		records, duplicates = e.Deduplicator.Resolve(ingest.Records(table))
		if e.Deduplicator.Policy == dedupe.Reject && len(duplicates) > 0 {
			errs = dedupe.Violations(duplicates, ingest.RowNumber)
		}
	}

	if len(errs) > 0 {
		result.Status = StatusError
		result.Errors = errs.Messages()
		e.Metrics.ObserveUpload(string(StatusError), 0)
		logger.Info("upload failed validation", "errors", len(errs))
		return result, nil
	}

	err = e.Store.ReplaceAll(ctx, records)
	result.Status = StatusSuccess
	result.Records = len(records)
	result.Persisted = err == nil
	e.Metrics.ObserveUpload(string(StatusSuccess), result.Records)
	logger.Info("upload applied", "records", result.Records, "persisted", result.Persisted)

	return result, err
}

func (e *Engine) ReplaceAll(ctx context.Context, records []model.CompatibilityRecord) error {
	return e.Store.ReplaceAll(ctx, records)
}

func (e *Engine) Records() []model.CompatibilityRecord {
	return e.Store.GetAll()
}

func (e *Engine) Settings() model.Settings {
	return e.Registry.Get()
}

func (e *Engine) UpdateSettings(ctx context.Context, patch model.SettingsPatch) (model.Settings, error) {
	return e.Registry.Update(ctx, patch)
}

func (e *Engine) Products() []model.Product {
	return e.Catalog.Products()
}

// RefreshCatalog pulls the catalog from Provider and returns the new product count.
func (e *Engine) RefreshCatalog(ctx context.Context) (int, error) {
	if e.Provider == nil {
		return 0, ErrNoProvider
	}

	start := time.Now()
	n, err := e.Catalog.Refresh(ctx, e.Provider)
	e.Metrics.ObserveCatalogRefresh(err, time.Since(start))
	if err != nil {
		var perr *model.PersistenceError
		if !errors.As(err, &perr) {
			return 0, fmt.Errorf("refresh catalog: %w", err)
		}
	}

	e.Metrics.SetCatalogSize(n)
	e.logger.Info("catalog refreshed", "products", n)
	return n, err
}

func (e *Engine) ReplaceCatalog(ctx context.Context, products []model.Product) error {
	err := e.Catalog.Replace(ctx, products)
	e.Metrics.SetCatalogSize(e.Catalog.Len())
	return err
}

func (e *Engine) Overview(query string) []reconcile.RecordSummary {
	return reconcile.Overview(e.Store.GetAll(), e.Catalog, query)
}

func (e *Engine) Stats() reconcile.Stats {
	stats := reconcile.Summarize(e.Store.GetAll(), e.Catalog)
	e.Metrics.SetMissingProducts(stats.MissingProducts)
	return stats
}
