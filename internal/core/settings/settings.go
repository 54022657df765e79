// Package settings holds the display settings for compatibility answers.
package settings

import (
	"context"
	"log/slog"
	"sync"

	"github.com/agenthands/compat/internal/core/common"
	"github.com/agenthands/compat/internal/core/model"
	"github.com/agenthands/compat/internal/driver"
)

type Registry struct {
	writeMu sync.Mutex

	mu      sync.RWMutex
	current model.Settings

	persistence driver.Persistence
	logger      *slog.Logger
}

func New(p driver.Persistence, logger *slog.Logger) *Registry {
	return &Registry{
		current:     model.DefaultSettings(),
		persistence: p,
		logger:      logger,
	}
}

// Load restores saved settings. Fields absent from the stored blob keep their
// defaults; an unreadable blob yields the defaults.
func Load(ctx context.Context, p driver.Persistence, logger *slog.Logger) *Registry {
	r := New(p, logger)

	data, found, err := p.Load(ctx, driver.KeySettings)
	if err != nil {
		logger.Warn("failed to load settings, using defaults", "error", err)
		return r
	}
	if !found {
		return r
	}

	stored, err := common.DecodeJSON[model.SettingsPatch](data)
	if err != nil {
		logger.Warn("stored settings are invalid, using defaults", "error", err)
		return r
	}

	r.current = stored.Apply(model.DefaultSettings())
	return r
}

func (r *Registry) Get() model.Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Update merges patch over the current settings, persists the result and
// returns it. The merge is applied in memory even when the save fails.
// Values are not checked against the known widget positions.
func (r *Registry) Update(ctx context.Context, patch model.SettingsPatch) (model.Settings, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	merged := patch.Apply(r.current)
	r.current = merged
	r.mu.Unlock()

	data, err := common.EncodeJSON(merged)
	if err != nil {
		return merged, &model.PersistenceError{Op: "save", Key: driver.KeySettings, Err: err}
	}
	if err := r.persistence.Save(ctx, driver.KeySettings, data); err != nil {
		r.logger.Error("failed to persist settings", "error", err)
		return merged, &model.PersistenceError{Op: "save", Key: driver.KeySettings, Err: err}
	}
	return merged, nil
}
