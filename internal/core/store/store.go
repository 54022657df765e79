// Package store holds the active compatibility snapshot.
package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/agenthands/compat/internal/core/common"
	"github.com/agenthands/compat/internal/core/dedupe"
	"github.com/agenthands/compat/internal/core/model"
	"github.com/agenthands/compat/internal/driver"
)

// Store is the in-memory compatibility snapshot backed by a Persistence.
// Reads never touch the backend.
type Store struct {
	// writeMu serialises ReplaceAll so the persisted blob matches the last snapshot swapped in.
	writeMu sync.Mutex

	mu      sync.RWMutex
	records []model.CompatibilityRecord
	index   map[string]int

	persistence driver.Persistence
	logger      *slog.Logger
}

// New returns an empty store that saves to p.
func New(p driver.Persistence, logger *slog.Logger) *Store {
	return &Store{
		records:     []model.CompatibilityRecord{},
		index:       map[string]int{},
		persistence: p,
		logger:      logger,
	}
}

// Load restores the last saved snapshot. A missing, unreadable or undecodable
// blob yields an empty store; the cause is logged and never returned.
func Load(ctx context.Context, p driver.Persistence, logger *slog.Logger) *Store {
	s := New(p, logger)

	data, found, err := p.Load(ctx, driver.KeyCompatibilityData)
	if err != nil {
		logger.Warn("failed to load compatibility data, starting empty", "error", err)
		return s
	}
	if !found {
		return s
	}

	records, err := common.DecodeJSON[[]model.CompatibilityRecord](data)
	if err != nil {
		logger.Warn("stored compatibility data is invalid, starting empty", "error", err)
		return s
	}

	s.swap(records)
	logger.Debug("compatibility data loaded", "records", len(s.records))
	return s
}

// ReplaceAll swaps in records as the whole snapshot and persists it. Repeated
// product ids collapse last-write-wins. When the save fails the new snapshot is
// still served and a *model.PersistenceError is returned.
func (s *Store) ReplaceAll(ctx context.Context, records []model.CompatibilityRecord) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snapshot := s.swap(records)

	data, err := common.EncodeJSON(snapshot)
	if err != nil {
		return &model.PersistenceError{Op: "save", Key: driver.KeyCompatibilityData, Err: err}
	}
	if err := s.persistence.Save(ctx, driver.KeyCompatibilityData, data); err != nil {
		s.logger.Error("failed to persist compatibility data", "error", err)
		return &model.PersistenceError{Op: "save", Key: driver.KeyCompatibilityData, Err: err}
	}
	return nil
}

// swap installs records and returns the installed slice. Callers must not modify it.
func (s *Store) swap(records []model.CompatibilityRecord) []model.CompatibilityRecord {
	collapsed, _ := dedupe.Apply(dedupe.LastWriteWins, records)

	index := make(map[string]int, len(collapsed))
	for i, r := range collapsed {
		index[r.ProductID] = i
	}

	s.mu.Lock()
	s.records = collapsed
	s.index = index
	s.mu.Unlock()

	return collapsed
}

// GetAll returns a copy of the snapshot in stored order.
func (s *Store) GetAll() []model.CompatibilityRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CloneRecords(s.records)
}

// FindByProductID returns a copy of the record for id.
func (s *Store) FindByProductID(id string) (model.CompatibilityRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return model.CompatibilityRecord{}, false
	}
	return s.records[i].Clone(), true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
