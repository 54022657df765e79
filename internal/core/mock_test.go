package core

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/agenthands/compat/internal/core/model"
	"github.com/agenthands/compat/internal/driver"
)

// MockPersistence is an in-memory backend whose saves can be made to fail.
type MockPersistence struct {
	*driver.MemoryPersistence
	SaveErr   error
	SavedKeys []string
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{MemoryPersistence: driver.NewMemoryPersistence()}
}

func (m *MockPersistence) Save(ctx context.Context, key string, value []byte) error {
	m.SavedKeys = append(m.SavedKeys, key)
	if m.SaveErr != nil {
		return m.SaveErr
	}
	return m.MemoryPersistence.Save(ctx, key, value)
}

type MockProvider struct {
	Products []model.Product
	Err      error
}

func (m *MockProvider) FetchProducts(ctx context.Context) ([]model.Product, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Products, nil
}

var errDiskFull = errors.New("disk full")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
