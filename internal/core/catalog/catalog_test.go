package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/compat/internal/core/model"
	"github.com/agenthands/compat/internal/driver"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockProvider struct {
	Products []model.Product
	Err      error
	Calls    int
}

func (m *MockProvider) FetchProducts(ctx context.Context) ([]model.Product, error) {
	m.Calls++
	return m.Products, m.Err
}

type failingSave struct {
	*driver.MemoryPersistence
}

func (failingSave) Save(context.Context, string, []byte) error {
	return errors.New("read-only filesystem")
}

func TestLoad_AbsentAndCorrupt(t *testing.T) {
	ctx := context.Background()
	p := driver.NewMemoryPersistence()

	assert.Equal(t, 0, Load(ctx, p, testLogger()).Len())

	require.NoError(t, p.Save(ctx, driver.KeyCatalog, []byte(`{"id":"not-an-array"}`)))
	assert.Equal(t, 0, Load(ctx, p, testLogger()).Len())
}

func TestReplaceAndReload(t *testing.T) {
	ctx := context.Background()
	p := driver.NewMemoryPersistence()
	c := Load(ctx, p, testLogger())

	products := []model.Product{
		{ID: "B", Title: "Bracket", Price: "4.00", Handle: "bracket"},
		{ID: "C", Title: "Cable"},
	}
	require.NoError(t, c.Replace(ctx, products))

	got, ok := c.Lookup("B")
	require.True(t, ok)
	assert.Equal(t, "Bracket", got.Title)

	_, ok = c.Lookup("Z")
	assert.False(t, ok)

	reloaded := Load(ctx, p, testLogger())
	assert.Equal(t, products, reloaded.Products())
}

func TestReplace_DuplicateIDs(t *testing.T) {
	c := New(driver.NewMemoryPersistence(), testLogger())

	require.NoError(t, c.Replace(context.Background(), []model.Product{
		{ID: "A", Title: "old"},
		{ID: "B"},
		{ID: "A", Title: "new"},
	}))

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "new", c.Products()[0].Title)
}

func TestReplace_SaveFailure(t *testing.T) {
	c := New(failingSave{driver.NewMemoryPersistence()}, testLogger())

	err := c.Replace(context.Background(), []model.Product{{ID: "A"}})

	var perr *model.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, driver.KeyCatalog, perr.Key)
	_, ok := c.Lookup("A")
	assert.True(t, ok)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	c := New(driver.NewMemoryPersistence(), testLogger())
	provider := &MockProvider{Products: []model.Product{{ID: "1"}, {ID: "2"}}}

	n, err := c.Refresh(ctx, provider)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, provider.Calls)
}

func TestRefresh_FetchFailureKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	c := New(driver.NewMemoryPersistence(), testLogger())
	require.NoError(t, c.Replace(ctx, []model.Product{{ID: "1"}}))

	_, err := c.Refresh(ctx, &MockProvider{Err: errors.New("503")})
	assert.ErrorContains(t, err, "fetch catalog")
	assert.Equal(t, 1, c.Len())
}

func TestProducts_ReturnsCopy(t *testing.T) {
	c := New(driver.NewMemoryPersistence(), testLogger())
	require.NoError(t, c.Replace(context.Background(), []model.Product{{ID: "1", Title: "a"}}))

	products := c.Products()
	products[0].Title = "changed"

	got, _ := c.Lookup("1")
	assert.Equal(t, "a", got.Title)
}
