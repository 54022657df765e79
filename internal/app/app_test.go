package app

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/compat/internal/config"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "k=v")
}

func TestNew_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.Backend = "sqlite"
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "compat.db")
	logger := NewLogger(&bytes.Buffer{}, "error")

	a, err := New(ctx, cfg, prometheus.NewRegistry(), logger)
	require.NoError(t, err)
	assert.Nil(t, a.Engine.Provider)

	result, err := a.Engine.Upload(ctx, strings.NewReader("Product ID,Compatible Product IDs\nA,B\n"))
	require.NoError(t, err)
	assert.True(t, result.Persisted)
	require.NoError(t, a.Close(ctx))

	reopened, err := New(ctx, cfg, nil, logger)
	require.NoError(t, err)
	defer reopened.Close(ctx)
	assert.Len(t, reopened.Engine.Records(), 1)
}

func TestNew_AttachesShopify(t *testing.T) {
	cfg := config.Default()
	cfg.Shopify.StoreDomain = "shop.myshopify.com"
	cfg.Shopify.AccessToken = "shpat_x"

	a, err := New(context.Background(), cfg, nil, NewLogger(&bytes.Buffer{}, "error"))
	require.NoError(t, err)
	assert.NotNil(t, a.Engine.Provider)
}

func TestNew_BadPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Ingestion.DuplicatePolicy = "oldest"

	_, err := New(context.Background(), cfg, nil, NewLogger(&bytes.Buffer{}, "error"))
	assert.Error(t, err)
}

func TestRefreshLoop_StopsOnCancel(t *testing.T) {
	a, err := New(context.Background(), config.Default(), nil, NewLogger(&bytes.Buffer{}, "error"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.RefreshLoop(ctx, time.Millisecond, NewLogger(&bytes.Buffer{}, "error"))
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresh loop did not stop")
	}
}
