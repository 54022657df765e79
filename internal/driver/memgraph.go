package driver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type MemgraphDriver struct {
	Driver neo4j.DriverWithContext
	logger *slog.Logger
}

func NewMemgraphDriver(ctx context.Context, uri, username, password string, logger *slog.Logger) (*MemgraphDriver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}

	logger.Info("connected to memgraph", "uri", uri)
	return &MemgraphDriver{Driver: driver, logger: logger}, nil
}

func (d *MemgraphDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *MemgraphDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

func (d *MemgraphDriver) BuildIndices(ctx context.Context) error {
	if _, err := d.ExecuteQuery(ctx, CreateBlobIndexQuery, nil); err != nil {
		// Memgraph errors when the index already exists.
		d.logger.Warn("failed to create index", "query", CreateBlobIndexQuery, "error", err)
	}
	return nil
}

// GraphPersistence stores each blob as a (:Blob {key, value, updated_at}) node.
type GraphPersistence struct {
	driver GraphDriver
}

func NewGraphPersistence(ctx context.Context, d GraphDriver) (*GraphPersistence, error) {
	if err := d.BuildIndices(ctx); err != nil {
		return nil, fmt.Errorf("build indices: %w", err)
	}
	return &GraphPersistence{driver: d}, nil
}

func (g *GraphPersistence) Load(ctx context.Context, key string) ([]byte, bool, error) {
	result, err := g.driver.ExecuteQuery(ctx, GetBlobQuery, map[string]interface{}{"key": key})
	if err != nil {
		return nil, false, fmt.Errorf("read blob %s: %w", key, err)
	}
	if len(result.Records) == 0 {
		return nil, false, nil
	}

	raw, ok := result.Records[0].Get("value")
	if !ok || raw == nil {
		return nil, false, nil
	}
	value, ok := raw.(string)
	if !ok {
		return nil, false, fmt.Errorf("read blob %s: unexpected value type %T", key, raw)
	}
	return []byte(value), true, nil
}

func (g *GraphPersistence) Save(ctx context.Context, key string, value []byte) error {
	params := map[string]interface{}{
		"key":        key,
		"value":      string(value),
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if _, err := g.driver.ExecuteQuery(ctx, SaveBlobQuery, params); err != nil {
		return fmt.Errorf("write blob %s: %w", key, err)
	}
	return nil
}

func (g *GraphPersistence) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}
