package driver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Keys under which the three snapshots are stored.
const (
	KeyCompatibilityData = "compatibility-data"
	KeyCatalog           = "shopify-products"
	KeySettings          = "compatibility-settings"
)

// Persistence stores opaque blobs by key. Load reports found=false, not an
// error, when nothing was ever saved under key.
type Persistence interface {
	Load(ctx context.Context, key string) (value []byte, found bool, err error)
	Save(ctx context.Context, key string, value []byte) error
	Close(ctx context.Context) error
}

// GraphDriver is the Cypher surface the graph-backed persistence runs on.
type GraphDriver interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error)
	BuildIndices(ctx context.Context) error
	Close(ctx context.Context) error
}
