package driver

import (
	"context"
	"errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// MockGraphDriver keeps Blob nodes in a map and answers the two blob queries.
type MockGraphDriver struct {
	Nodes        map[string]string
	Queries      []string
	IndicesBuilt bool
	Fail         bool
	Closed       bool
}

func NewMockGraphDriver() *MockGraphDriver {
	return &MockGraphDriver{Nodes: make(map[string]string)}
}

func (m *MockGraphDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.Queries = append(m.Queries, query)
	if m.Fail {
		return neo4j.EagerResult{}, errors.New("connection refused")
	}

	key, _ := params["key"].(string)
	switch query {
	case SaveBlobQuery:
		m.Nodes[key] = params["value"].(string)
		return neo4j.EagerResult{
			Keys:    []string{"key"},
			Records: []*neo4j.Record{{Keys: []string{"key"}, Values: []any{key}}},
		}, nil
	case GetBlobQuery:
		value, ok := m.Nodes[key]
		if !ok {
			return neo4j.EagerResult{Keys: []string{"value"}}, nil
		}
		return neo4j.EagerResult{
			Keys:    []string{"value"},
			Records: []*neo4j.Record{{Keys: []string{"value"}, Values: []any{value}}},
		}, nil
	}
	return neo4j.EagerResult{}, nil
}

func (m *MockGraphDriver) BuildIndices(ctx context.Context) error {
	m.IndicesBuilt = true
	return nil
}

func (m *MockGraphDriver) Close(ctx context.Context) error {
	m.Closed = true
	return nil
}
