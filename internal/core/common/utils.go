package common

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// DecodeJSON unmarshals a stored blob into a type T.
// Leading and trailing whitespace is ignored; an empty blob is an error so callers
// can tell "nothing usable" apart from a zero value.
func DecodeJSON[T any](data []byte) (T, error) {
	var zero T

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return zero, fmt.Errorf("empty JSON document")
	}

	var result T
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return result, nil
}

// EncodeJSON marshals v for storage.
func EncodeJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}
