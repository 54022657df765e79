package model

import (
	"fmt"
	"strings"
)

// ParseError reports input text the CSV reader could not recover from.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError is a single row or column problem. Row is the display row
// (header is row 1) or 0 for file-level problems.
type ValidationError struct {
	Row     int    `json:"row,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string { return e.Message }

// ValidationErrors is the batch produced by one validation pass.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	return strings.Join(errs.Messages(), "; ")
}

// Messages returns the human-readable message of every error, in order.
func (errs ValidationErrors) Messages() []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Message
	}
	return out
}

// PersistenceError wraps a failure at the storage boundary.
type PersistenceError struct {
	Op  string // "load" or "save"
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
