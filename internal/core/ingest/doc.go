// Package ingest turns an uploaded CSV into compatibility records.
//
// The pipeline is Parse → Validate → Records. Parse only fails on text the CSV
// reader cannot recover from; rows with missing or empty cells parse fine and are
// reported by Validate, which accumulates every problem in one pass. Records assumes
// a table that validated cleanly.
package ingest
