// Package rowstore abstracts the tabular system of record the pipeline
// reconciles against. Tables are addressed by a human-readable period label
// ("June 2025", "June 2025 (selects)"); every table is a header row plus
// ordered data rows of strings. Writers replace whole tables; there are no
// row-level transactions.
package rowstore

import (
	"context"
	"fmt"
	"time"
)

// Store is the adapter over the tabular persistent store.
type Store interface {
	// ListTables returns the names of all existing tables.
	ListTables(ctx context.Context) ([]string, error)

	// GetTable returns the header row and data rows of a table.
	// A missing table is an error; use EnsureTable first.
	GetTable(ctx context.Context, name string) (headers []string, rows [][]string, err error)

	// EnsureTable creates the table with the given headers if it does not
	// exist yet. An existing table is left untouched.
	EnsureTable(ctx context.Context, name string, defaultHeaders []string) error

	// ReplaceTable atomically replaces the entire content of a table,
	// headers included. The table is created if missing.
	ReplaceTable(ctx context.Context, name string, headers []string, rows [][]string) error

	// UpdateCell sets a single cell, addressed by 0-based data-row index
	// (the header row is not addressable) and 0-based column index.
	UpdateCell(ctx context.Context, name string, row, col int, value string) error
}

// ErrTableNotFound reports an access to a table that does not exist.
type ErrTableNotFound struct {
	Name string
}

func (e *ErrTableNotFound) Error() string {
	return fmt.Sprintf("table %q not found", e.Name)
}

// IngestTableName returns the monthly ingest table label for a date,
// e.g. "June 2025".
func IngestTableName(t time.Time) string {
	return t.Format("January 2006")
}

// SelectsTableName returns the curated table label for a date,
// e.g. "June 2025 (selects)".
func SelectsTableName(t time.Time) string {
	return t.Format("January 2006") + " (selects)"
}
