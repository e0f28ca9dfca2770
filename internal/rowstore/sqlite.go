package rowstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"inyourbones/newsdesk/internal/database"
)

// SQLiteStore implements Store on top of the application database.
// Each table is a row in sheet_tabs (holding the header list as JSON) plus
// one sheet_rows row per data row, ordered by position.
type SQLiteStore struct {
	db *database.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a store backed by an existing database connection.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// ListTables returns the names of all existing tables.
func (s *SQLiteStore) ListTables(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names, "SELECT name FROM sheet_tabs ORDER BY created_at ASC, rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return names, nil
}

// GetTable returns headers and data rows for a table.
func (s *SQLiteStore) GetTable(ctx context.Context, name string) ([]string, [][]string, error) {
	var headersJSON string
	err := s.db.GetContext(ctx, &headersJSON, "SELECT headers FROM sheet_tabs WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, &ErrTableNotFound{Name: name}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load table %q: %w", name, err)
	}

	var headers []string
	if err := json.Unmarshal([]byte(headersJSON), &headers); err != nil {
		return nil, nil, fmt.Errorf("corrupt headers for table %q: %w", name, err)
	}

	var cellBlobs []string
	err = s.db.SelectContext(ctx, &cellBlobs,
		"SELECT cells FROM sheet_rows WHERE tab = ? ORDER BY pos ASC", name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load rows for table %q: %w", name, err)
	}

	rows := make([][]string, 0, len(cellBlobs))
	for i, blob := range cellBlobs {
		var cells []string
		if err := json.Unmarshal([]byte(blob), &cells); err != nil {
			return nil, nil, fmt.Errorf("corrupt row %d in table %q: %w", i, name, err)
		}
		rows = append(rows, cells)
	}

	return headers, rows, nil
}

// EnsureTable creates the table with default headers if it does not exist.
func (s *SQLiteStore) EnsureTable(ctx context.Context, name string, defaultHeaders []string) error {
	headersJSON, err := json.Marshal(defaultHeaders)
	if err != nil {
		return fmt.Errorf("failed to marshal headers: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO sheet_tabs (name, headers) VALUES (?, ?) ON CONFLICT(name) DO NOTHING",
		name, string(headersJSON))
	if err != nil {
		return fmt.Errorf("failed to ensure table %q: %w", name, err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		log.Info().Str("table", name).Msg("Created table")
	}
	return nil
}

// ReplaceTable swaps in the full new content of a table in one transaction.
// A failed replace leaves the prior state intact.
func (s *SQLiteStore) ReplaceTable(ctx context.Context, name string, headers []string, rows [][]string) error {
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return fmt.Errorf("failed to marshal headers: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sheet_tabs (name, headers, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET headers = excluded.headers, updated_at = CURRENT_TIMESTAMP`,
		name, string(headersJSON))
	if err != nil {
		return fmt.Errorf("failed to update headers for table %q: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM sheet_rows WHERE tab = ?", name); err != nil {
		return fmt.Errorf("failed to clear table %q: %w", name, err)
	}

	stmt, err := tx.PreparexContext(ctx, "INSERT INTO sheet_rows (tab, pos, cells) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer stmt.Close()

	for pos, cells := range rows {
		blob, err := json.Marshal(cells)
		if err != nil {
			return fmt.Errorf("failed to marshal row %d: %w", pos, err)
		}
		if _, err := stmt.ExecContext(ctx, name, pos, string(blob)); err != nil {
			return fmt.Errorf("failed to insert row %d into table %q: %w", pos, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replace of table %q: %w", name, err)
	}

	log.Debug().
		Str("table", name).
		Int("rows", len(rows)).
		Int("columns", len(headers)).
		Msg("Replaced table")
	return nil
}

// UpdateCell sets one cell of one data row in place.
func (s *SQLiteStore) UpdateCell(ctx context.Context, name string, row, col int, value string) error {
	var blob string
	err := s.db.GetContext(ctx, &blob,
		"SELECT cells FROM sheet_rows WHERE tab = ? AND pos = ?", name, row)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("row %d not found in table %q", row, name)
	}
	if err != nil {
		return fmt.Errorf("failed to load row %d of table %q: %w", row, name, err)
	}

	var cells []string
	if err := json.Unmarshal([]byte(blob), &cells); err != nil {
		return fmt.Errorf("corrupt row %d in table %q: %w", row, name, err)
	}

	if col < 0 {
		return fmt.Errorf("invalid column index %d", col)
	}
	for len(cells) <= col {
		cells = append(cells, "")
	}
	cells[col] = value

	updated, err := json.Marshal(cells)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE sheet_rows SET cells = ? WHERE tab = ? AND pos = ?", string(updated), name, row)
	if err != nil {
		return fmt.Errorf("failed to update cell (%d,%d) in table %q: %w", row, col, name, err)
	}
	return nil
}
