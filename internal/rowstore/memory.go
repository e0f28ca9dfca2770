package rowstore

import (
	"context"
	"fmt"
	"sort"
)

// MemStore is an in-memory Store used in tests and dry runs.
type MemStore struct {
	tables map[string]*memTable
}

type memTable struct {
	headers []string
	rows    [][]string
	order   int
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string]*memTable)}
}

// ListTables returns table names in creation order.
func (m *MemStore) ListTables(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return m.tables[names[i]].order < m.tables[names[j]].order
	})
	return names, nil
}

// GetTable returns copies of the headers and rows of a table.
func (m *MemStore) GetTable(_ context.Context, name string) ([]string, [][]string, error) {
	t, ok := m.tables[name]
	if !ok {
		return nil, nil, &ErrTableNotFound{Name: name}
	}
	headers := append([]string(nil), t.headers...)
	rows := make([][]string, len(t.rows))
	for i, r := range t.rows {
		rows[i] = append([]string(nil), r...)
	}
	return headers, rows, nil
}

// EnsureTable creates the table if missing.
func (m *MemStore) EnsureTable(_ context.Context, name string, defaultHeaders []string) error {
	if _, ok := m.tables[name]; ok {
		return nil
	}
	m.tables[name] = &memTable{
		headers: append([]string(nil), defaultHeaders...),
		order:   len(m.tables),
	}
	return nil
}

// ReplaceTable swaps in the full new content of a table.
func (m *MemStore) ReplaceTable(_ context.Context, name string, headers []string, rows [][]string) error {
	t, ok := m.tables[name]
	if !ok {
		t = &memTable{order: len(m.tables)}
		m.tables[name] = t
	}
	t.headers = append([]string(nil), headers...)
	t.rows = make([][]string, len(rows))
	for i, r := range rows {
		t.rows[i] = append([]string(nil), r...)
	}
	return nil
}

// UpdateCell sets one cell of one data row in place, padding the row if the
// column lies beyond its current length.
func (m *MemStore) UpdateCell(_ context.Context, name string, row, col int, value string) error {
	t, ok := m.tables[name]
	if !ok {
		return &ErrTableNotFound{Name: name}
	}
	if row < 0 || row >= len(t.rows) {
		return fmt.Errorf("row %d not found in table %q", row, name)
	}
	if col < 0 {
		return fmt.Errorf("invalid column index %d", col)
	}
	for len(t.rows[row]) <= col {
		t.rows[row] = append(t.rows[row], "")
	}
	t.rows[row][col] = value
	return nil
}
