// Package memtable holds uploaded row collections in named in-memory
// tables and executes a constrained SELECT grammar over them. It stands in
// for a real database when no datasource is attached to the session.
package memtable

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ColumnType is the inferred type of an in-memory column.
type ColumnType string

const (
	TypeText    ColumnType = "text"
	TypeNumber  ColumnType = "number"
	TypeBoolean ColumnType = "boolean"
	TypeDate    ColumnType = "date"
	TypeUnknown ColumnType = "unknown"
)

// Column describes one column of an in-memory table.
type Column struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Nullable bool       `json:"nullable"`
}

// Table is a named, typed row collection.
type Table struct {
	Name    string           `json:"name"`
	Rows    []map[string]any `json:"rows"`
	Columns []Column         `json:"columns"`
}

// Store is a registry of in-memory tables. It is an explicit object, not a
// package-level singleton; the session owning it controls its lifecycle.
// All methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewStore creates an empty table registry.
func NewStore() *Store {
	return &Store{tables: make(map[string]*Table)}
}

// AddTable registers rows under name, inferring the column schema from the
// data. Re-adding an existing name replaces the table wholesale.
func (s *Store) AddTable(name string, rows []map[string]any) {
	if rows == nil {
		rows = []map[string]any{}
	}
	table := &Table{
		Name:    name,
		Rows:    rows,
		Columns: inferColumns(rows),
	}

	s.mu.Lock()
	s.tables[name] = table
	s.mu.Unlock()
}

// RemoveTable drops the named table. Unknown names are a no-op.
func (s *Store) RemoveTable(name string) {
	s.mu.Lock()
	delete(s.tables, name)
	s.mu.Unlock()
}

// Schema returns the inferred columns of the named table.
func (s *Store) Schema(name string) ([]Column, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, ok := s.lookup(name)
	if !ok {
		return nil, s.tableNotFound(name)
	}
	return table.Columns, nil
}

// Schemas returns the columns of every registered table, keyed by name.
func (s *Store) Schemas() map[string][]Column {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schemas := make(map[string][]Column, len(s.tables))
	for name, table := range s.tables {
		schemas[name] = table.Columns
	}
	return schemas
}

// TableData returns the raw rows of the named table.
func (s *Store) TableData(name string) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, ok := s.lookup(name)
	if !ok {
		return nil, s.tableNotFound(name)
	}
	return table.Rows, nil
}

// TableNames returns the registered table names, sorted.
func (s *Store) TableNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tableNamesLocked()
}

// Clear drops every table. Called on session reset.
func (s *Store) Clear() {
	s.mu.Lock()
	s.tables = make(map[string]*Table)
	s.mu.Unlock()
}

// IsEmpty reports whether no tables are registered.
func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables) == 0
}

// lookup resolves a table name case-sensitively first, then
// case-insensitively. Callers hold s.mu.
func (s *Store) lookup(name string) (*Table, bool) {
	if table, ok := s.tables[name]; ok {
		return table, true
	}
	for candidate, table := range s.tables {
		if strings.EqualFold(candidate, name) {
			return table, true
		}
	}
	return nil, false
}

func (s *Store) tableNamesLocked() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) tableNotFound(name string) error {
	return &TableNotFoundError{Table: name, Available: s.tableNamesLocked()}
}

// typeInferenceSampleSize caps how many non-null values per column are
// examined when inferring a column type.
const typeInferenceSampleSize = 100

// typeInferenceMajority is the share of sampled values that must agree on
// a type. Below it, or on a tie, the column defaults to text.
const typeInferenceMajority = 0.8

// inferColumns derives the column list and types from the rows. The union
// of keys across all rows is taken, so ragged uploads still surface every
// column; names are sorted because Go map iteration would otherwise make
// the schema order random per upload.
func inferColumns(rows []map[string]any) []Column {
	var order []string
	seen := make(map[string]bool)
	for _, row := range rows {
		for key := range row {
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
			}
		}
	}
	sort.Strings(order)

	columns := make([]Column, 0, len(order))
	for _, name := range order {
		columns = append(columns, inferColumn(name, rows))
	}
	return columns
}

func inferColumn(name string, rows []map[string]any) Column {
	counts := map[ColumnType]int{}
	sampled := 0
	nullable := false

	for _, row := range rows {
		value, present := row[name]
		if !present || value == nil {
			nullable = true
			continue
		}
		if sampled >= typeInferenceSampleSize {
			continue
		}
		sampled++
		counts[classifyValue(value)]++
	}

	if sampled == 0 {
		return Column{Name: name, Type: TypeUnknown, Nullable: nullable}
	}

	best, bestCount, tie := TypeText, 0, false
	for t, c := range counts {
		switch {
		case c > bestCount:
			best, bestCount, tie = t, c, false
		case c == bestCount:
			tie = true
		}
	}

	if tie || float64(bestCount)/float64(sampled) < typeInferenceMajority {
		best = TypeText
	}

	return Column{Name: name, Type: best, Nullable: nullable}
}

// classifyValue buckets a single sampled value.
func classifyValue(value any) ColumnType {
	switch v := value.(type) {
	case bool:
		return TypeBoolean
	case float64, float32, int, int32, int64:
		return TypeNumber
	case time.Time:
		return TypeDate
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return TypeText
		}
		lower := strings.ToLower(trimmed)
		if lower == "true" || lower == "false" {
			return TypeBoolean
		}
		if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return TypeNumber
		}
		if looksLikeDate(trimmed) {
			return TypeDate
		}
		return TypeText
	}
	return TypeUnknown
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
}

func looksLikeDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
