// Package sqlfilter builds parameterized WHERE conditions from structured
// filter metadata and splices them into caller-supplied SELECT statements.
//
// This is the preferred filtering path: values only ever travel as
// positional bind parameters ($1, $2, ...), never as SQL text. The legacy
// textual path lives in pkg/sql.
package sqlfilter

import (
	"fmt"

	sqlutil "github.com/sightline-ai/sightline-engine/pkg/sql"
)

// Operator is a SQL comparison operator a filter can apply.
type Operator string

const (
	OpEq      Operator = "eq"
	OpNeq     Operator = "neq"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpIn      Operator = "in"
	OpNotIn   Operator = "not_in"
	OpLike    Operator = "like"
	OpILike   Operator = "ilike"
	OpBetween Operator = "between"
)

// ValueType governs how a filter value is cast before binding. It never
// affects SQL quoting; values are bind parameters, not text.
type ValueType string

const (
	TypeDate    ValueType = "date"
	TypeText    ValueType = "text"
	TypeNumber  ValueType = "number"
	TypeBoolean ValueType = "boolean"
)

// Meta describes how one user-facing filter maps onto a SQL condition.
type Meta struct {
	// ID keys the filter's value in a Values map. Unique per filter set.
	ID string `json:"id"`
	// Column is the filtered column name. Must satisfy the identifier
	// validity pattern; anything else is rejected, not quoted.
	Column string `json:"column"`
	// Operator selects the comparison.
	Operator Operator `json:"operator"`
	// Type selects value casting.
	Type ValueType `json:"type"`
	// Table optionally qualifies Column with a table or alias name.
	Table string `json:"table,omitempty"`
}

// Values maps filter IDs to their current values: a scalar, a two-element
// slice for between, or a slice for in/not_in. Missing, nil, empty-string,
// and empty-slice values cause the filter to be skipped entirely.
type Values map[string]any

// Result is the outcome of injecting filters into a statement.
type Result struct {
	// SQL is the rewritten statement with $N placeholders.
	SQL string `json:"sql"`
	// Params holds the bind values in placeholder order. Its length always
	// equals the number of $N placeholders emitted into SQL.
	Params []any `json:"params"`
	// WhereClause is the joined condition text, for diagnostics only.
	WhereClause string `json:"where_clause"`
}

// columnRef renders the SQL column reference for the filter.
func (m Meta) columnRef() string {
	if m.Table != "" {
		return m.Table + "." + m.Column
	}
	return m.Column
}

// DateRangeMeta returns the conventional gte/lte filter pair for a date
// column, keyed date_from and date_to. Dashboards wire their date-range
// picker to these two IDs.
func DateRangeMeta(column, table string) []Meta {
	return []Meta{
		{ID: "date_from", Column: column, Operator: OpGte, Type: TypeDate, Table: table},
		{ID: "date_to", Column: column, Operator: OpLte, Type: TypeDate, Table: table},
	}
}

// EqualityMeta returns a single eq filter. An empty valueType defaults
// to text.
func EqualityMeta(id, column string, valueType ValueType, table string) Meta {
	if valueType == "" {
		valueType = TypeText
	}
	return Meta{ID: id, Column: column, Operator: OpEq, Type: valueType, Table: table}
}

// validColumnName defends against column-name injection; sharing the
// identifier pattern with the placeholder engine keeps the two paths in
// agreement about what a safe reference looks like.
func validColumnName(name string) bool {
	return sqlutil.ValidIdentifier(name)
}

var validOperators = map[Operator]bool{
	OpEq: true, OpNeq: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpIn: true, OpNotIn: true, OpLike: true, OpILike: true, OpBetween: true,
}

var validTypes = map[ValueType]bool{
	TypeDate: true, TypeText: true, TypeNumber: true, TypeBoolean: true,
}

// ValidateMeta checks a filter set for duplicate IDs, missing fields, and
// unsafe column names. All violations are returned, not just the first, so
// the caller can report everything at once.
func ValidateMeta(metas []Meta) []string {
	var problems []string
	seen := make(map[string]bool)

	for i, m := range metas {
		if m.ID == "" {
			problems = append(problems, fmt.Sprintf("filter %d: missing id", i))
		} else if seen[m.ID] {
			problems = append(problems, fmt.Sprintf("filter %d: duplicate id %q", i, m.ID))
		} else {
			seen[m.ID] = true
		}

		if m.Column == "" {
			problems = append(problems, fmt.Sprintf("filter %d: missing column", i))
		} else if !validColumnName(m.Column) {
			problems = append(problems, fmt.Sprintf("filter %d: invalid column name %q", i, m.Column))
		}

		if m.Operator == "" {
			problems = append(problems, fmt.Sprintf("filter %d: missing operator", i))
		} else if !validOperators[m.Operator] {
			problems = append(problems, fmt.Sprintf("filter %d: unknown operator %q", i, m.Operator))
		}

		if m.Type == "" {
			problems = append(problems, fmt.Sprintf("filter %d: missing type", i))
		} else if !validTypes[m.Type] {
			problems = append(problems, fmt.Sprintf("filter %d: unknown type %q", i, m.Type))
		}
	}

	return problems
}
