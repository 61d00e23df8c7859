// Package datasource defines the narrow execution interface the query
// engine hands its rewritten SQL to, plus the adapter implementations for
// the supported databases.
package datasource

import "context"

// MaxQueryLimit is the hard cap on rows returned by Query methods. This
// protects against unbounded queries that could crash the server.
const MaxQueryLimit = 1000

// QueryExecutor executes read queries against a datasource.
//
// The filter-injection engine's output (sql, params) is handed directly to
// QueryWithParams; implementations must accept positional parameters in
// $1, $2, ... form, translating to their native placeholder syntax where
// needed.
//
// Each implementation owns its connection and must be closed when done.
type QueryExecutor interface {
	// Query runs a SELECT statement and returns bounded results. The query
	// is always wrapped with a dialect-specific limit:
	//   - PostgreSQL: SELECT * FROM (query) AS _limited LIMIT n
	//   - SQL Server: SELECT TOP (n) * FROM (query) AS _limited
	//
	// limit <= 0 or limit > MaxQueryLimit uses MaxQueryLimit.
	Query(ctx context.Context, sqlQuery string, limit int) (*QueryExecutionResult, error)

	// QueryWithParams runs a parameterized SELECT with bounded results.
	// Same wrapping and capping as Query.
	QueryWithParams(ctx context.Context, sqlQuery string, params []any, limit int) (*QueryExecutionResult, error)

	// QuoteIdentifier safely quotes a SQL identifier using the dialect's
	// quoting rules.
	QuoteIdentifier(name string) string

	// Close releases any resources held by the executor.
	Close() error
}

// ColumnInfo describes a result column with database-agnostic type
// information.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"` // Database type name (e.g., "TEXT", "INT4", "VARCHAR")
}

// QueryExecutionResult holds the results from executing a query.
type QueryExecutionResult struct {
	Columns  []ColumnInfo     `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// CapLimit normalizes a caller-supplied limit to the allowed range.
func CapLimit(limit int) int {
	if limit <= 0 || limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}
