package memtable

import (
	"fmt"
	"strings"

	"github.com/sightline-ai/sightline-engine/pkg/apperrors"
)

// TableNotFoundError reports a query against an unregistered table. The
// message lists the available tables so the AI agent can self-correct on
// the next attempt.
type TableNotFoundError struct {
	Table     string
	Available []string
}

func (e *TableNotFoundError) Error() string {
	available := "none"
	if len(e.Available) > 0 {
		available = strings.Join(e.Available, ", ")
	}
	return fmt.Sprintf("table %q not found; available tables: %s", e.Table, available)
}

func (e *TableNotFoundError) Unwrap() error {
	return apperrors.ErrNotFound
}

// UnsupportedSyntaxError reports a statement outside the accepted grammar.
// The message documents the accepted format, again for agent self-correction.
type UnsupportedSyntaxError struct {
	Query string
}

func (e *UnsupportedSyntaxError) Error() string {
	return fmt.Sprintf(
		"unsupported SQL syntax: %q; accepted format is "+
			"SELECT <columns> FROM <table> [WHERE <cond> [AND <cond>]*] "+
			"[GROUP BY <col>] [ORDER BY <col> [ASC|DESC]] [LIMIT <n>] "+
			"with aggregate functions COUNT, SUM, AVG, MIN, MAX",
		e.Query,
	)
}
