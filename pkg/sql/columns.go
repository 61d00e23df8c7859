package sql

import (
	"regexp"
	"strings"
)

// SelectColumn is one entry of a statement's SELECT list.
type SelectColumn struct {
	Name string // output name: alias if present, else derived from the expression
	Expr string // raw expression text
}

// ParseSelectColumns extracts the SELECT-list entries of a statement.
// Handles simple columns, table-qualified columns, function calls, and
// explicit or implicit aliases. Returns nil for SELECT * and for
// statements without a SELECT list; callers needing full fidelity should
// not rely on this for nested subqueries in the list.
func ParseSelectColumns(sqlQuery string) []SelectColumn {
	trimmed := strings.TrimSpace(sqlQuery)
	lower := strings.ToLower(trimmed)

	start := strings.Index(lower, "select")
	if start == -1 {
		return nil
	}
	start += len("select")

	end := len(trimmed)
	for _, kw := range []string{" from ", " where ", " group ", " order ", " limit ", " union ", ";"} {
		if idx := strings.Index(lower[start:], kw); idx != -1 && start+idx < end {
			end = start + idx
		}
	}

	list := strings.TrimSpace(trimmed[start:end])
	if list == "" || strings.HasPrefix(list, "*") {
		return nil
	}

	var columns []SelectColumn
	for _, expr := range splitSelectList(list) {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		columns = append(columns, SelectColumn{Name: columnName(expr), Expr: expr})
	}
	return columns
}

// splitSelectList splits a SELECT list on depth-0 commas so function
// arguments stay together.
func splitSelectList(list string) []string {
	var parts []string
	var current strings.Builder
	depth := 0

	for _, ch := range list {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, current.String())
				current.Reset()
				continue
			}
		}
		current.WriteRune(ch)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

var (
	asAliasRegex  = regexp.MustCompile(`(?i)\s+as\s+(\w+)\s*$`)
	funcNameRegex = regexp.MustCompile(`^(\w+)\s*\(`)
	nonWordRegex  = regexp.MustCompile(`[^\w]`)
)

var selectListKeywords = map[string]bool{
	"from": true, "where": true, "group": true, "order": true,
	"limit": true, "and": true, "or": true, "as": true,
}

// columnName resolves the output name of one SELECT-list expression:
// explicit AS alias first, then a trailing implicit alias, otherwise a
// name derived from the expression itself.
func columnName(expr string) string {
	if m := asAliasRegex.FindStringSubmatch(expr); m != nil {
		return strings.ToLower(m[1])
	}

	// Implicit alias ("SUM(amount) total"): only when parens balance and
	// the trailing token is a bare word, so "COALESCE(x, 0)" does not
	// yield "0)".
	if strings.Count(expr, "(") == strings.Count(expr, ")") {
		if fields := strings.Fields(expr); len(fields) > 1 {
			last := fields[len(fields)-1]
			if !strings.ContainsAny(last, "()") && !selectListKeywords[strings.ToLower(last)] {
				return strings.ToLower(last)
			}
		}
	}

	return derivedColumnName(expr)
}

func derivedColumnName(expr string) string {
	if dot := strings.LastIndex(expr, "."); dot != -1 {
		expr = expr[dot+1:]
	}
	if m := funcNameRegex.FindStringSubmatch(expr); m != nil {
		return strings.ToLower(m[1])
	}
	if strings.HasPrefix(strings.ToLower(expr), "case") {
		return "case_result"
	}
	name := strings.TrimSpace(strings.Trim(expr, "`\"[]"))
	return strings.ToLower(nonWordRegex.ReplaceAllString(name, ""))
}
