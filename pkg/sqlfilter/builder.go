package sqlfilter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	sqlutil "github.com/sightline-ai/sightline-engine/pkg/sql"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// BuildFilteredQuery splices the conditions described by metas into baseSQL
// at the correct syntactic position and returns the rewritten statement
// with its ordered bind parameters.
//
// Filters whose value is absent, nil, an empty string, or an empty list are
// skipped: no fragment, no parameter. If every filter is skipped the input
// is returned unchanged (modulo trailing-semicolon trim) with empty Params.
//
// The splice point is found by a depth-0 keyword scan, so an existing WHERE
// inside a subquery is ignored and trailing GROUP BY / ORDER BY / LIMIT
// clauses stay behind the injected conditions. This is what lets a date
// filter apply to an aggregate query whose SELECT list never mentions the
// date column; wrapping the whole statement in a subquery cannot do that.
//
// Post-condition: len(Result.Params) equals the number of $N placeholders
// emitted into Result.SQL.
func BuildFilteredQuery(baseSQL string, metas []Meta, values Values) Result {
	baseSQL = sqlutil.StripTrailingSemicolon(strings.TrimSpace(baseSQL))

	var fragments []string
	var params []any

	for _, m := range metas {
		value, ok := values[m.ID]
		if !ok || isSkippable(value) {
			continue
		}
		if !validColumnName(m.Column) || (m.Table != "" && !validColumnName(m.Table)) {
			continue
		}

		fragment, fragmentParams, ok := renderCondition(m, value, len(params))
		if !ok {
			continue
		}
		fragments = append(fragments, fragment)
		params = append(params, fragmentParams...)
	}

	if len(fragments) == 0 {
		return Result{SQL: baseSQL, Params: []any{}}
	}

	whereClause := strings.Join(fragments, " AND ")

	pos, hasWhere := findInjectionPoint(baseSQL)
	insertText := " WHERE "
	if hasWhere {
		insertText = " AND "
	}

	sql := baseSQL[:pos] + insertText + whereClause + " " + baseSQL[pos:]
	sql = strings.TrimSpace(whitespaceRegex.ReplaceAllString(sql, " "))

	return Result{SQL: sql, Params: params, WhereClause: whereClause}
}

// isSkippable reports whether a filter value means "filter unset".
func isSkippable(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

// renderCondition renders one SQL fragment for a surviving filter,
// numbering placeholders from paramOffset+1. Returns ok=false when the
// value shape does not fit the operator (e.g. a scalar for between).
func renderCondition(m Meta, value any, paramOffset int) (string, []any, bool) {
	col := m.columnRef()
	next := func(i int) string { return fmt.Sprintf("$%d", paramOffset+i+1) }

	switch m.Operator {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpLike, OpILike:
		return fmt.Sprintf("%s %s %s", col, sqlOperator(m.Operator), next(0)),
			[]any{castValue(m.Type, value)}, true

	case OpBetween:
		pair := asList(value)
		if len(pair) != 2 {
			return "", nil, false
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", col, next(0), next(1)),
			[]any{castValue(m.Type, pair[0]), castValue(m.Type, pair[1])}, true

	case OpIn, OpNotIn:
		list := asList(value)
		if len(list) == 0 {
			return "", nil, false
		}
		placeholders := make([]string, len(list))
		params := make([]any, len(list))
		for i, item := range list {
			placeholders[i] = next(i)
			params[i] = castValue(m.Type, item)
		}
		keyword := "IN"
		if m.Operator == OpNotIn {
			keyword = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", col, keyword, strings.Join(placeholders, ", ")),
			params, true
	}

	return "", nil, false
}

func sqlOperator(op Operator) string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "!="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpLike:
		return "LIKE"
	case OpILike:
		return "ILIKE"
	}
	return "="
}

// asList normalizes slice-shaped values to []any. Scalars return nil.
func asList(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		list := make([]any, len(v))
		for i, s := range v {
			list[i] = s
		}
		return list
	}
	return nil
}

// castValue casts a filter value per its declared type before binding.
// The receiving database performs date casting, so dates pass through as
// strings. A number that fails to parse binds as nil rather than failing
// the whole query.
func castValue(t ValueType, value any) any {
	switch t {
	case TypeNumber:
		switch v := value.(type) {
		case float64, float32, int, int32, int64:
			return v
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil
			}
			return f
		}
		return nil

	case TypeBoolean:
		switch v := value.(type) {
		case bool:
			return v
		case string:
			return v == "true" || v == "1"
		}
		return false

	default: // date, text
		if s, ok := value.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", value)
	}
}

// terminatorKeywords end the WHERE-clause region of a statement. The
// injection point is the first depth-0 occurrence of one of these.
var terminatorKeywords = []string{"GROUP BY", "ORDER BY", "LIMIT", "HAVING", "UNION", "INTERSECT", "EXCEPT"}

// findInjectionPoint scans baseSQL left to right tracking parenthesis
// depth and single-quote string state. It returns the byte offset where
// new conditions must be inserted, and whether a depth-0 WHERE already
// exists (append with AND) or not (open a new WHERE).
func findInjectionPoint(baseSQL string) (int, bool) {
	depth := 0
	inString := false
	wherePos := -1
	firstTerminator := -1
	terminatorAfterWhere := -1

	for i := 0; i < len(baseSQL); i++ {
		ch := baseSQL[i]

		if inString {
			if ch == '\'' {
				// Doubled quote stays inside the literal.
				if i+1 < len(baseSQL) && baseSQL[i+1] == '\'' {
					i++
					continue
				}
				inString = false
			}
			continue
		}

		switch ch {
		case '\'':
			inString = true
			continue
		case '(':
			depth++
			continue
		case ')':
			depth--
			continue
		}

		if depth != 0 || !atWordBoundary(baseSQL, i) {
			continue
		}

		if wherePos == -1 && matchKeyword(baseSQL, i, "WHERE") {
			wherePos = i
			continue
		}

		for _, kw := range terminatorKeywords {
			if matchKeyword(baseSQL, i, kw) {
				if firstTerminator == -1 {
					firstTerminator = i
				}
				if wherePos != -1 && i > wherePos && terminatorAfterWhere == -1 {
					terminatorAfterWhere = i
				}
				break
			}
		}
	}

	if wherePos != -1 {
		if terminatorAfterWhere != -1 {
			return terminatorAfterWhere, true
		}
		return len(baseSQL), true
	}
	if firstTerminator != -1 {
		return firstTerminator, false
	}
	return len(baseSQL), false
}

// atWordBoundary reports whether position i starts a word: start of string
// or preceded by whitespace. Keyword matches anywhere else (for example
// inside an identifier like created_where) must not count.
func atWordBoundary(s string, i int) bool {
	if i == 0 {
		return true
	}
	return unicode.IsSpace(rune(s[i-1]))
}

// matchKeyword reports a case-insensitive whole-word match of kw at
// position i. Multi-word keywords ("GROUP BY") tolerate any run of
// whitespace between the words.
func matchKeyword(s string, i int, kw string) bool {
	words := strings.Fields(kw)
	pos := i
	for wi, word := range words {
		if pos+len(word) > len(s) {
			return false
		}
		if !strings.EqualFold(s[pos:pos+len(word)], word) {
			return false
		}
		pos += len(word)
		if wi < len(words)-1 {
			// Require at least one whitespace between words.
			start := pos
			for pos < len(s) && unicode.IsSpace(rune(s[pos])) {
				pos++
			}
			if pos == start {
				return false
			}
		}
	}
	// Trailing boundary: end of string or non-word character.
	if pos < len(s) {
		ch := rune(s[pos])
		if ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch) {
			return false
		}
	}
	return true
}
