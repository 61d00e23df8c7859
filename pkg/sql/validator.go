// Package sql provides SQL validation, placeholder substitution, and
// cleanup utilities for AI-generated queries.
package sql

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxQueryLength is the hard cap on the length of a single SQL statement.
// Anything longer is rejected before any further inspection.
const MaxQueryLength = 5000

var (
	// ErrEmptyQuery indicates the query is empty or whitespace only.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrQueryTooLong indicates the query exceeds MaxQueryLength.
	ErrQueryTooLong = fmt.Errorf("query exceeds maximum length of %d characters", MaxQueryLength)

	// ErrNotASelect indicates the statement is not a SELECT or WITH statement.
	ErrNotASelect = errors.New("only SELECT or WITH statements are allowed")

	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
)

// DisallowedOperationError reports a denylisted keyword, function, or
// construct found in the query text.
type DisallowedOperationError struct {
	Match string
}

func (e *DisallowedOperationError) Error() string {
	return fmt.Sprintf("disallowed SQL operation: %q", e.Match)
}

// deniedKeywords are DDL/DML and procedural keywords that must never appear
// in a query, matched as whole words case-insensitively.
var deniedKeywords = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|GRANT|REVOKE|EXECUTE|EXEC|CALL)\b`)

// deniedFunctions are server-side functions with filesystem or timing side
// effects that read-only analytics queries have no business calling.
var deniedFunctions = regexp.MustCompile(`(?i)\b(pg_sleep|pg_read_file)\s*\(`)

// ValidationResult contains the normalized SQL and any validation error.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ValidateQuery enforces the read-only allow-list on raw SQL text.
//
// The validation order is:
//  1. Reject empty or over-length input
//  2. Strip trailing semicolon and whitespace (normalize)
//  3. Reject stacked statements (any remaining semicolon outside string literals)
//  4. Reject denylisted keywords, dangerous functions, and comment markers
//  5. Require the statement to start with SELECT or WITH
//
// Callers running filter injection or placeholder substitution must validate
// the rewritten SQL, not the original, so injected text passes the same gate.
// The function is pure: no I/O, no state.
func ValidateQuery(sqlQuery string) ValidationResult {
	sqlQuery = strings.TrimSpace(sqlQuery)

	if sqlQuery == "" {
		return ValidationResult{Error: ErrEmptyQuery}
	}
	if len(sqlQuery) > MaxQueryLength {
		return ValidationResult{Error: ErrQueryTooLong}
	}

	normalized := StripTrailingSemicolon(sqlQuery)

	if hasSemicolonOutsideStrings(normalized) {
		return ValidationResult{Error: ErrMultipleStatements}
	}

	if m := deniedKeywords.FindString(normalized); m != "" {
		return ValidationResult{Error: &DisallowedOperationError{Match: m}}
	}
	if m := deniedFunctions.FindString(normalized); m != "" {
		return ValidationResult{Error: &DisallowedOperationError{Match: strings.TrimRight(strings.TrimSpace(m), "(")}}
	}
	if strings.Contains(normalized, "--") {
		return ValidationResult{Error: &DisallowedOperationError{Match: "--"}}
	}
	if strings.Contains(normalized, "/*") {
		return ValidationResult{Error: &DisallowedOperationError{Match: "/*"}}
	}

	upper := strings.ToUpper(normalized)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return ValidationResult{Error: ErrNotASelect}
	}

	return ValidationResult{NormalizedSQL: normalized}
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals. After trailing-semicolon normalization, any
// such semicolon means a second statement is stacked behind the first.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Exit single quote on an unescaped single quote. Handles both
			// backslash escape (\') and SQL standard escape (''): for a
			// doubled quote this exits and immediately re-enters on the next
			// quote, which correctly keeps us in the string.
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// StripTrailingSemicolon removes a single trailing semicolon and any
// surrounding whitespace. The filter-injection engine normalizes statements
// through this before locating its splice point.
func StripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")

	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}

	return sqlQuery
}
