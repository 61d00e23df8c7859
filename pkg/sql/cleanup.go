package sql

import (
	"regexp"
	"strings"
)

// maxCleanupIterations bounds the fixed-point loop in
// StripUnresolvedPlaceholders. Each iteration strictly shrinks or rewrites
// the text; the cap guards against pathological AI output that keeps
// producing new matches.
const maxCleanupIterations = 20

// Condition fragments for unresolved-condition removal. A condition is
// "unresolved" when its value side still contains a {{...}} token.
const (
	columnRef = `[A-Za-z_][\w.]*`
	// Value forms: quoted string, parenthesized list handled separately,
	// or a bare token (raw placeholder, number, identifier).
	condValue = `(?:'[^']*'|[^\s()]+)`
)

var (
	// column BETWEEN x AND y (either operand may hold the placeholder;
	// a guard in the replace func checks for {{).
	betweenCondRegex = regexp.MustCompile(`(?i)` + columnRef + `\s+(?:NOT\s+)?BETWEEN\s+` + condValue + `\s+AND\s+` + condValue)

	// column IN (...) with a placeholder anywhere in the list.
	inCondRegex = regexp.MustCompile(`(?i)` + columnRef + `\s+(?:NOT\s+)?IN\s*\([^()]*\{\{[^{}]*\}\}[^()]*\)`)

	// column <op> value comparisons.
	cmpCondRegex = regexp.MustCompile(`(?i)` + columnRef + `\s*(?:!=|<>|>=|<=|=|>|<|\s+NOT\s+LIKE\s+|\s+ILIKE\s+|\s+LIKE\s+)\s*` + condValue)

	condAlternatives = betweenCondRegex.String() + `|` + inCondRegex.String() + `|` + cmpCondRegex.String()

	// " AND <cond>" / " OR <cond>" following an earlier condition.
	trailingCondRegex = regexp.MustCompile(`(?i)\s+(?:AND|OR)\s+(?:` + condAlternatives + `)`)

	// "WHERE <cond> AND/OR " where the first condition is the unresolved one.
	leadingCondRegex = regexp.MustCompile(`(?i)(\bWHERE)\s+(?:` + condAlternatives + `)\s+(AND|OR)\s+`)

	// "WHERE <cond>" standing alone before a trailing clause or end of text.
	soleCondRegex = regexp.MustCompile(`(?i)\bWHERE\s+(?:` + condAlternatives + `)\s*((?:GROUP\s+BY|ORDER\s+BY|LIMIT|HAVING)\b|$)`)
)

// Defensive idioms AI models wrap around placeholders. Collapsed innermost
// first, one rewrite per pattern per iteration of the fixed-point loop.
var (
	quotedPlaceholder = `'[^']*\{\{[^{}]*\}\}[^']*'`

	// CASE WHEN '{{x}}' LIKE 'NULL' THEN TRUE ELSE <cond> END  ->  <cond>
	caseLikeNullRegex = regexp.MustCompile(`(?is)CASE\s+WHEN\s+` + quotedPlaceholder + `\s+LIKE\s+'NULL'\s+THEN\s+TRUE\s+ELSE\s+(.+?)\s+END`)

	// CASE WHEN '{{x}}' ... ELSE TRUE END  ->  TRUE
	caseElseTrueRegex = regexp.MustCompile(`(?is)CASE\s+WHEN\s+` + quotedPlaceholder + `.*?ELSE\s+TRUE\s+END`)

	// to_date('{{x}}', 'fmt')  ->  NULL
	toDateRegex = regexp.MustCompile(`(?i)to_date\s*\(\s*` + quotedPlaceholder + `\s*,\s*'[^']*'\s*\)`)

	// COALESCE(NULLIF('{{x}}', ...), default)  ->  default
	coalesceNullifRegex = regexp.MustCompile(`(?i)COALESCE\s*\(\s*NULLIF\s*\(\s*` + quotedPlaceholder + `\s*,\s*[^()]*?\)\s*,\s*([^()]+?)\s*\)`)

	// '{{x}}'::type  ->  NULL
	castPlaceholderRegex = regexp.MustCompile(quotedPlaceholder + `\s*::\s*\w+`)

	// Any remaining quoted placeholder  ->  NULL
	quotedPlaceholderRegex = regexp.MustCompile(quotedPlaceholder)

	// Redundant boolean scaffolding left behind by the collapses above.
	whereTrueAndRegex = regexp.MustCompile(`(?i)\bWHERE\s+TRUE\s+(?:AND|OR)\s+`)
	andTrueRegex      = regexp.MustCompile(`(?i)\s+AND\s+TRUE\b`)
	orTrueRegex       = regexp.MustCompile(`(?i)\s+OR\s+TRUE\b`)

	// Final-pass normalization.
	whereTrueRegex  = regexp.MustCompile(`(?i)\bWHERE\s+TRUE\s*((?:GROUP\s+BY|ORDER\s+BY|LIMIT|HAVING)\b|$)`)
	emptyWhereRegex = regexp.MustCompile(`(?i)\bWHERE\s*((?:GROUP\s+BY|ORDER\s+BY|LIMIT|HAVING)\b|$)`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// RemoveUnresolvedConditions removes entire AND/OR conditions whose value
// side still contains an unresolved {{...}} token. Handles comparisons,
// BETWEEN ranges, and parenthesized IN lists, with quoted or unquoted
// values. If the whole WHERE clause is a single unresolved condition it is
// replaced with the always-true "WHERE 1=1" rather than leaving a dangling
// keyword.
//
// Best-effort by design: the function never fails and never makes the
// statement syntactically worse than its input.
func RemoveUnresolvedConditions(sqlQuery string) string {
	return collapseWhitespace(removeUnresolvedConditionsOnce(sqlQuery))
}

func removeUnresolvedConditionsOnce(sqlQuery string) string {
	// Only conditions that still reference a placeholder are removed; the
	// guard keeps resolved conditions intact even though the shared
	// patterns match them too.
	keepResolved := func(match string) bool { return !strings.Contains(match, "{{") }

	result := trailingCondRegex.ReplaceAllStringFunc(sqlQuery, func(match string) string {
		if keepResolved(match) {
			return match
		}
		return ""
	})

	result = leadingCondRegex.ReplaceAllStringFunc(result, func(match string) string {
		if keepResolved(match) {
			return match
		}
		// Keep WHERE, drop the condition and its trailing AND/OR.
		sub := leadingCondRegex.FindStringSubmatch(match)
		return sub[1] + " "
	})

	result = soleCondRegex.ReplaceAllStringFunc(result, func(match string) string {
		if keepResolved(match) {
			return match
		}
		sub := soleCondRegex.FindStringSubmatch(match)
		return "WHERE 1=1 " + sub[1]
	})

	return result
}

// StripUnresolvedPlaceholders is the fallback cleanup for AI-emitted
// defensive SQL that RemoveUnresolvedConditions cannot fully untangle.
//
// It runs a bounded fixed-point loop; each iteration:
//  1. collapses known defensive idioms (CASE WHEN wrappers, to_date,
//     COALESCE(NULLIF(...)), quoted placeholders with or without casts)
//  2. removes the now-redundant TRUE scaffolding
//  3. removes AND/OR conditions still carrying a raw placeholder
//
// If an iteration makes no progress, all remaining {{...}} tokens are
// replaced with NULL and the loop terminates. A final pass normalizes
// WHERE TRUE, empty WHERE, and whitespace.
//
// Post-condition: the result contains no {{...}} substrings, and the
// statement itself is never deleted (a SELECT stays a SELECT).
func StripUnresolvedPlaceholders(sqlQuery string) string {
	result := sqlQuery

	for i := 0; i < maxCleanupIterations; i++ {
		if !strings.Contains(result, "{{") {
			break
		}

		before := result

		result = caseLikeNullRegex.ReplaceAllString(result, "$1")
		result = caseElseTrueRegex.ReplaceAllString(result, "TRUE")
		result = toDateRegex.ReplaceAllString(result, "NULL")
		result = coalesceNullifRegex.ReplaceAllString(result, "$1")
		result = castPlaceholderRegex.ReplaceAllString(result, "NULL")
		result = quotedPlaceholderRegex.ReplaceAllString(result, "NULL")

		result = whereTrueAndRegex.ReplaceAllString(result, "WHERE ")
		result = andTrueRegex.ReplaceAllString(result, "")
		result = orTrueRegex.ReplaceAllString(result, "")

		result = removeUnresolvedConditionsOnce(result)

		if result == before {
			// No rewrite fired; neutralize whatever is left and stop.
			result = anyPlaceholderRegex.ReplaceAllString(result, "NULL")
			break
		}
	}

	// Safety net for the iteration cap.
	result = anyPlaceholderRegex.ReplaceAllString(result, "NULL")

	result = whereTrueRegex.ReplaceAllString(result, "WHERE 1=1 $1")
	result = emptyWhereRegex.ReplaceAllString(result, " $1")

	return collapseWhitespace(result)
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}
