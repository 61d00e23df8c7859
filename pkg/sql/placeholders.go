package sql

import (
	"regexp"
	"strings"
)

// placeholderRegex matches {{name}} placeholders in SQL text. Names must
// start with a letter or underscore, followed by alphanumerics, underscores,
// or dots (table-qualified filter keys).
var placeholderRegex = regexp.MustCompile(`\{\{([a-zA-Z_][\w.]*)\}\}`)

// anyPlaceholderRegex matches any {{...}} token, including malformed keys
// that placeholderRegex would not accept. Used by the cleanup stage, which
// must guarantee no braces survive regardless of key validity.
var anyPlaceholderRegex = regexp.MustCompile(`\{\{[^{}]*\}\}`)

// identifierPattern is the validity pattern for placeholder keys and filter
// column names. Defense against identifier injection: 128 chars max, dots
// allowed for table-qualified names.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]{0,127}$`)

// ValidIdentifier reports whether name is safe to use as a column reference
// or placeholder key.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// ExtractPlaceholders finds all {{name}} placeholders in SQL and returns a
// deduplicated list of names in order of first appearance.
func ExtractPlaceholders(sqlQuery string) []string {
	matches := placeholderRegex.FindAllStringSubmatch(sqlQuery, -1)
	seen := make(map[string]bool)
	var names []string

	for _, match := range matches {
		name := match[1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	return names
}

// HasPlaceholders reports whether any {{...}} token remains in the SQL.
func HasPlaceholders(sqlQuery string) bool {
	return anyPlaceholderRegex.MatchString(sqlQuery)
}

// InjectPlaceholders replaces {{key}} occurrences with their values,
// escaping embedded single quotes by doubling them.
//
// This is the legacy textual substitution path, used only when structured
// filter metadata is unavailable. It is inherently lower-assurance than the
// parameterized path in pkg/sqlfilter, which callers should prefer.
//
// Keys are skipped (left unresolved for the cleanup stage, never injected
// raw) when:
//   - the key fails the identifier validity pattern
//   - the value trips the libinjection SQLi check
//
// The skipped key names are returned so callers can log a warning.
func InjectPlaceholders(sqlQuery string, values map[string]string) (string, []string) {
	var skipped []string
	seenSkipped := make(map[string]bool)

	result := placeholderRegex.ReplaceAllStringFunc(sqlQuery, func(match string) string {
		key := placeholderRegex.FindStringSubmatch(match)[1]

		value, ok := values[key]
		if !ok {
			// Unresolved placeholder; the cleanup stage removes it.
			return match
		}

		if !ValidIdentifier(key) || CheckValueForInjection(key, value) != nil {
			if !seenSkipped[key] {
				seenSkipped[key] = true
				skipped = append(skipped, key)
			}
			return match
		}

		return strings.ReplaceAll(value, "'", "''")
	})

	return result, skipped
}

// FindPlaceholdersInStringLiterals checks for {{name}} placeholders that
// appear inside single-quoted SQL string literals. The orchestrator uses
// this to warn on AI-emitted SQL like WHERE d = '{{date_from}}', where the
// substituted value ends up quoted twice.
//
// Returns the parameter names that appear inside strings, deduplicated.
func FindPlaceholdersInStringLiterals(sqlQuery string) []string {
	var problems []string
	seen := make(map[string]bool)

	inString := false
	stringStart := 0
	i := 0

	for i < len(sqlQuery) {
		ch := sqlQuery[i]

		if ch == '\'' {
			if inString {
				// Escaped quote ('') stays inside the literal.
				if i+1 < len(sqlQuery) && sqlQuery[i+1] == '\'' {
					i += 2
					continue
				}
				stringContent := sqlQuery[stringStart+1 : i]
				matches := placeholderRegex.FindAllStringSubmatch(stringContent, -1)
				for _, match := range matches {
					name := match[1]
					if !seen[name] {
						seen[name] = true
						problems = append(problems, name)
					}
				}
				inString = false
			} else {
				inString = true
				stringStart = i
			}
		}
		i++
	}

	return problems
}
