package sqlfilter

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"

	sqlutil "github.com/sightline-ai/sightline-engine/pkg/sql"
)

// dateColumnCandidates are common date/time column names, checked in order
// against the statement text when a date-range key arrives without explicit
// metadata.
var dateColumnCandidates = []string{
	"date", "created_at", "updated_at", "order_date", "transaction_date",
	"timestamp", "datetime", "time", "day", "event_date", "sale_date",
	"purchase_date",
}

// categoricalColumns are filter keys treated as text equality/membership
// filters against a column of the same name.
var categoricalColumns = map[string]bool{
	"category": true, "region": true, "status": true, "type": true,
	"department": true, "product": true, "customer": true, "country": true,
	"state": true, "city": true,
}

var (
	dateFromKeys = map[string]bool{"date_from": true, "start_date": true, "from_date": true}
	dateToKeys   = map[string]bool{"date_to": true, "end_date": true, "to_date": true}
)

// InferMeta derives filter metadata from raw key/value filter params by
// naming convention, for callers that never attached explicit metadata:
//
//   - date_from / start_date / from_date: gte against a date column
//     detected in sqlQuery (dropped silently when none is found)
//   - date_to / end_date / to_date: lte, same detection
//   - a known categorical name (category, region, status, ...): text eq
//     for scalars, text in for lists; plural keys are singularized first,
//     so "regions" filters the region column
//   - keys ending in _id: number eq
//   - keys ending in _min / _max: number gte / lte on the stripped name
//
// Unrecognized keys are dropped. Meta.ID is always the original param key
// so the caller's value map works unchanged.
func InferMeta(filterParams map[string]any, sqlQuery string) []Meta {
	var metas []Meta

	for _, key := range sortedKeys(filterParams) {
		value := filterParams[key]

		switch {
		case dateFromKeys[key]:
			if col := detectDateColumn(sqlQuery); col != "" {
				metas = append(metas, Meta{ID: key, Column: col, Operator: OpGte, Type: TypeDate})
			}
		case dateToKeys[key]:
			if col := detectDateColumn(sqlQuery); col != "" {
				metas = append(metas, Meta{ID: key, Column: col, Operator: OpLte, Type: TypeDate})
			}
		case isCategoricalKey(key):
			col := inflection.Singular(key)
			op := OpEq
			if asList(value) != nil {
				op = OpIn
			}
			metas = append(metas, Meta{ID: key, Column: col, Operator: op, Type: TypeText})
		case strings.HasSuffix(key, "_id"):
			metas = append(metas, Meta{ID: key, Column: key, Operator: OpEq, Type: TypeNumber})
		case strings.HasSuffix(key, "_min"):
			metas = append(metas, Meta{ID: key, Column: strings.TrimSuffix(key, "_min"), Operator: OpGte, Type: TypeNumber})
		case strings.HasSuffix(key, "_max"):
			metas = append(metas, Meta{ID: key, Column: strings.TrimSuffix(key, "_max"), Operator: OpLte, Type: TypeNumber})
		}
	}

	return metas
}

// BuildAutoFilteredQuery composes inference and injection. Returns nil when
// inference yields no filters, signalling the caller to run the query
// unmodified.
func BuildAutoFilteredQuery(baseSQL string, filterParams map[string]any) *Result {
	metas := InferMeta(filterParams, baseSQL)
	if len(metas) == 0 {
		return nil
	}

	values := make(Values, len(filterParams))
	for key, value := range filterParams {
		values[key] = value
	}

	result := BuildFilteredQuery(baseSQL, metas, values)
	return &result
}

func isCategoricalKey(key string) bool {
	return categoricalColumns[key] || categoricalColumns[inflection.Singular(key)]
}

// detectDateColumn scans the statement for the first known date column
// name, preferring a structural match against the parsed SELECT list and
// falling back to a text scan for columns only referenced in WHERE or
// GROUP BY context. Returns "" when nothing matches; the caller drops the
// date filter in that case.
func detectDateColumn(sqlQuery string) string {
	if sqlQuery == "" {
		return ""
	}

	selectCols := sqlutil.ParseSelectColumns(sqlQuery)
	for _, candidate := range dateColumnCandidates {
		for _, col := range selectCols {
			if col.Name == candidate {
				return candidate
			}
		}
	}

	for _, col := range dateColumnCandidates {
		if dateColumnRegexes[col].MatchString(sqlQuery) {
			return col
		}
	}
	return ""
}

// dateColumnRegexes holds one precompiled pattern per candidate. A single
// word-boundary match covers simple, alias-qualified, SELECT-list, and
// WHERE references alike, since "." is a non-word character.
var dateColumnRegexes = func() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(dateColumnCandidates))
	for _, col := range dateColumnCandidates {
		patterns[col] = regexp.MustCompile(`(?i)\b` + col + `\b`)
	}
	return patterns
}()

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Map iteration order is random; sort for deterministic $N numbering.
	sort.Strings(keys)
	return keys
}
