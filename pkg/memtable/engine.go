package memtable

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// QueryResult holds the rows and ordered column names produced by Query.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// selectRegex is the whole accepted grammar. The engine is a deliberate
// non-parser: one anchored pattern, case-insensitive keywords, single
// table, conjunctive WHERE, single GROUP BY column.
var selectRegex = regexp.MustCompile(
	`(?is)^\s*SELECT\s+(.+?)\s+FROM\s+([A-Za-z_]\w*)` +
		`(?:\s+WHERE\s+(.+?))?` +
		`(?:\s+GROUP\s+BY\s+([\w.]+))?` +
		`(?:\s+ORDER\s+BY\s+([\w.]+)(?:\s+(ASC|DESC))?)?` +
		`(?:\s+LIMIT\s+(\d+))?\s*;?\s*$`)

var (
	aggregateItemRegex = regexp.MustCompile(`(?i)^(COUNT|SUM|AVG|MIN|MAX)\s*\(\s*(\*|[\w.]+)\s*\)(?:\s+(?:AS\s+)?(\w+))?$`)
	plainItemRegex     = regexp.MustCompile(`(?i)^([\w.]+)(?:\s+(?:AS\s+)?(\w+))?$`)
	andSplitRegex      = regexp.MustCompile(`(?i)\s+AND\s+`)
	inCondRegex        = regexp.MustCompile(`(?i)^\s*([\w.]+)\s+IN\s*\(([^)]*)\)\s*$`)
	likeCondRegex      = regexp.MustCompile(`(?i)^\s*([\w.]+)\s+LIKE\s+(.+?)\s*$`)
	cmpCondRegex       = regexp.MustCompile(`^\s*([\w.]+)\s*(>=|<=|!=|<>|=|>|<)\s*(.+?)\s*$`)
)

// selectItem is one parsed entry of the column list.
type selectItem struct {
	expr   string
	column string // bare column for plain items, or aggregate argument
	alias  string
	agg    string // upper-cased aggregate function name, "" for plain items
	star   bool
}

// outputName is the key this item produces in result rows.
func (it selectItem) outputName() string {
	if it.alias != "" {
		return it.alias
	}
	if it.agg != "" {
		return strings.ToLower(it.agg)
	}
	return bareColumn(it.column)
}

// condition is one conjunct of the WHERE clause.
type condition struct {
	column string
	op     string // =, !=, <>, >, <, >=, <=, LIKE, IN
	value  string
	list   []string // IN only
}

// Query parses and executes a statement against the registered tables.
//
// Execution order: table lookup, WHERE filtering, aggregation, ORDER BY,
// LIMIT, projection. Unknown columns resolve to nil instead of failing;
// the statement shapes themselves are strict (UnsupportedSyntaxError) so
// the AI agent gets a correctable message, but column typos degrade
// gracefully the way a loosely-typed row map allows.
func (s *Store) Query(sqlQuery string) (*QueryResult, error) {
	match := selectRegex.FindStringSubmatch(strings.TrimSpace(sqlQuery))
	if match == nil {
		return nil, &UnsupportedSyntaxError{Query: sqlQuery}
	}

	columnList, tableName := match[1], match[2]
	whereClause, groupBy := match[3], match[4]
	orderBy, orderDir, limitStr := match[5], match[6], match[7]

	items, err := parseSelectList(columnList, sqlQuery)
	if err != nil {
		return nil, err
	}

	conditions, err := parseConditions(whereClause, sqlQuery)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	table, ok := s.lookup(tableName)
	if !ok {
		err := s.tableNotFound(tableName)
		s.mu.RUnlock()
		return nil, err
	}
	rows := table.Rows
	schema := table.Columns
	s.mu.RUnlock()

	// WHERE
	filtered := rows
	if len(conditions) > 0 {
		filtered = make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			if matchesAll(row, conditions) {
				filtered = append(filtered, row)
			}
		}
	}

	hasAggregate := false
	for _, it := range items {
		if it.agg != "" {
			hasAggregate = true
			break
		}
	}

	var out []map[string]any
	var columns []string

	if hasAggregate {
		out, columns = aggregate(items, filtered, groupBy)
	} else {
		out = filtered
		columns = projectionColumns(items, schema)
	}

	// ORDER BY
	if orderBy != "" {
		out = sortRows(out, bareColumn(orderBy), strings.EqualFold(orderDir, "DESC"))
	}

	// LIMIT
	if limitStr != "" {
		n, _ := strconv.Atoi(limitStr)
		if n < len(out) {
			out = out[:n]
		}
	}

	// Projection happens after LIMIT for non-aggregate queries so the
	// sliced rows are re-mapped to exactly the requested names.
	if !hasAggregate {
		out = project(items, out, schema)
	}

	return &QueryResult{Columns: columns, Rows: out}, nil
}

func parseSelectList(columnList, original string) ([]selectItem, error) {
	var items []selectItem
	for _, raw := range splitAtDepthZero(columnList) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if raw == "*" {
			items = append(items, selectItem{expr: raw, star: true})
			continue
		}
		if m := aggregateItemRegex.FindStringSubmatch(raw); m != nil {
			fn := strings.ToUpper(m[1])
			arg := m[2]
			if arg == "*" && fn != "COUNT" {
				return nil, &UnsupportedSyntaxError{Query: original}
			}
			items = append(items, selectItem{expr: raw, column: arg, alias: m[3], agg: fn})
			continue
		}
		if m := plainItemRegex.FindStringSubmatch(raw); m != nil {
			items = append(items, selectItem{expr: raw, column: m[1], alias: m[2]})
			continue
		}
		return nil, &UnsupportedSyntaxError{Query: original}
	}
	if len(items) == 0 {
		return nil, &UnsupportedSyntaxError{Query: original}
	}
	return items, nil
}

// splitAtDepthZero splits a column list on commas outside parentheses.
func splitAtDepthZero(list string) []string {
	var parts []string
	var current strings.Builder
	depth := 0

	for _, ch := range list {
		switch ch {
		case '(':
			depth++
			current.WriteRune(ch)
		case ')':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				parts = append(parts, current.String())
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func parseConditions(whereClause, original string) ([]condition, error) {
	whereClause = strings.TrimSpace(whereClause)
	if whereClause == "" {
		return nil, nil
	}

	var conditions []condition
	for _, raw := range andSplitRegex.Split(whereClause, -1) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		if m := inCondRegex.FindStringSubmatch(raw); m != nil {
			var list []string
			for _, item := range strings.Split(m[2], ",") {
				list = append(list, unquote(strings.TrimSpace(item)))
			}
			conditions = append(conditions, condition{column: m[1], op: "IN", list: list})
			continue
		}
		if m := likeCondRegex.FindStringSubmatch(raw); m != nil {
			conditions = append(conditions, condition{column: m[1], op: "LIKE", value: unquote(m[2])})
			continue
		}
		if m := cmpCondRegex.FindStringSubmatch(raw); m != nil {
			conditions = append(conditions, condition{column: m[1], op: m[2], value: unquote(m[3])})
			continue
		}
		return nil, &UnsupportedSyntaxError{Query: original}
	}
	return conditions, nil
}

// unquote strips one layer of single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func matchesAll(row map[string]any, conditions []condition) bool {
	for _, cond := range conditions {
		if !matches(row, cond) {
			return false
		}
	}
	return true
}

func matches(row map[string]any, cond condition) bool {
	value := lookupValue(row, cond.column)

	switch cond.op {
	case "IN":
		if value == nil {
			return false
		}
		str := fmt.Sprint(value)
		for _, item := range cond.list {
			if str == item {
				return true
			}
		}
		return false

	case "LIKE":
		if value == nil {
			return false
		}
		pattern := "(?i)^" + strings.ReplaceAll(regexp.QuoteMeta(cond.value), "%", ".*") + "$"
		matched, err := regexp.MatchString(pattern, fmt.Sprint(value))
		return err == nil && matched

	case "=":
		if value == nil {
			return false
		}
		return compareValues(value, cond.value) == 0
	case "!=", "<>":
		if value == nil {
			return true
		}
		return compareValues(value, cond.value) != 0
	case ">":
		return value != nil && compareValues(value, cond.value) > 0
	case "<":
		return value != nil && compareValues(value, cond.value) < 0
	case ">=":
		return value != nil && compareValues(value, cond.value) >= 0
	case "<=":
		return value != nil && compareValues(value, cond.value) <= 0
	}
	return false
}

// compareValues compares a row value against a literal: numerically when
// both sides parse as numbers, else as strings.
func compareValues(value any, literal string) int {
	if vn, ok := toNumberStrict(value); ok {
		if ln, err := strconv.ParseFloat(literal, 64); err == nil {
			switch {
			case vn < ln:
				return -1
			case vn > ln:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(value), literal)
}

// lookupValue fetches a column from a row, tolerating table-qualified
// references (alias.column) against bare row keys.
func lookupValue(row map[string]any, column string) any {
	if v, ok := row[column]; ok {
		return v
	}
	return row[bareColumn(column)]
}

func bareColumn(column string) string {
	if idx := strings.LastIndex(column, "."); idx != -1 {
		return column[idx+1:]
	}
	return column
}

// aggregate computes one output row per group (or a single row when no
// GROUP BY is present). The group key keeps each group's first-seen
// representative value.
func aggregate(items []selectItem, rows []map[string]any, groupBy string) ([]map[string]any, []string) {
	type group struct {
		key  string
		rows []map[string]any
		rep  any
	}

	var groups []*group
	if groupBy != "" {
		index := make(map[string]*group)
		for _, row := range rows {
			value := lookupValue(row, groupBy)
			key := fmt.Sprint(value)
			g, ok := index[key]
			if !ok {
				g = &group{key: key, rep: value}
				index[key] = g
				groups = append(groups, g)
			}
			g.rows = append(g.rows, row)
		}
	} else {
		groups = []*group{{rows: rows}}
	}

	var columns []string
	for _, it := range items {
		columns = append(columns, it.outputName())
	}

	out := make([]map[string]any, 0, len(groups))
	for _, g := range groups {
		row := make(map[string]any, len(items))
		for _, it := range items {
			name := it.outputName()
			if it.agg == "" {
				// Non-aggregate item alongside aggregates: first-seen
				// representative from the group.
				if len(g.rows) > 0 {
					row[name] = lookupValue(g.rows[0], it.column)
				} else {
					row[name] = nil
				}
				continue
			}
			row[name] = computeAggregate(it, g.rows)
		}
		out = append(out, row)
	}

	return out, columns
}

func computeAggregate(it selectItem, rows []map[string]any) any {
	switch it.agg {
	case "COUNT":
		if it.column == "*" {
			return float64(len(rows))
		}
		count := 0
		for _, row := range rows {
			if lookupValue(row, it.column) != nil {
				count++
			}
		}
		return float64(count)

	case "SUM", "AVG":
		sum := 0.0
		for _, row := range rows {
			sum += toNumber(lookupValue(row, it.column))
		}
		if it.agg == "AVG" {
			if len(rows) == 0 {
				return nil
			}
			return sum / float64(len(rows))
		}
		return sum

	case "MIN", "MAX":
		if len(rows) == 0 {
			return nil
		}
		best := toNumber(lookupValue(rows[0], it.column))
		for _, row := range rows[1:] {
			n := toNumber(lookupValue(row, it.column))
			if (it.agg == "MIN" && n < best) || (it.agg == "MAX" && n > best) {
				best = n
			}
		}
		return best
	}
	return nil
}

// toNumber coerces a value to float64 with 0 for anything non-numeric,
// mirroring the forgiving coercion the engine promises for aggregates.
func toNumber(value any) float64 {
	n, ok := toNumberStrict(value)
	if !ok {
		return 0
	}
	return n
}

func toNumberStrict(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// sortRows orders rows by one column. Nulls sort last regardless of
// direction; numeric values compare numerically, everything else compares
// as strings. Stable so ties keep input order.
func sortRows(rows []map[string]any, column string, desc bool) []map[string]any {
	sorted := make([]map[string]any, len(rows))
	copy(sorted, rows)

	sort.SliceStable(sorted, func(i, j int) bool {
		a := lookupValue(sorted[i], column)
		b := lookupValue(sorted[j], column)

		if a == nil || b == nil {
			// Nulls last in both directions.
			return b == nil && a != nil
		}

		an, aok := toNumberStrict(a)
		bn, bok := toNumberStrict(b)
		var cmp int
		if aok && bok {
			switch {
			case an < bn:
				cmp = -1
			case an > bn:
				cmp = 1
			}
		} else {
			cmp = strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})

	return sorted
}

// projectionColumns resolves the ordered output column names for a
// non-aggregate query.
func projectionColumns(items []selectItem, schema []Column) []string {
	var columns []string
	for _, it := range items {
		if it.star {
			for _, col := range schema {
				columns = append(columns, col.Name)
			}
			continue
		}
		columns = append(columns, it.outputName())
	}
	return columns
}

// project re-maps each output row to exactly the requested columns.
func project(items []selectItem, rows []map[string]any, schema []Column) []map[string]any {
	star := len(items) == 1 && items[0].star

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if star {
			projected := make(map[string]any, len(schema))
			for _, col := range schema {
				projected[col.Name] = row[col.Name]
			}
			out = append(out, projected)
			continue
		}

		projected := make(map[string]any, len(items))
		for _, it := range items {
			if it.star {
				for _, col := range schema {
					projected[col.Name] = row[col.Name]
				}
				continue
			}
			projected[it.outputName()] = lookupValue(row, it.column)
		}
		out = append(out, projected)
	}
	return out
}
