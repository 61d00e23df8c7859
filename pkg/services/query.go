// Package services contains the business logic for query execution. The
// query service pipes incoming SQL through filter injection, placeholder
// cleanup, and read-only validation before dispatching it to either the
// configured external datasource or the session's in-memory tables.
package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sightline-ai/sightline-engine/pkg/adapters/datasource"
	"github.com/sightline-ai/sightline-engine/pkg/memtable"
	sqlutil "github.com/sightline-ai/sightline-engine/pkg/sql"
	"github.com/sightline-ai/sightline-engine/pkg/sqlfilter"
)

// ExecuteRequest describes a single query execution.
//
// Filters can be supplied three ways, in order of precedence:
//  1. FilterMeta + FilterValues: explicit filter metadata, rendered into
//     parameterized conditions.
//  2. Legacy {{placeholder}} markers in SQL + LegacyFilters values.
//  3. FilterParams alone: metadata is inferred from key naming
//     conventions against the query text.
type ExecuteRequest struct {
	SessionID     uuid.UUID
	SQL           string
	FilterMeta    []sqlfilter.Meta
	FilterValues  sqlfilter.Values
	FilterParams  map[string]any
	LegacyFilters map[string]string
	Limit         int
}

// ExecuteResult is the outcome of a query execution.
type ExecuteResult struct {
	Columns  []datasource.ColumnInfo `json:"columns"`
	Rows     []map[string]any        `json:"rows"`
	RowCount int                     `json:"row_count"`
	// ExecutedSQL is the rewritten statement that actually ran.
	ExecutedSQL string `json:"executed_sql"`
	// SkippedFilters lists legacy filter keys dropped during substitution
	// because the key was invalid or the value failed injection screening.
	SkippedFilters []string `json:"skipped_filters,omitempty"`
}

// QueryService executes agent-emitted SQL with filter rewriting and
// read-only validation.
type QueryService interface {
	Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error)
}

type queryService struct {
	executor datasource.QueryExecutor // nil when no external datasource is configured
	registry *memtable.Registry
	rowLimit int // default row cap for requests that carry no limit
	logger   *zap.Logger
}

// NewQueryService creates a query service. The executor may be nil, in
// which case all queries run against the session's in-memory tables.
// rowLimit applies when a request carries no limit of its own; the hard
// cap in datasource.CapLimit still bounds both.
func NewQueryService(executor datasource.QueryExecutor, registry *memtable.Registry, rowLimit int, logger *zap.Logger) QueryService {
	return &queryService{
		executor: executor,
		registry: registry,
		rowLimit: rowLimit,
		logger:   logger,
	}
}

func (s *queryService) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	rewritten, params, skipped, err := s.rewrite(req)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.rowLimit
	}

	validation := sqlutil.ValidateQuery(rewritten)
	if validation.Error != nil {
		s.logger.Warn("query rejected by validator",
			zap.String("session_id", req.SessionID.String()),
			zap.Error(validation.Error))
		return nil, validation.Error
	}
	rewritten = validation.NormalizedSQL

	if s.executor != nil {
		result, err := s.executor.QueryWithParams(ctx, rewritten, params, limit)
		if err != nil {
			return nil, fmt.Errorf("datasource query failed: %w", err)
		}
		return &ExecuteResult{
			Columns:        result.Columns,
			Rows:           result.Rows,
			RowCount:       result.RowCount,
			ExecutedSQL:    rewritten,
			SkippedFilters: skipped,
		}, nil
	}

	return s.executeInMemory(req.SessionID, rewritten, params, limit, skipped)
}

// rewrite applies the filter pipeline and returns the rewritten SQL, its
// positional parameters, and any skipped legacy filter keys.
func (s *queryService) rewrite(req ExecuteRequest) (string, []any, []string, error) {
	switch {
	case len(req.FilterMeta) > 0:
		if problems := sqlfilter.ValidateMeta(req.FilterMeta); len(problems) > 0 {
			return "", nil, nil, fmt.Errorf("invalid filter metadata: %s", strings.Join(problems, "; "))
		}
		result := sqlfilter.BuildFilteredQuery(req.SQL, req.FilterMeta, req.FilterValues)
		s.logger.Debug("applied metadata filters",
			zap.Int("param_count", len(result.Params)),
			zap.String("where_clause", result.WhereClause))
		return result.SQL, result.Params, nil, nil

	case sqlutil.HasPlaceholders(req.SQL):
		if quoted := sqlutil.FindPlaceholdersInStringLiterals(req.SQL); len(quoted) > 0 {
			// The substituted value would end up quoted twice.
			s.logger.Warn("placeholders inside string literals",
				zap.Strings("names", quoted))
		}
		for _, hit := range sqlutil.CheckAllValues(legacyValues(req.LegacyFilters)) {
			s.logger.Warn("legacy filter value failed injection screening",
				zap.String("key", hit.Key),
				zap.String("fingerprint", hit.Fingerprint))
		}
		if unresolved := missingFilterKeys(req.SQL, req.LegacyFilters); len(unresolved) > 0 {
			s.logger.Debug("unresolved placeholders",
				zap.Strings("names", unresolved))
		}

		substituted, skipped := sqlutil.InjectPlaceholders(req.SQL, req.LegacyFilters)
		cleaned := sqlutil.RemoveUnresolvedConditions(substituted)
		cleaned = sqlutil.StripUnresolvedPlaceholders(cleaned)
		if len(skipped) > 0 {
			s.logger.Warn("skipped legacy filters",
				zap.Strings("keys", skipped))
		}
		return cleaned, nil, skipped, nil

	case len(req.FilterParams) > 0:
		result := sqlfilter.BuildAutoFilteredQuery(req.SQL, req.FilterParams)
		if result == nil {
			return req.SQL, nil, nil, nil
		}
		s.logger.Debug("applied inferred filters",
			zap.Int("param_count", len(result.Params)))
		return result.SQL, result.Params, nil, nil
	}

	return req.SQL, nil, nil, nil
}

func legacyValues(filters map[string]string) map[string]any {
	values := make(map[string]any, len(filters))
	for key, value := range filters {
		values[key] = value
	}
	return values
}

// missingFilterKeys lists placeholders in the SQL that have no value in
// the filter map; the cleanup stage removes their conditions.
func missingFilterKeys(sqlQuery string, filters map[string]string) []string {
	var missing []string
	for _, name := range sqlutil.ExtractPlaceholders(sqlQuery) {
		if _, ok := filters[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func (s *queryService) executeInMemory(sessionID uuid.UUID, sqlQuery string, params []any, limit int, skipped []string) (*ExecuteResult, error) {
	store := s.registry.Store(sessionID)

	// The in-memory grammar has no parameter binding, so positional
	// parameters are interpolated as literals. Values already passed
	// injection screening and the validator has run.
	expanded, err := expandPositionalParams(sqlQuery, params)
	if err != nil {
		return nil, err
	}

	result, err := store.Query(expanded)
	if err != nil {
		return nil, err
	}

	rows := result.Rows
	capped := datasource.CapLimit(limit)
	if len(rows) > capped {
		rows = rows[:capped]
	}

	columns := make([]datasource.ColumnInfo, len(result.Columns))
	for i, name := range result.Columns {
		columns[i] = datasource.ColumnInfo{Name: name, Type: "UNKNOWN"}
	}

	return &ExecuteResult{
		Columns:        columns,
		Rows:           rows,
		RowCount:       len(rows),
		ExecutedSQL:    expanded,
		SkippedFilters: skipped,
	}, nil
}

var positionalParamRegex = regexp.MustCompile(`\$(\d+)`)

// expandPositionalParams substitutes $1, $2, ... with SQL literals for
// engines without parameter binding. Strings are single-quote escaped.
func expandPositionalParams(sqlQuery string, params []any) (string, error) {
	if len(params) == 0 {
		return sqlQuery, nil
	}
	var expandErr error
	expanded := positionalParamRegex.ReplaceAllStringFunc(sqlQuery, func(match string) string {
		n, err := strconv.Atoi(match[1:])
		if err != nil || n < 1 || n > len(params) {
			expandErr = fmt.Errorf("parameter %s out of range (have %d)", match, len(params))
			return match
		}
		return literalFor(params[n-1])
	})
	if expandErr != nil {
		return "", expandErr
	}
	return expanded, nil
}

func literalFor(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(t), "'", "''") + "'"
	}
}
