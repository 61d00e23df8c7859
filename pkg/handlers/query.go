package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sightline-ai/sightline-engine/pkg/jsonutil"
	"github.com/sightline-ai/sightline-engine/pkg/memtable"
	"github.com/sightline-ai/sightline-engine/pkg/services"
	sqlutil "github.com/sightline-ai/sightline-engine/pkg/sql"
	"github.com/sightline-ai/sightline-engine/pkg/sqlfilter"
)

// ExecuteQueryRequest is the POST /api/query body.
// Legacy filter values arrive as raw JSON because agents send numbers and
// booleans where strings belong; they are coerced before substitution.
type ExecuteQueryRequest struct {
	SessionID     string                     `json:"session_id,omitempty"`
	SQL           string                     `json:"sql"`
	FilterMeta    []sqlfilter.Meta           `json:"filter_meta,omitempty"`
	FilterValues  map[string]any             `json:"filter_values,omitempty"`
	FilterParams  map[string]any             `json:"filter_params,omitempty"`
	LegacyFilters map[string]json.RawMessage `json:"filters,omitempty"`
	Limit         int                        `json:"limit,omitempty"`
}

// QueryHandler handles query execution endpoints.
type QueryHandler struct {
	queryService services.QueryService
	logger       *zap.Logger
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(queryService services.QueryService, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{queryService: queryService, logger: logger}
}

// RegisterRoutes registers the query handler's routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.Execute)
	mux.HandleFunc("POST /api/query/validate", h.Validate)
}

// Execute handles POST /api/query.
// Rewrites the submitted SQL with the supplied filters, validates it as
// read-only, and runs it against the datasource or the session's
// in-memory tables.
func (h *QueryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sessionID, err := parseSessionID(req.SessionID)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_session", "session_id must be a UUID")
		return
	}

	result, err := h.queryService.Execute(r.Context(), services.ExecuteRequest{
		SessionID:     sessionID,
		SQL:           req.SQL,
		FilterMeta:    req.FilterMeta,
		FilterValues:  req.FilterValues,
		FilterParams:  req.FilterParams,
		LegacyFilters: jsonutil.FlexibleStringMap(req.LegacyFilters),
		Limit:         req.Limit,
	})
	if err != nil {
		h.writeExecuteError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode query response", zap.Error(err))
	}
}

// ValidateQueryResponse is the POST /api/query/validate response body.
type ValidateQueryResponse struct {
	Valid         bool   `json:"valid"`
	NormalizedSQL string `json:"normalized_sql,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Validate handles POST /api/query/validate.
// Runs the read-only validator without executing anything.
func (h *QueryHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SQL string `json:"sql"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	validation := sqlutil.ValidateQuery(req.SQL)
	resp := ValidateQueryResponse{Valid: validation.Error == nil}
	if validation.Error != nil {
		resp.Error = validation.Error.Error()
	} else {
		resp.NormalizedSQL = validation.NormalizedSQL
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode validate response", zap.Error(err))
	}
}

func (h *QueryHandler) writeExecuteError(w http.ResponseWriter, err error) {
	var disallowed *sqlutil.DisallowedOperationError
	var notFound *memtable.TableNotFoundError
	var unsupported *memtable.UnsupportedSyntaxError

	switch {
	case errors.Is(err, sqlutil.ErrEmptyQuery),
		errors.Is(err, sqlutil.ErrQueryTooLong),
		errors.Is(err, sqlutil.ErrNotASelect),
		errors.Is(err, sqlutil.ErrMultipleStatements),
		errors.As(err, &disallowed):
		_ = ErrorResponse(w, http.StatusBadRequest, "query_rejected", err.Error())
	case errors.As(err, &notFound):
		_ = ErrorResponse(w, http.StatusNotFound, "table_not_found", err.Error())
	case errors.As(err, &unsupported):
		_ = ErrorResponse(w, http.StatusBadRequest, "unsupported_syntax", err.Error())
	default:
		h.logger.Error("Query execution failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "execution_failed", "query execution failed")
	}
}

// parseSessionID parses the session UUID, treating an empty string as the
// nil session so single-tenant callers can omit it.
func parseSessionID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}
