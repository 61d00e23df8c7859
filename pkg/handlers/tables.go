package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sightline-ai/sightline-engine/pkg/memtable"
)

// UploadTableRequest is the POST /api/tables/{name} body.
type UploadTableRequest struct {
	Rows []map[string]any `json:"rows"`
}

// TableSummary describes one in-memory table.
type TableSummary struct {
	Name     string            `json:"name"`
	RowCount int               `json:"row_count"`
	Columns  []memtable.Column `json:"columns"`
}

// TablesHandler manages a session's in-memory tables.
type TablesHandler struct {
	registry *memtable.Registry
	logger   *zap.Logger
}

// NewTablesHandler creates a new TablesHandler.
func NewTablesHandler(registry *memtable.Registry, logger *zap.Logger) *TablesHandler {
	return &TablesHandler{registry: registry, logger: logger}
}

// RegisterRoutes registers the tables handler's routes on the given mux.
func (h *TablesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tables", h.List)
	mux.HandleFunc("POST /api/tables/{name}", h.Upload)
	mux.HandleFunc("DELETE /api/tables/{name}", h.Remove)
	mux.HandleFunc("DELETE /api/tables", h.Reset)
}

// List handles GET /api/tables.
// Returns the schema of every table in the session.
func (h *TablesHandler) List(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseSessionID(r.URL.Query().Get("session_id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_session", "session_id must be a UUID")
		return
	}

	store := h.registry.Store(sessionID)
	summaries := make([]TableSummary, 0)
	for _, name := range store.TableNames() {
		schema, data, err := h.tableInfo(store, name)
		if err != nil {
			continue // table removed between listing and lookup
		}
		summaries = append(summaries, TableSummary{
			Name:     name,
			RowCount: len(data),
			Columns:  schema,
		})
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{"tables": summaries}); err != nil {
		h.logger.Error("Failed to encode tables response", zap.Error(err))
	}
}

// Upload handles POST /api/tables/{name}.
// Replaces the named table's contents with the uploaded rows and returns
// the inferred schema.
func (h *TablesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseSessionID(r.URL.Query().Get("session_id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_session", "session_id must be a UUID")
		return
	}
	name := r.PathValue("name")

	var req UploadTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if name == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_table", "table name is required")
		return
	}

	store := h.registry.Store(sessionID)
	store.AddTable(name, req.Rows)

	schema, _ := store.Schema(name)
	h.logger.Info("table uploaded",
		zap.String("session_id", sessionID.String()),
		zap.String("table", name),
		zap.Int("rows", len(req.Rows)))

	if err := WriteJSON(w, http.StatusOK, TableSummary{
		Name:     name,
		RowCount: len(req.Rows),
		Columns:  schema,
	}); err != nil {
		h.logger.Error("Failed to encode upload response", zap.Error(err))
	}
}

// Remove handles DELETE /api/tables/{name}.
func (h *TablesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseSessionID(r.URL.Query().Get("session_id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_session", "session_id must be a UUID")
		return
	}
	name := r.PathValue("name")

	store := h.registry.Store(sessionID)
	if _, err := store.Schema(name); err != nil {
		var notFound *memtable.TableNotFoundError
		if errors.As(err, &notFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "table_not_found", err.Error())
			return
		}
		h.logger.Error("Failed to look up table", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "remove_failed", "failed to remove table")
		return
	}
	store.RemoveTable(name)

	w.WriteHeader(http.StatusNoContent)
}

// Reset handles DELETE /api/tables.
// Drops every table in the session.
func (h *TablesHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sessionID, err := parseSessionID(r.URL.Query().Get("session_id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_session", "session_id must be a UUID")
		return
	}

	h.registry.Reset(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *TablesHandler) tableInfo(store *memtable.Store, name string) ([]memtable.Column, []map[string]any, error) {
	schema, err := store.Schema(name)
	if err != nil {
		return nil, nil, err
	}
	data, err := store.TableData(name)
	if err != nil {
		return nil, nil, err
	}
	return schema, data, nil
}
