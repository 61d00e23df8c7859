package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sightline-ai/sightline-engine/pkg/memtable"
	"github.com/sightline-ai/sightline-engine/pkg/services"
)

func newQueryTestServer(t *testing.T) (*http.ServeMux, *memtable.Registry) {
	t.Helper()
	registry := memtable.NewRegistry()
	svc := services.NewQueryService(nil, registry, 500, zap.NewNop())

	mux := http.NewServeMux()
	NewQueryHandler(svc, zap.NewNop()).RegisterRoutes(mux)
	NewTablesHandler(registry, zap.NewNop()).RegisterRoutes(mux)
	return mux, registry
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestQueryExecute(t *testing.T) {
	mux, registry := newQueryTestServer(t)
	sessionID := uuid.New()

	registry.Store(sessionID).AddTable("sales", []map[string]any{
		{"category": "tools", "amount": float64(100)},
		{"category": "parts", "amount": float64(30)},
	})

	rec := postJSON(t, mux, "/api/query", ExecuteQueryRequest{
		SessionID: sessionID.String(),
		SQL:       "SELECT category, SUM(amount) AS total FROM sales GROUP BY category",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result services.ExecuteResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.RowCount)
	assert.Len(t, result.Rows, 2)
}

func TestQueryExecute_RejectedSQL(t *testing.T) {
	mux, _ := newQueryTestServer(t)

	rec := postJSON(t, mux, "/api/query", ExecuteQueryRequest{
		SQL: "DELETE FROM sales",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "query_rejected", resp["error"])
}

func TestQueryExecute_UnknownTable(t *testing.T) {
	mux, _ := newQueryTestServer(t)

	rec := postJSON(t, mux, "/api/query", ExecuteQueryRequest{
		SessionID: uuid.New().String(),
		SQL:       "SELECT * FROM sales",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "table_not_found", resp["error"])
	assert.Contains(t, resp["message"], "available tables: none")
}

func TestQueryExecute_BadSessionID(t *testing.T) {
	mux, _ := newQueryTestServer(t)

	rec := postJSON(t, mux, "/api/query", map[string]string{
		"session_id": "not-a-uuid",
		"sql":        "SELECT 1",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryExecute_InvalidBody(t *testing.T) {
	mux, _ := newQueryTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryValidate(t *testing.T) {
	mux, _ := newQueryTestServer(t)

	t.Run("valid query", func(t *testing.T) {
		rec := postJSON(t, mux, "/api/query/validate", map[string]string{
			"sql": "SELECT * FROM sales;",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ValidateQueryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Valid)
		assert.Equal(t, "SELECT * FROM sales", resp.NormalizedSQL)
	})

	t.Run("rejected query", func(t *testing.T) {
		rec := postJSON(t, mux, "/api/query/validate", map[string]string{
			"sql": "DROP TABLE sales",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ValidateQueryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Valid)
		assert.NotEmpty(t, resp.Error)
	})
}
