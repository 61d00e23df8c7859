package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, ErrorResponse(rec, http.StatusNotFound, "table_not_found", "no such table"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "table_not_found", body["error"])
	assert.Equal(t, "no such table", body["message"])
}

func TestWriteJSON_OKSkipsExplicitStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusOK, map[string]string{"k": "v"}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"k":"v"}`, rec.Body.String())
}
