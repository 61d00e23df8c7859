package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sightline-ai/sightline-engine/pkg/config"
	"github.com/sightline-ai/sightline-engine/pkg/memtable"
)

func TestHealthEndpoint(t *testing.T) {
	cfg := &config.Config{Version: "test", Env: "test"}
	handler := NewHealthHandler(cfg, memtable.NewRegistry(), zap.NewNop())

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("expected body %q, got %q", "ok", rec.Body.String())
	}
}

func TestPingEndpoint(t *testing.T) {
	cfg := &config.Config{
		Version:    "1.2.3",
		Env:        "staging",
		Datasource: config.DatasourceConfig{Type: "postgres"},
	}
	registry := memtable.NewRegistry()
	registry.Store(uuid.New()).AddTable("sales", []map[string]any{{"a": 1}})
	handler := NewHealthHandler(cfg, registry, zap.NewNop())

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp PingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %q", resp.Status)
	}
	if resp.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", resp.Version)
	}
	if resp.Service != "sightline-engine" {
		t.Errorf("expected service sightline-engine, got %q", resp.Service)
	}
	if resp.Environment != "staging" {
		t.Errorf("expected environment staging, got %q", resp.Environment)
	}
	if resp.Datasource != "postgres" {
		t.Errorf("expected datasource postgres, got %q", resp.Datasource)
	}
	if resp.Sessions != 1 {
		t.Errorf("expected 1 session, got %d", resp.Sessions)
	}
}
