package config

import (
	"os"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Version != "test-version" {
		t.Errorf("expected version test-version, got %q", cfg.Version)
	}
	if cfg.Port != "8443" {
		t.Errorf("expected default port 8443, got %q", cfg.Port)
	}
	if cfg.Datasource.Type != "none" {
		t.Errorf("expected default datasource type none, got %q", cfg.Datasource.Type)
	}
	if cfg.Engine.RowLimit != 500 {
		t.Errorf("expected default row limit 500, got %d", cfg.Engine.RowLimit)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATASOURCE_TYPE", "postgres")
	t.Setenv("DATASOURCE_DATABASE", "analytics")
	t.Setenv("DATASOURCE_PASSWORD", "secret")
	t.Setenv("ENGINE_ROW_LIMIT", "250")

	cfg, err := Load("dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("expected port 9000, got %q", cfg.Port)
	}
	if cfg.Datasource.Type != "postgres" {
		t.Errorf("expected datasource type postgres, got %q", cfg.Datasource.Type)
	}
	if cfg.Datasource.Password != "secret" {
		t.Error("expected password from environment")
	}
	if cfg.Engine.RowLimit != 250 {
		t.Errorf("expected row limit 250, got %d", cfg.Engine.RowLimit)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	t.Chdir(t.TempDir())

	data, err := yaml.Marshal(map[string]any{
		"port": "7777",
		"datasource": map[string]any{
			"type":     "postgres",
			"host":     "db.internal",
			"database": "analytics",
		},
		"engine": map[string]any{
			"row_limit": 42,
		},
	})
	if err != nil {
		t.Fatalf("failed to marshal config: %v", err)
	}
	if err := os.WriteFile("config.yaml", data, 0o600); err != nil {
		t.Fatalf("failed to write config.yaml: %v", err)
	}

	cfg, err := Load("dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "7777" {
		t.Errorf("expected port 7777, got %q", cfg.Port)
	}
	if cfg.Datasource.Host != "db.internal" {
		t.Errorf("expected host db.internal, got %q", cfg.Datasource.Host)
	}
	if cfg.Engine.RowLimit != 42 {
		t.Errorf("expected row limit 42, got %d", cfg.Engine.RowLimit)
	}
}

func TestLoad_InvalidDatasourceType(t *testing.T) {
	t.Setenv("DATASOURCE_TYPE", "oracle")

	if _, err := Load("dev"); err == nil {
		t.Fatal("expected error for unknown datasource type")
	}
}

func TestLoad_MissingDatabaseName(t *testing.T) {
	t.Setenv("DATASOURCE_TYPE", "mssql")
	t.Setenv("DATASOURCE_DATABASE", "")

	if _, err := Load("dev"); err == nil {
		t.Fatal("expected error when datasource has no database name")
	}
}
