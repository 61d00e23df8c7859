package sql

import (
	"testing"
)

func TestCheckValueForInjection(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		wantSQLi bool
	}{
		{"plain string", "EMEA", false},
		{"date string", "2024-01-01", false},
		{"name with apostrophe", "O'Brien", false},
		{"classic tautology", "1' OR '1'='1", true},
		{"union select", "x' UNION SELECT password FROM users--", true},
		{"number not checked", 42, false},
		{"bool not checked", true, false},
		{"nil not checked", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckValueForInjection("key", tt.value)
			if tt.wantSQLi && result == nil {
				t.Error("expected injection to be detected")
			}
			if !tt.wantSQLi && result != nil {
				t.Errorf("expected clean value, got fingerprint %q", result.Fingerprint)
			}
		})
	}
}

func TestCheckValueForInjection_ResultFields(t *testing.T) {
	result := CheckValueForInjection("region", "1' OR '1'='1")
	if result == nil {
		t.Fatal("expected injection to be detected")
	}
	if !result.IsSQLi {
		t.Error("expected IsSQLi true")
	}
	if result.Key != "region" {
		t.Errorf("expected key %q, got %q", "region", result.Key)
	}
	if result.Fingerprint == "" {
		t.Error("expected a fingerprint")
	}
}

func TestCheckAllValues(t *testing.T) {
	results := CheckAllValues(map[string]any{
		"region": "EMEA",
		"limit":  100,
		"bad":    "1' OR '1'='1",
	})
	if len(results) != 1 {
		t.Fatalf("expected 1 offending value, got %d", len(results))
	}
	if results[0].Key != "bad" {
		t.Errorf("expected key %q, got %q", "bad", results[0].Key)
	}
}
