package jsonutil

import (
	"encoding/json"
	"testing"
)

func TestFlexibleStringValue(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"string", `"EMEA"`, "EMEA"},
		{"integer", `10`, "10"},
		{"float", `2.5`, "2.5"},
		{"boolean", `true`, "true"},
		{"null", `null`, ""},
		{"empty", ``, ""},
		{"integer-valued float", `10.0`, "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlexibleStringValue(json.RawMessage(tt.raw))
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestFlexibleStringMap(t *testing.T) {
	got := FlexibleStringMap(map[string]json.RawMessage{
		"region": json.RawMessage(`"EMEA"`),
		"limit":  json.RawMessage(`10`),
	})
	if got["region"] != "EMEA" || got["limit"] != "10" {
		t.Errorf("unexpected map: %v", got)
	}

	if FlexibleStringMap(nil) != nil {
		t.Error("expected nil for nil input")
	}
}
