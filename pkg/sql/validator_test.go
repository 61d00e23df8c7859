package sql

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateQuery_ValidQueries(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple select without semicolon",
			input:    "SELECT 1",
			expected: "SELECT 1",
		},
		{
			name:     "simple select with trailing semicolon",
			input:    "SELECT 1;",
			expected: "SELECT 1",
		},
		{
			name:     "select with trailing semicolon and whitespace",
			input:    "SELECT 1;  ",
			expected: "SELECT 1",
		},
		{
			name:     "select with leading and trailing whitespace",
			input:    "  SELECT * FROM users  ",
			expected: "SELECT * FROM users",
		},
		{
			name:     "lowercase select",
			input:    "select id from orders",
			expected: "select id from orders",
		},
		{
			name:     "with statement",
			input:    "WITH t AS (SELECT 1) SELECT * FROM t",
			expected: "WITH t AS (SELECT 1) SELECT * FROM t",
		},
		{
			name:     "semicolon inside single quoted string",
			input:    "SELECT * FROM users WHERE name = 'test;test'",
			expected: "SELECT * FROM users WHERE name = 'test;test'",
		},
		{
			name:     "semicolon inside double quoted identifier",
			input:    `SELECT * FROM "table;name"`,
			expected: `SELECT * FROM "table;name"`,
		},
		{
			name:     "SQL standard escaped single quote",
			input:    "SELECT * FROM users WHERE name = 'O''Brien'",
			expected: "SELECT * FROM users WHERE name = 'O''Brien'",
		},
		{
			name:     "query with newlines",
			input:    "SELECT *\nFROM users\nWHERE id = 1;",
			expected: "SELECT *\nFROM users\nWHERE id = 1",
		},
		{
			name:     "created_at does not trip CREATE denylist",
			input:    "SELECT created_at FROM orders",
			expected: "SELECT created_at FROM orders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateQuery(tt.input)
			if result.Error != nil {
				t.Fatalf("expected no error, got %v", result.Error)
			}
			if result.NormalizedSQL != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result.NormalizedSQL)
			}
		})
	}
}

func TestValidateQuery_RejectedQueries(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "empty string",
			input:   "",
			wantErr: ErrEmptyQuery,
		},
		{
			name:    "whitespace only",
			input:   "   \n\t  ",
			wantErr: ErrEmptyQuery,
		},
		{
			name:    "over length cap",
			input:   "SELECT '" + strings.Repeat("x", MaxQueryLength) + "'",
			wantErr: ErrQueryTooLong,
		},
		{
			name:    "stacked statements",
			input:   "SELECT 1; DROP TABLE users",
			wantErr: ErrMultipleStatements,
		},
		{
			name:    "stacked statements with trailing semicolon",
			input:   "SELECT 1; SELECT 2;",
			wantErr: ErrMultipleStatements,
		},
		{
			name:    "not a select",
			input:   "EXPLAIN SELECT 1",
			wantErr: ErrNotASelect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateQuery(tt.input)
			if !errors.Is(result.Error, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, result.Error)
			}
		})
	}
}

func TestValidateQuery_DisallowedOperations(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantMatch string
	}{
		{
			name:      "insert",
			input:     "INSERT INTO users VALUES (1)",
			wantMatch: "INSERT",
		},
		{
			name:      "update",
			input:     "UPDATE users SET name = 'x'",
			wantMatch: "UPDATE",
		},
		{
			name:      "delete inside select",
			input:     "SELECT * FROM users WHERE id IN (DELETE FROM t RETURNING id)",
			wantMatch: "DELETE",
		},
		{
			name:      "lowercase drop",
			input:     "select 1 union drop table t",
			wantMatch: "drop",
		},
		{
			name:      "truncate",
			input:     "TRUNCATE TABLE users",
			wantMatch: "TRUNCATE",
		},
		{
			name:      "exec",
			input:     "SELECT 1 WHERE EXEC sp_who",
			wantMatch: "EXEC",
		},
		{
			name:      "pg_sleep",
			input:     "SELECT pg_sleep(10)",
			wantMatch: "pg_sleep",
		},
		{
			name:      "pg_read_file",
			input:     "SELECT pg_read_file('/etc/passwd')",
			wantMatch: "pg_read_file",
		},
		{
			name:      "line comment",
			input:     "SELECT 1 -- hidden",
			wantMatch: "--",
		},
		{
			name:      "block comment",
			input:     "SELECT /* hidden */ 1",
			wantMatch: "/*",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateQuery(tt.input)
			if result.Error == nil {
				t.Fatal("expected an error, got none")
			}
			var opErr *DisallowedOperationError
			if !errors.As(result.Error, &opErr) {
				t.Fatalf("expected DisallowedOperationError, got %v", result.Error)
			}
			if opErr.Match != tt.wantMatch {
				t.Errorf("expected match %q, got %q", tt.wantMatch, opErr.Match)
			}
		})
	}
}

func TestStripTrailingSemicolon(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no semicolon", "SELECT 1", "SELECT 1"},
		{"trailing semicolon", "SELECT 1;", "SELECT 1"},
		{"semicolon then whitespace", "SELECT 1;\n", "SELECT 1"},
		{"only first trailing semicolon removed", "SELECT 1;;", "SELECT 1;"},
		{"interior semicolon kept", "SELECT ';' AS c", "SELECT ';' AS c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripTrailingSemicolon(tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
