package postgres

import "testing"

func TestConnectionString(t *testing.T) {
	cfg := &Config{
		Host:     "db.example.com",
		Port:     5432,
		User:     "reader",
		Password: "s3cret",
		Database: "analytics",
		SSLMode:  "require",
	}

	got := cfg.ConnectionString()
	want := "host=db.example.com port=5432 user=reader password=s3cret dbname=analytics sslmode=require"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestConnectionString_DefaultSSLMode(t *testing.T) {
	cfg := &Config{Host: "localhost", Port: 5432, User: "u", Database: "d"}

	got := cfg.ConnectionString()
	want := "host=localhost port=5432 user=u password= dbname=d sslmode=prefer"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
