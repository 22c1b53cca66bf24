package database

import (
	"strings"
	"testing"
)

func TestConvertToMigrateURL(t *testing.T) {
	got, err := convertToMigrateURL("postgres://u:p@localhost:5432/noor?sslmode=disable")
	if err != nil {
		t.Fatalf("convertToMigrateURL: %v", err)
	}
	if !strings.HasPrefix(got, "pgx5://") {
		t.Errorf("expected pgx5 scheme, got %q", got)
	}
	if !strings.Contains(got, "sslmode=disable") {
		t.Errorf("query parameters should survive conversion, got %q", got)
	}
}

func TestConvertToMigrateURLPostgresqlScheme(t *testing.T) {
	got, err := convertToMigrateURL("postgresql://u:p@h/db")
	if err != nil {
		t.Fatalf("convertToMigrateURL: %v", err)
	}
	if !strings.HasPrefix(got, "pgx5://") {
		t.Errorf("expected pgx5 scheme, got %q", got)
	}
}

func TestConvertToMigrateURLRejectsOtherSchemes(t *testing.T) {
	if _, err := convertToMigrateURL("mysql://u:p@h/db"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("reading embedded migrations: %v", err)
	}
	var ups, downs int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Errorf("expected paired up/down migrations, got %d up / %d down", ups, downs)
	}
}
