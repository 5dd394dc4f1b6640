package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Load.ChunkSize != 10000 {
		t.Errorf("ChunkSize = %d, want 10000", cfg.Load.ChunkSize)
	}
	if cfg.Analysis.MinYears != 10 {
		t.Errorf("MinYears = %d, want 10", cfg.Analysis.MinYears)
	}
	if cfg.Databases.Postgres == "" || cfg.Databases.SQLite == "" {
		t.Errorf("default DSNs missing: %+v", cfg.Databases)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `databases:
  sqlite: "custom.db"
load:
  chunk_size: 500
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Databases.SQLite != "custom.db" {
		t.Errorf("SQLite = %q, want custom.db", cfg.Databases.SQLite)
	}
	if cfg.Load.ChunkSize != 500 {
		t.Errorf("ChunkSize = %d, want 500", cfg.Load.ChunkSize)
	}
	// Untouched sections keep their defaults.
	if cfg.Databases.Postgres == "" {
		t.Error("Postgres DSN lost its default")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MHDB_SQLITE_PATH", "/tmp/env.db")
	t.Setenv("MHDB_POSTGRES_DSN", "postgres://env")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Databases.SQLite != "/tmp/env.db" {
		t.Errorf("SQLite = %q, want env override", cfg.Databases.SQLite)
	}
	if cfg.Databases.Postgres != "postgres://env" {
		t.Errorf("Postgres = %q, want env override", cfg.Databases.Postgres)
	}
}

func TestDSN(t *testing.T) {
	cfg := Default()
	if cfg.DSN("sqlite") != cfg.Databases.SQLite {
		t.Error("DSN(sqlite) mismatch")
	}
	if cfg.DSN("oracle") != "" {
		t.Error("unknown engine returned a DSN")
	}
}
