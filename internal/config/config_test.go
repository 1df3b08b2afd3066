package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Database.Driver != "postgres" {
		t.Fatalf("unexpected default driver %q", cfg.Database.Driver)
	}
	if cfg.FreshRSS.WindowDays != 3 || cfg.FreshRSS.PageSize != 100 {
		t.Fatalf("unexpected freshrss defaults %+v", cfg.FreshRSS)
	}
	if cfg.Jobs.RetentionDays != 7 {
		t.Fatalf("unexpected retention default %d", cfg.Jobs.RetentionDays)
	}
	if cfg.Location().String() != "UTC" {
		t.Fatalf("unexpected default timezone %s", cfg.Location())
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
database:
  driver: sqlite
  dsn: file:test.db
freshrss:
  baseUrl: https://rss.example.com
  windowDays: 5
jobs:
  retentionDays: 14
timezone: Europe/Berlin
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()

	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "file:test.db" {
		t.Fatalf("yaml database not applied: %+v", cfg.Database)
	}
	if cfg.FreshRSS.BaseURL != "https://rss.example.com" || cfg.FreshRSS.WindowDays != 5 {
		t.Fatalf("yaml freshrss not applied: %+v", cfg.FreshRSS)
	}
	// Keys absent from the file keep their defaults.
	if cfg.FreshRSS.PageSize != 100 {
		t.Fatalf("default page size lost: %d", cfg.FreshRSS.PageSize)
	}
	if cfg.Jobs.RetentionDays != 14 {
		t.Fatalf("yaml retention not applied: %d", cfg.Jobs.RetentionDays)
	}
	if cfg.Location().String() != "Europe/Berlin" {
		t.Fatalf("timezone not bound: %s", cfg.Location())
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  driver: sqlite\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDriverEnv, "postgres")
	t.Setenv(databaseDSNEnv, "postgres://elsewhere/newsfeed")
	t.Setenv(freshRSSUserEnv, "reader")
	t.Setenv(thumbnailDirEnv, "/var/lib/newsfeed/thumbs")

	cfg := Load()

	if cfg.Database.Driver != "postgres" || cfg.Database.DSN != "postgres://elsewhere/newsfeed" {
		t.Fatalf("env database override lost: %+v", cfg.Database)
	}
	if cfg.FreshRSS.Username != "reader" {
		t.Fatalf("env freshrss override lost: %+v", cfg.FreshRSS)
	}
	if cfg.Thumbnails.Dir != "/var/lib/newsfeed/thumbs" {
		t.Fatalf("env thumbnail override lost: %+v", cfg.Thumbnails)
	}
}

func TestUnknownTimezoneFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("timezone: Nowhere/Invalid\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()
	if cfg.Location().String() != "UTC" {
		t.Fatalf("expected UTC fallback, got %s", cfg.Location())
	}
}
