package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaultsWithoutFile(t *testing.T) {
	cfg, errLoad := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Database.DSN != "file:greenfees.db" {
		t.Fatalf("expected default dsn, got %q", cfg.Database.DSN)
	}
	if cfg.Session.TTL != 30*time.Minute {
		t.Fatalf("expected default session ttl, got %v", cfg.Session.TTL)
	}
}

func TestLoadReadsYAMLAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9000
database:
  dsn: "postgres://gf:gf@localhost:5432/greenfees"
gateway:
  webhook_secret: "filesecret"
session:
  ttl: 15m
`)
	if errWrite := os.WriteFile(path, content, 0o600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}

	t.Setenv("GREENFEES_WEBHOOK_SECRET", "envsecret")

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Server.Port != 9000 {
		t.Fatalf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Database.DSN != "postgres://gf:gf@localhost:5432/greenfees" {
		t.Fatalf("unexpected dsn: %q", cfg.Database.DSN)
	}
	if cfg.Gateway.WebhookSecret != "envsecret" {
		t.Fatalf("expected env override to win, got %q", cfg.Gateway.WebhookSecret)
	}
	if cfg.Session.TTL != 15*time.Minute {
		t.Fatalf("expected 15m session ttl, got %v", cfg.Session.TTL)
	}
}
