package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-host:5432/gatebook?sslmode=disable")
	t.Setenv("SESSION_STRATEGY", "redis")
	t.Setenv("REDIS_ADDR", "env-redis:6379")
	t.Setenv("LOGIN_RATE_LIMIT_PER_MINUTE", "30")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: "8080"
logLevel: "info"
databaseURL: "postgres://localhost:5432/gatebook?sslmode=disable"
sessionStrategy: "memory"
sessionTTL: "12h"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DatabaseURL != "postgres://env-host:5432/gatebook?sslmode=disable" {
		t.Fatalf("databaseURL = %q, want env override", cfg.DatabaseURL)
	}
	if cfg.SessionStrategy != "redis" || cfg.RedisAddr != "env-redis:6379" {
		t.Fatalf("session strategy = %q addr = %q", cfg.SessionStrategy, cfg.RedisAddr)
	}
	if cfg.LoginRateLimitPerMinute != 30 {
		t.Fatalf("loginRateLimitPerMinute = %d, want 30", cfg.LoginRateLimitPerMinute)
	}

	ttl, err := ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		t.Fatalf("parse sessionTTL: %v", err)
	}
	if ttl != 12*time.Hour {
		t.Fatalf("sessionTTL = %v, want 12h", ttl)
	}
}

func TestLoadValidation(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		t.Helper()
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		return p
	}

	cases := []struct {
		name    string
		content string
	}{
		{"missing port", `databaseURL: "postgres://localhost/gatebook"`},
		{"missing database", `port: "8080"`},
		{"jwt without secret", "port: \"8080\"\ndatabaseURL: \"postgres://localhost/gatebook\"\nsessionStrategy: \"jwt\"\n"},
		{"unknown strategy", "port: \"8080\"\ndatabaseURL: \"postgres://localhost/gatebook\"\nsessionStrategy: \"cookie\"\n"},
		{"minio without credentials", "port: \"8080\"\ndatabaseURL: \"postgres://localhost/gatebook\"\nminioEndpoint: \"localhost:9000\"\n"},
		{"unknown storage mode", "port: \"8080\"\nstorageMode: \"sqlite\"\n"},
	}
	for i, tc := range cases {
		if _, err := Load(write(tc.name+".yaml", tc.content)); err == nil {
			t.Fatalf("case %d (%s): Load accepted invalid config", i, tc.name)
		}
	}
}

func TestLoadMemoryStorageMode(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "port: \"8080\"\nstorageMode: \"memory\"\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.StorageMode != "memory" {
		t.Fatalf("storageMode = %q, want memory", cfg.StorageMode)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("databaseURL = %q, want empty", cfg.DatabaseURL)
	}
}
