package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("AI_TIMEOUT", "")

	cfg := Load()
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.AI.Model != "gpt-4o-mini" {
		t.Errorf("expected default model, got %s", cfg.AI.Model)
	}
	if cfg.AI.Timeout != 60*time.Second {
		t.Errorf("expected 60s timeout, got %s", cfg.AI.Timeout)
	}
	if cfg.Auth.JWTAudience != "authenticated" {
		t.Errorf("expected default audience, got %s", cfg.Auth.JWTAudience)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("AI_TIMEOUT", "15s")
	t.Setenv("UPLOAD_LIMIT_MB", "not-a-number")
	t.Setenv("MIGRATE_ON_START", "true")

	cfg := Load()
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Database.MaxConns != 25 {
		t.Errorf("expected 25 max conns, got %d", cfg.Database.MaxConns)
	}
	if cfg.AI.Timeout != 15*time.Second {
		t.Errorf("expected 15s, got %s", cfg.AI.Timeout)
	}
	if cfg.Server.UploadLimitMB != 50 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.Server.UploadLimitMB)
	}
	if !cfg.Server.MigrateOnStart {
		t.Error("expected MIGRATE_ON_START=true to enable migrations")
	}
}

func TestValidateServer(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ValidateServer(); err == nil {
		t.Error("expected error for missing DATABASE_URL")
	}
	cfg.Database.URL = "postgres://localhost/billing"
	if err := cfg.ValidateServer(); err == nil {
		t.Error("expected error for missing AUTH_JWT_SECRET")
	}
	cfg.Auth.JWTSecret = "secret"
	if err := cfg.ValidateServer(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
