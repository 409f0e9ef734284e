package config

import (
	"testing"
	"time"
)

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/orders")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ALLOWED_ORIGINS", "https://portal.example.com,https://ops.example.com")
	t.Setenv("JOB_REMITTANCE_INTERVAL", "45m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := cfg.AllowedOrigins, "https://portal.example.com,https://ops.example.com"; got != want {
		t.Errorf("AllowedOrigins = %q, want %q", got, want)
	}
	if got, want := cfg.Jobs.RemittanceInterval, 45*time.Minute; got != want {
		t.Errorf("Jobs.RemittanceInterval = %s, want %s", got, want)
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "test-secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}
