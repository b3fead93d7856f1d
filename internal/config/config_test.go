package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LIFECYCLE_REOPEN_POLICY", "")
	t.Setenv("LIFECYCLE_REJECT_MODE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Lifecycle.ReopenPolicy != "raiser_or_admin" {
		t.Errorf("ReopenPolicy = %q, want raiser_or_admin", cfg.Lifecycle.ReopenPolicy)
	}
	if cfg.Lifecycle.RejectMode != "rework" {
		t.Errorf("RejectMode = %q, want rework", cfg.Lifecycle.RejectMode)
	}
	if cfg.Lifecycle.MaxCodeAttempts != 10 {
		t.Errorf("MaxCodeAttempts = %d, want 10", cfg.Lifecycle.MaxCodeAttempts)
	}
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "reopen policy", key: "LIFECYCLE_REOPEN_POLICY", val: "everyone"},
		{name: "reject mode", key: "LIFECYCLE_REJECT_MODE", val: "discard"},
		{name: "zero attempts", key: "LIFECYCLE_MAX_CODE_ATTEMPTS", val: "0"},
		{name: "malformed integer", key: "REDIS_DB", val: "one"},
		{name: "malformed boolean", key: "NOTIFY_ENABLED", val: "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%s succeeded, want error", tt.key, tt.val)
			}
		})
	}
}

func TestAppConfigAddr(t *testing.T) {
	a := AppConfig{Host: "127.0.0.1", Port: "9000"}
	if got := a.Addr(); got != "127.0.0.1:9000" {
		t.Errorf("Addr() = %q", got)
	}
}

func TestProductionRequiresJWTSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted the development secret in production")
	}

	t.Setenv("AUTH_JWT_SECRET", "a-real-secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logger.Env != "production" || cfg.Logger.Service != cfg.App.Name {
		t.Errorf("logger config = %+v", cfg.Logger)
	}
}
