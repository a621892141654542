package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	// No config file in the test working directory: everything falls back
	// to defaults.
	t.Setenv("CONFIG_ENV", "test-missing")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load with defaults: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Port)
	}
	if cfg.DBPath == "" {
		t.Error("db path has no default")
	}
	if cfg.Secret == "" {
		t.Error("secret must never be empty")
	}

	// Two runs must not share the generated secret.
	other, err := Load()
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if other.Secret == cfg.Secret {
		t.Error("generated secrets are not random")
	}
}
