package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "praximous.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadSubstitutesEnvVars(t *testing.T) {
	t.Setenv("PRAX_TEST_PORT", "9999")

	path := writeConfig(t, `{
		"server": {"port": ${PRAX_TEST_PORT:8000}, "log_level": "${PRAX_TEST_LEVEL:info}"},
		"providers": [
			{"name": "p1", "type": "gemini", "model": "gemini-1.5-pro", "api_key_env": "GEMINI_API_KEY", "priority": 1, "enabled": true}
		]
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999 from env", cfg.Server.Port)
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("log_level = %q, want default info", cfg.Server.LogLevel)
	}
	if len(cfg.Providers) != 1 || cfg.Providers[0].APIKeyEnv != "GEMINI_API_KEY" {
		t.Fatalf("providers not parsed: %+v", cfg.Providers)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{"server": {"port": 8000}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Audit.Driver != "sqlite" {
		t.Errorf("audit driver = %q, want sqlite default", cfg.Audit.Driver)
	}
	if cfg.Audit.SQLitePath == "" {
		t.Error("expected default sqlite path")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
