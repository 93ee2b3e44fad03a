package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %v, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Type != "sqlite" {
		t.Errorf("storage type = %v, want sqlite", cfg.Storage.Type)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %v, want info", cfg.Log.Level)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\nstorage:\n  type: memory\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LEXIA_SERVER__PORT", "9100")

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %v, want env override 9100", cfg.Server.Port)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("storage type = %v, want memory from file", cfg.Storage.Type)
	}
}

func TestLoad_APIKeySubstitution(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("openai:\n  api_key: ${TEST_OPENAI_KEY}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TEST_OPENAI_KEY", "sk-test-123")

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-test-123" {
		t.Errorf("api key = %q, want substituted value", cfg.OpenAI.APIKey)
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	tests := []struct {
		input string
		want  string
	}{
		{"${TEST_VAR}", "test-value"},
		{"prefix-${TEST_VAR}", "prefix-test-value"},
		{"no-vars", "no-vars"},
		{"${MISSING_VAR}", ""},
	}
	for _, tt := range tests {
		if got := substituteEnvVars(tt.input); got != tt.want {
			t.Errorf("substituteEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
