package config

import (
	"os"
	"testing"
)

func TestInit_DefaultsPopulateWithoutAnyConfigFile(t *testing.T) {
	v, err := Init()
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := v.GetString("grobid.host"); got != "localhost" {
		t.Errorf("grobid.host = %q, want localhost", got)
	}
	if got := v.GetInt("daemon.poll_interval_seconds"); got != 2 {
		t.Errorf("daemon.poll_interval_seconds = %d, want 2", got)
	}
}

func TestLoad_UnmarshalsIntoTypedConfig(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Grobid.Port != 8070 {
		t.Errorf("Grobid.Port = %d, want 8070", cfg.Grobid.Port)
	}
	if cfg.Ollama.BaseURL() != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL() = %q", cfg.Ollama.BaseURL())
	}
	if len(cfg.Language.Enabled) != 3 {
		t.Errorf("Language.Enabled = %v, want 3 entries", cfg.Language.Enabled)
	}
	if len(cfg.Validator.DenyList) == 0 {
		t.Error("expected a non-empty default deny list")
	}
}

func TestLoad_EnvironmentOverridesDefault(t *testing.T) {
	os.Setenv("SCANBIB_GROBID_HOST", "grobid.internal")
	defer os.Unsetenv("SCANBIB_GROBID_HOST")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Grobid.Host != "grobid.internal" {
		t.Errorf("Grobid.Host = %q, want env override to apply", cfg.Grobid.Host)
	}
}
