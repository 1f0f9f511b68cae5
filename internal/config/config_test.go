package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
pdf_dir: ./pdfs
storage:
  database_path: ./db/test.db
llm:
  provider: anthropic
  model: claude-sonnet-4-20250514
  rate_limit_per_minute: 10
consolidate:
  default_confidence: 0.7
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("expected debug true")
	}
	if cfg.PDFDir != filepath.Join(dir, "pdfs") {
		t.Errorf("pdf_dir not expanded relative to config dir: %s", cfg.PDFDir)
	}
	if cfg.Storage.DatabasePath != filepath.Join(dir, "db/test.db") {
		t.Errorf("database_path not expanded: %s", cfg.Storage.DatabasePath)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("provider = %s", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKeyEnv != "ANTHROPIC_API_KEY" {
		t.Errorf("api_key_env default = %s", cfg.LLM.APIKeyEnv)
	}
	if cfg.LLM.RateLimitPerMinute != 10 {
		t.Errorf("rate_limit_per_minute = %d", cfg.LLM.RateLimitPerMinute)
	}
	if cfg.Consolidate.DefaultConfidence != 0.7 {
		t.Errorf("default_confidence = %v", cfg.Consolidate.DefaultConfidence)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("default provider = %s", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("default api_key_env = %s", cfg.LLM.APIKeyEnv)
	}
	if cfg.Consolidate.DefaultConfidence != 0.8 {
		t.Errorf("default confidence = %v", cfg.Consolidate.DefaultConfidence)
	}
	if cfg.Consolidate.RelationStrength != 1.0 {
		t.Errorf("default relation strength = %v", cfg.Consolidate.RelationStrength)
	}
	if cfg.Consolidate.RelationType != "related" {
		t.Errorf("default relation type = %q", cfg.Consolidate.RelationType)
	}
	if len(cfg.Watch.Directories) != 1 || cfg.Watch.Directories[0] != cfg.PDFDir {
		t.Errorf("watch directories should default to pdf_dir, got %v", cfg.Watch.Directories)
	}
	if cfg.Watch.RecursiveOrDefault() {
		t.Error("recursive should default to false")
	}
}
