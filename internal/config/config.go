// Package config provides configuration loading and structs for papergraph.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application. It is an explicit value
// passed into components at construction; there is no package-level state.
type Config struct {
	Debug       bool              `yaml:"debug"`
	PDFDir      string            `yaml:"pdf_dir"`
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	LLM         LLMConfig         `yaml:"llm"`
	Consolidate ConsolidateConfig `yaml:"consolidate"`
	Watch       WatchConfig       `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database and the concept search index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// LLMConfig holds extraction model settings. The API key is never read from
// the config file; it comes from the environment variable named by APIKeyEnv
// (a .env file is honored when present).
type LLMConfig struct {
	Provider           string  `yaml:"provider"` // "openai", "anthropic", or "ollama"
	Model              string  `yaml:"model"`
	BaseURL            string  `yaml:"base_url"`
	APIKeyEnv          string  `yaml:"api_key_env"`
	MaxTokens          int     `yaml:"max_tokens"`
	Temperature        float32 `yaml:"temperature"`
	RateLimitPerMinute int     `yaml:"rate_limit_per_minute"`
	BatchSize          int     `yaml:"batch_size"` // papers per analyze run
	PromptPath         string  `yaml:"prompt_path"`
	MaxPromptChars     int     `yaml:"max_prompt_chars"`
}

// APIKey returns the API key from the configured environment variable.
func (l *LLMConfig) APIKey() string {
	return os.Getenv(l.APIKeyEnv)
}

// ConsolidateConfig holds normalization defaults for the consolidation engine.
// DefaultConfidence applies to candidates whose confidence is missing or not
// coercible (0.8); RelationStrength applies to newly created edges (1.0).
// The two defaults are intentionally different.
type ConsolidateConfig struct {
	DefaultConfidence float64 `yaml:"default_confidence"`
	RelationStrength  float64 `yaml:"relation_strength"`
	RelationType      string  `yaml:"relation_type"`
}

// WatchConfig holds directory watch settings for the watch command.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to false
// when unset (the PDF drop directory is usually flat).
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return false
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.PDFDir = expandPath(cfg.PDFDir, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	if cfg.LLM.PromptPath != "" {
		cfg.LLM.PromptPath = expandPath(cfg.LLM.PromptPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
