package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.PDFDir == "" {
		cfg.PDFDir = "./pdfs"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./db/concepts.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "./db/concepts.bleve"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o"
	}
	if cfg.LLM.APIKeyEnv == "" {
		switch cfg.LLM.Provider {
		case "anthropic":
			cfg.LLM.APIKeyEnv = "ANTHROPIC_API_KEY"
		default:
			cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 8192
	}
	if cfg.LLM.RateLimitPerMinute == 0 {
		cfg.LLM.RateLimitPerMinute = 20
	}
	if cfg.LLM.BatchSize == 0 {
		cfg.LLM.BatchSize = 5
	}
	if cfg.LLM.MaxPromptChars == 0 {
		cfg.LLM.MaxPromptChars = 48000
	}
	if cfg.Consolidate.DefaultConfidence == 0 {
		cfg.Consolidate.DefaultConfidence = 0.8
	}
	if cfg.Consolidate.RelationStrength == 0 {
		cfg.Consolidate.RelationStrength = 1.0
	}
	if cfg.Consolidate.RelationType == "" {
		cfg.Consolidate.RelationType = "related"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf", ".docx", ".xlsx"}
	}
	if len(cfg.Watch.Directories) == 0 && cfg.PDFDir != "" {
		cfg.Watch.Directories = []string{cfg.PDFDir}
	}
}
