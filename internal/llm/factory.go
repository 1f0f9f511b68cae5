package llm

import (
	"fmt"
	"strings"

	"github.com/chalkline/papergraph/internal/config"
)

// NewClient builds a Client for the configured provider.
func NewClient(cfg config.LLMConfig) (Client, error) {
	apiKey := cfg.APIKey()

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("missing API key: set %s", cfg.APIKeyEnv)
		}
		return NewOpenAIClient(apiKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens, cfg.Temperature), nil

	case "anthropic":
		if apiKey == "" {
			return nil, fmt.Errorf("missing API key: set %s", cfg.APIKeyEnv)
		}
		return NewAnthropicClient(apiKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens), nil

	case "ollama":
		// Ollama exposes an OpenAI-compatible API under /v1.
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = strings.TrimRight(baseURL, "/") + "/v1"
		}
		if apiKey == "" {
			apiKey = "ollama"
		}
		return NewOpenAIClient(apiKey, cfg.Model, baseURL, cfg.MaxTokens, cfg.Temperature), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", cfg.Provider)
	}
}
