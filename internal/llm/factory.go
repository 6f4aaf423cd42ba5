package llm

import (
	"fmt"

	"github.com/spherical/packing-list-extractor/internal/config"
	"github.com/spherical/packing-list-extractor/internal/domain"
	"github.com/spherical/packing-list-extractor/internal/observability"
)

// NewVisionClient builds the client for the configured provider
func NewVisionClient(cfg config.LLMConfig, logger *observability.Logger) (domain.VisionClient, error) {
	if cfg.APIKey == "" {
		return nil, domain.ConfigError("API key is required", nil)
	}

	opts := []Option{
		WithMaxTokens(cfg.MaxTokens),
		WithTimeout(cfg.Timeout),
		WithLogger(logger),
	}

	switch cfg.Provider {
	case config.ProviderAnthropic, "":
		opts = append(opts, WithBaseURL(cfg.AnthropicBaseURL))
		return NewAnthropicClient(cfg.APIKey, cfg.Model, opts...), nil
	case config.ProviderOpenRouter:
		opts = append(opts, WithBaseURL(cfg.OpenRouterURL))
		return NewOpenRouterClient(cfg.APIKey, cfg.Model, opts...), nil
	default:
		return nil, domain.ConfigError(fmt.Sprintf("unsupported provider %q", cfg.Provider), nil)
	}
}
