// Package config provides configuration loading for the packing-list extractor.
// Supports YAML files, environment variables, and CLI overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spherical/packing-list-extractor/internal/domain"
)

// Supported vision providers.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
)

// Config holds all configuration for the extractor.
type Config struct {
	LLM           LLMConfig           `yaml:"llm"`
	PDF           PDFConfig           `yaml:"pdf"`
	Output        OutputConfig        `yaml:"output"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LLMConfig holds vision API settings. APIKey is never read from YAML.
type LLMConfig struct {
	Provider         string        `yaml:"provider"`
	Model            string        `yaml:"model"`
	MaxTokens        int           `yaml:"max_tokens"`
	Timeout          time.Duration `yaml:"timeout"`
	AnthropicBaseURL string        `yaml:"anthropic_base_url"`
	OpenRouterURL    string        `yaml:"openrouter_url"`
	APIKey           string        `yaml:"-"`
}

// PDFConfig holds page rendering settings.
type PDFConfig struct {
	DPI         int    `yaml:"dpi"`
	JPEGQuality int    `yaml:"jpeg_quality"`
	TempDir     string `yaml:"temp_dir"`
	Enhance     bool   `yaml:"enhance"`
	KeepTemp    bool   `yaml:"keep_temp"`
}

// OutputConfig holds CSV output settings.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from a YAML file and applies environment overrides.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.ConfigError("read config file", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigError("parse config file", err)
		}
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))

	applyEnvOverrides(cfg)

	return cfg, nil
}

// DefaultConfig returns a configuration matching the tool's documented defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:         ProviderAnthropic,
			MaxTokens:        8192,
			Timeout:          2 * time.Minute,
			AnthropicBaseURL: "https://api.anthropic.com",
			OpenRouterURL:    "https://openrouter.ai/api/v1/chat/completions",
		},
		PDF: PDFConfig{
			DPI:         domain.DefaultDPI,
			JPEGQuality: 95,
			TempDir:     "temp",
		},
		Output: OutputConfig{
			Dir: "output",
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
	}
}

// Validate checks the configuration for errors. It must run after CLI
// overrides have been applied.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderAnthropic, ProviderOpenRouter:
	default:
		return domain.ConfigError(fmt.Sprintf("invalid llm provider: %q", c.LLM.Provider), nil)
	}

	if c.LLM.APIKey == "" {
		return domain.ConfigError(fmt.Sprintf("%s not found in environment variables", c.APIKeyEnv()), nil)
	}

	if c.LLM.MaxTokens < 1 {
		return domain.ConfigError(fmt.Sprintf("max_tokens must be positive, got %d", c.LLM.MaxTokens), nil)
	}

	if c.PDF.DPI < 36 || c.PDF.DPI > 1200 {
		return domain.ConfigError(fmt.Sprintf("dpi must be between 36 and 1200, got %d", c.PDF.DPI), nil)
	}

	if c.PDF.JPEGQuality < 1 || c.PDF.JPEGQuality > 100 {
		return domain.ConfigError(fmt.Sprintf("jpeg_quality must be between 1 and 100, got %d", c.PDF.JPEGQuality), nil)
	}

	if strings.TrimSpace(c.Output.Dir) == "" {
		return domain.ConfigError("output dir cannot be empty", nil)
	}

	if strings.TrimSpace(c.PDF.TempDir) == "" {
		return domain.ConfigError("temp dir cannot be empty", nil)
	}

	return nil
}

// APIKeyEnv names the environment variable holding the active provider's key.
func (c *Config) APIKeyEnv() string {
	if c.LLM.Provider == ProviderOpenRouter {
		return "OPENROUTER_API_KEY"
	}
	return "ANTHROPIC_API_KEY"
}

// ResolveAPIKey reads the credential for the active provider from the
// environment. Call it again after the provider changes.
func (c *Config) ResolveAPIKey() {
	c.LLM.APIKey = os.Getenv(c.APIKeyEnv())
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = strings.ToLower(v)
	}

	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("PDF_DPI"); v != "" {
		if dpi, err := strconv.Atoi(v); err == nil {
			cfg.PDF.DPI = dpi
		}
	}

	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}

	if v := os.Getenv("TEMP_DIR"); v != "" {
		cfg.PDF.TempDir = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	cfg.ResolveAPIKey()
}
