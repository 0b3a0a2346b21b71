package config

import (
	"time"
)

// Config represents the complete configuration for the piece agent engine.
type Config struct {
	LLM      LLMConfig      `koanf:"llm"      validate:"required"`
	Resolver ResolverConfig `koanf:"resolver" validate:"required"`
	Catalog  CatalogConfig  `koanf:"catalog"  validate:"required"`
	Log      LogConfig      `koanf:"log"`
}

// LLMConfig configures the model used for property extraction.
type LLMConfig struct {
	Provider         string          `koanf:"provider"           validate:"oneof=openai anthropic ollama"`
	Model            string          `koanf:"model"              validate:"required"`
	APIKey           SensitiveString `koanf:"api_key"                                                       sensitive:"true"`
	BaseURL          string          `koanf:"base_url"`
	Temperature      float64         `koanf:"temperature"        validate:"min=0,max=2"`
	MaxTokens        int             `koanf:"max_tokens"         validate:"min=0"`
	Timeout          time.Duration   `koanf:"timeout"`
	// RetryAttempts counts retries after the first call; zero disables retrying.
	RetryAttempts    int             `koanf:"retry_attempts"     validate:"min=0,max=100"`
	RetryBackoffBase time.Duration   `koanf:"retry_backoff_base"`
	RetryBackoffMax  time.Duration   `koanf:"retry_backoff_max"`
	// RequestsPerSecond throttles model calls; zero disables throttling.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"min=0"`
}

// ResolverConfig bounds the concurrency of property resolution.
type ResolverConfig struct {
	MaxConcurrentProperties int `koanf:"max_concurrent_properties" validate:"min=1"`
	InstallConcurrency      int `koanf:"install_concurrency"       validate:"min=1,max=64"`
}

// CatalogConfig sizes the piece metadata cache.
type CatalogConfig struct {
	CacheSize int `koanf:"cache_size" validate:"min=1"`
}

type LogConfig struct {
	Level  string `koanf:"level"  validate:"oneof=debug info warn error disabled"`
	JSON   bool   `koanf:"json"`
	Source bool   `koanf:"source"`
}

// SensitiveString hides its value when printed or serialized.
type SensitiveString string

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Value returns the cleartext secret.
func (s SensitiveString) Value() string {
	return string(s)
}

// Default returns the built-in configuration every source overrides.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:         "openai",
			Model:            "gpt-4o-mini",
			Temperature:      0,
			MaxTokens:        0,
			Timeout:          60 * time.Second,
			RetryAttempts:    3,
			RetryBackoffBase: 100 * time.Millisecond,
			RetryBackoffMax:  10 * time.Second,
		},
		Resolver: ResolverConfig{
			MaxConcurrentProperties: 8,
			InstallConcurrency:      5,
		},
		Catalog: CatalogConfig{
			CacheSize: 256,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
