package llmadapter

import (
	"fmt"

	"github.com/compozy/pieceagent/engine/core"
	"github.com/compozy/pieceagent/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// NewModel creates the langchaingo model described by cfg.
func NewModel(cfg *config.LLMConfig) (llms.Model, error) {
	if cfg == nil {
		return nil, core.Errorf(core.ErrCodeInvalidConfig, nil, "llm config must not be nil")
	}
	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case ProviderOpenAI:
		model, err = createOpenAILLM(cfg)
	case ProviderAnthropic:
		model, err = createAnthropicLLM(cfg)
	case ProviderOllama:
		model, err = createOllamaLLM(cfg)
	default:
		return nil, core.Errorf(core.ErrCodeInvalidConfig,
			map[string]any{"provider": cfg.Provider}, "unsupported provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", cfg.Provider, err)
	}
	return model, nil
}

func createOpenAILLM(cfg *config.LLMConfig) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
	}
	if key := cfg.APIKey.Value(); key != "" {
		opts = append(opts, openai.WithToken(key))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	return openai.New(opts...)
}

func createAnthropicLLM(cfg *config.LLMConfig) (llms.Model, error) {
	opts := []anthropic.Option{
		anthropic.WithModel(cfg.Model),
	}
	if key := cfg.APIKey.Value(); key != "" {
		opts = append(opts, anthropic.WithToken(key))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return anthropic.New(opts...)
}

func createOllamaLLM(cfg *config.LLMConfig) (llms.Model, error) {
	opts := []ollama.Option{
		ollama.WithModel(cfg.Model),
		ollama.WithFormat("json"),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	return ollama.New(opts...)
}
