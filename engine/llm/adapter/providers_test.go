package llmadapter

import (
	"testing"

	"github.com/compozy/pieceagent/engine/core"
	"github.com/compozy/pieceagent/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModel(t *testing.T) {
	t.Run("Should build each supported provider without network access", func(t *testing.T) {
		for _, provider := range []string{ProviderOpenAI, ProviderAnthropic, ProviderOllama} {
			t.Run(provider, func(t *testing.T) {
				model, err := NewModel(&config.LLMConfig{
					Provider: provider,
					Model:    "test-model",
					APIKey:   config.SensitiveString("sk-test"),
					BaseURL:  "http://127.0.0.1:1",
				})
				require.NoError(t, err)
				assert.NotNil(t, model)
			})
		}
	})

	t.Run("Should reject unknown providers", func(t *testing.T) {
		_, err := NewModel(&config.LLMConfig{Provider: "mystery", Model: "m"})
		require.Error(t, err)
		assert.True(t, core.HasCode(err, core.ErrCodeInvalidConfig))
	})

	t.Run("Should reject a nil configuration", func(t *testing.T) {
		_, err := NewModel(nil)
		assert.True(t, core.HasCode(err, core.ErrCodeInvalidConfig))
	})
}
