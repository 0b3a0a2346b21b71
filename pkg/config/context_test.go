package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	t.Run("Should return the attached configuration", func(t *testing.T) {
		cfg := Default()
		cfg.LLM.Model = "custom"
		ctx := ContextWithConfig(t.Context(), cfg)
		assert.Same(t, cfg, FromContext(ctx))
	})

	t.Run("Should fall back to defaults", func(t *testing.T) {
		assert.Equal(t, Default(), FromContext(context.Background()))
	})
}
