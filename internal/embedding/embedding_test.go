package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/config"
	"document-qa/internal/models"
)

func TestNewBuildsConfiguredProvider(t *testing.T) {
	for _, provider := range []string{config.ProviderOpenAI, config.ProviderOllama} {
		emb, err := New(config.LLMConfig{
			Provider: provider,
			BaseURL:  "http://127.0.0.1:1",
			Model:    "test-embed",
			Key:      "Bearer sk-test",
		})
		require.NoError(t, err, provider)
		assert.NotNil(t, emb, provider)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(config.LLMConfig{Provider: "bedrock", Model: "x"})
	assert.ErrorIs(t, err, models.ErrInvalidConfig)
}
