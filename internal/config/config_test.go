package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nulzo/llm-bridge/internal/llm"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-123")
	t.Setenv("OPENAI_DEFAULT_MODEL", "gpt-4o-mini")

	cfg, err := Load()
	require.NoError(t, err)

	d, err := cfg.Default(string(llm.OpenAI))
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", d.APIKey)
	assert.Equal(t, "gpt-4o-mini", d.Model)
	assert.False(t, d.UseResponsesAPI)
}

func TestLoadMissingProviderHasNoDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	_, err = cfg.Default(string(llm.Anthropic))
	if err == nil {
		t.Skip("ANTHROPIC_API_KEY set in test environment")
	}
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestOllamaNeedsOnlyBaseURL(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://inference:11434")

	cfg, err := Load()
	require.NoError(t, err)

	d, err := cfg.Default(string(llm.Ollama))
	require.NoError(t, err)
	assert.Equal(t, "http://inference:11434", d.BaseURL)
	assert.Empty(t, d.APIKey)
}

func TestResponsesAPIFlag(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-123")
	t.Setenv("OPENAI_USE_RESPONSES_API", "true")

	cfg, err := Load()
	require.NoError(t, err)

	d, err := cfg.Default(string(llm.OpenAI))
	require.NoError(t, err)
	assert.True(t, d.UseResponsesAPI)
}

func TestDefaultReturnsClone(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-123")

	cfg, err := Load()
	require.NoError(t, err)

	first, err := cfg.Default(string(llm.OpenAI))
	require.NoError(t, err)
	first.Model = "mutated"

	second, err := cfg.Default(string(llm.OpenAI))
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", second.Model)
}
