package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// Test helper functions in settings.go

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSettingsShow(t *testing.T) {
	setupTestServices(t)

	out, err := runCLI(t, "", "settings")

	require.NoError(t, err)
	assert.Contains(t, out, "[Embedding]")
	assert.Contains(t, out, "[Chunking]")
	assert.Contains(t, out, "  Size: 1000")
	assert.Contains(t, out, "  Overlap: 200")
	assert.Contains(t, out, "  Batch size: 5")
	assert.Contains(t, out, "  Top k: 3")
	assert.Contains(t, out, "  Mode: chef")
}

func TestSettingsSet(t *testing.T) {
	env := setupTestServices(t)

	out, err := runCLI(t, "", "settings", "set", "retrieval.top_k", "5")

	require.NoError(t, err)
	assert.Contains(t, out, "Set retrieval.top_k = 5")
	settings, err := env.settings.Get()
	require.NoError(t, err)
	assert.Equal(t, 5, settings.Retrieval.TopK)
}

func TestSettingsSet_MasksAPIKey(t *testing.T) {
	setupTestServices(t)

	out, err := runCLI(t, "", "settings", "set", "llm.api_key", "sk-1234567890abcdef")

	require.NoError(t, err)
	assert.Contains(t, out, "Set llm.api_key = sk-1...cdef")
	assert.NotContains(t, out, "1234567890")
}

func TestSettingsSet_EmbeddingModelNote(t *testing.T) {
	setupTestServices(t)

	out, err := runCLI(t, "", "settings", "set", "embedding.model", "mxbai-embed-large")

	require.NoError(t, err)
	assert.Contains(t, out, "Ingest your documents again.")
}

func TestSettingsSet_Invalid(t *testing.T) {
	setupTestServices(t)

	_, err := runCLI(t, "", "settings", "set", "retrieval.colour", "blue")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = runCLI(t, "", "settings", "set", "retrieval.top_k", "many")
	require.Error(t, err)

	_, err = runCLI(t, "", "settings", "set", "retrieval.top_k")
	require.Error(t, err)
}

func TestSettingsUnset(t *testing.T) {
	env := setupTestServices(t)
	require.NoError(t, env.settings.Set("chunking.size", "800"))

	out, err := runCLI(t, "", "settings", "unset", "chunking.size")

	require.NoError(t, err)
	assert.Contains(t, out, "Unset chunking.size (default applies)")
	settings, err := env.settings.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultChunkSize, settings.Chunking.ChunkSize)
}

func TestSettingsKeys(t *testing.T) {
	setupTestServices(t)

	out, err := runCLI(t, "", "settings", "keys")

	require.NoError(t, err)
	for _, key := range []string{"embedding.model", "llm.model", "chunking.overlap", "retrieval.top_k", "chat.mode"} {
		assert.Contains(t, out, key)
	}
}

func TestSettingsWizard(t *testing.T) {
	env := setupTestServices(t)
	var checked bool
	env.services.Check = func(context.Context) error {
		checked = true
		return nil
	}
	SetServices(env.services)

	// Defaults for both providers, then the second mode by name.
	input := "\n\n\n" + "\nllama3.1:8b\nhttp://gpu-box:11434\n" + "2\n"
	out, err := runCLI(t, input, "settings", "wizard")

	require.NoError(t, err)
	assert.Contains(t, out, "Configuration Complete!")
	assert.Contains(t, out, "Default chat mode: clerk")
	assert.Contains(t, out, "Validating configuration... OK")
	assert.True(t, checked)

	settings, err := env.settings.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "llama3.1:8b", settings.LLM.Model)
	assert.Equal(t, "http://gpu-box:11434", settings.LLM.BaseURL)
	assert.Equal(t, "clerk", settings.Chat.Mode)
}

func TestSettingsWizard_OpenAIRequiresKey(t *testing.T) {
	setupTestServices(t)

	_, err := runCLI(t, "2\n\n\n\n", "settings", "embedding")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestSettingsLLM_CheckFailureIsReported(t *testing.T) {
	env := setupTestServices(t)
	env.services.Check = func(context.Context) error {
		return errors.New("ollama: model llama3.2 not pulled")
	}
	SetServices(env.services)

	out, err := runCLI(t, "\n\n\n", "settings", "llm")

	require.NoError(t, err)
	assert.Contains(t, out, "FAILED: ollama: model llama3.2 not pulled")
}
