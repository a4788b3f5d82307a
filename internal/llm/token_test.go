package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountTokens(t *testing.T) {
	tokens := CountTokens("Hello, world!")
	assert.Greater(t, tokens, uint32(0))
	assert.Less(t, tokens, uint32(10))
}

func TestCountTokensEmpty(t *testing.T) {
	assert.Equal(t, uint32(0), CountTokens(""))
}

func TestClipTokensWithinBudget(t *testing.T) {
	text := "Hello, world!"
	assert.Equal(t, text, ClipTokens(text, 100, true))
}

func TestClipTokensOverBudget(t *testing.T) {
	text := strings.Repeat("word ", 1000)
	result := ClipTokens(text, 10, true)
	assert.Less(t, len(result), len(text))
	assert.True(t, strings.HasSuffix(result, "...(truncated)"))
}

func TestClipTokensEmpty(t *testing.T) {
	assert.Equal(t, "", ClipTokens("", 100, true))
	assert.Equal(t, "", ClipTokens("hello", 0, true))
}

func TestGetMaxTokens(t *testing.T) {
	assert.EqualValues(t, 8_000, GetMaxTokens("gpt-4"))
	assert.EqualValues(t, 128_000, GetMaxTokens("gpt-4o"))
	assert.EqualValues(t, 1_047_576, GetMaxTokens("gpt-4.1"))
	assert.EqualValues(t, 400_000, GetMaxTokens("gpt-5.2-2025-12-11"))
	assert.EqualValues(t, 204_800, GetMaxTokens("o3-mini"))
	assert.EqualValues(t, 200_000, GetMaxTokens("anthropic/claude-sonnet-4-5-20250929"))
	assert.EqualValues(t, 1_048_576, GetMaxTokens("gemini/gemini-2.5-pro"))
	assert.EqualValues(t, 128_000, GetMaxTokens("deepseek/deepseek-chat"))
	assert.EqualValues(t, 0, GetMaxTokens("unknown-model"))
}

func TestModelCapabilities(t *testing.T) {
	assert.True(t, IsNoTemperatureModel("o3-mini"))
	assert.False(t, IsNoTemperatureModel("gpt-4o"))
	assert.True(t, IsUserMessageOnlyModel("o1-mini"))
	assert.False(t, IsUserMessageOnlyModel("gpt-4o"))
	assert.True(t, SupportsReasoningEffort("o3-mini"))
	assert.False(t, SupportsReasoningEffort("gpt-4o"))
}

func TestGetMaxTokensWithFallback(t *testing.T) {
	assert.EqualValues(t, 8_000, GetMaxTokensWithFallback("gpt-4", 32_000))
	assert.EqualValues(t, 32_000, GetMaxTokensWithFallback("unknown-model", 32_000))
}
