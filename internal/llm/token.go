// Package llm provides the Token Accountant, the model capability table, and
// the multi-provider ChatBackend abstraction used by every tool in
// internal/tools. Grounded on orig/ai/{mod,token,openai,types}.rs.
package llm

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// OutputBufferTokensSoftThreshold and OutputBufferTokensHardThreshold are the
// two buffers subtracted from a model's max-token window when deciding
// whether a diff fits (soft, deferred to the next batch) or must be dropped
// outright (hard). Ported from orig/ai/token.rs.
const (
	OutputBufferTokensSoftThreshold uint32 = 1500
	OutputBufferTokensHardThreshold uint32 = 1000
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

// encoder lazily initializes the shared o200k_base BPE encoder singleton on
// first use, mirroring orig/ai/token.rs's encoder() OnceLock.
func encoder() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding("o200k_base")
	})
	return enc, encErr
}

// CountTokens returns the number of BPE tokens in text using the o200k_base
// encoding. Falls back to a 4-chars-per-token heuristic if the encoder
// cannot be constructed (e.g. its ranks file is unreachable offline), rather
// than returning a misleadingly precise zero.
func CountTokens(text string) uint32 {
	if text == "" {
		return 0
	}
	tk, err := encoder()
	if err != nil {
		return uint32(len(text)/4) + 1
	}
	return uint32(len(tk.Encode(text, nil, nil)))
}

// ClipTokens truncates text to fit within maxTokens, estimating a
// chars-per-token ratio from the current text and applying a 0.9 safety
// factor, then cutting at the nearest rune boundary. Ported from
// orig/ai/token.rs's clip_tokens.
func ClipTokens(text string, maxTokens uint32, addTruncationSuffix bool) string {
	if text == "" || maxTokens == 0 {
		return ""
	}

	numInputTokens := CountTokens(text)
	if numInputTokens <= maxTokens {
		return text
	}

	charsPerToken := float64(len(text)) / float64(numInputTokens)
	const factor = 0.9
	numOutputChars := int(factor * charsPerToken * float64(maxTokens))

	var truncated string
	if numOutputChars >= len(text) {
		truncated = text
	} else {
		end := 0
		for i, r := range text {
			if i >= numOutputChars {
				break
			}
			end = i + utf8.RuneLen(r)
		}
		truncated = text[:end]
	}

	if addTruncationSuffix {
		return truncated + "\n...(truncated)"
	}
	return truncated
}

// normalizeModelName strips a leading "openai/" or "azure/" provider prefix
// used by some aggregator configs, so model-capability lookups work
// regardless of how the user wrote the model string.
func normalizeModelName(model string) string {
	if s, ok := strings.CutPrefix(model, "openai/"); ok {
		return s
	}
	if s, ok := strings.CutPrefix(model, "azure/"); ok {
		return s
	}
	return model
}

// GetMaxTokens looks up the context window size for a known model name,
// returning 0 for anything unrecognized so the caller can fall back to its
// own configured max_model_tokens. Ported from orig/ai/token.rs's
// get_max_tokens match table.
func GetMaxTokens(model string) uint32 {
	m := normalizeModelName(model)

	switch m {
	case "gpt-3.5-turbo", "gpt-3.5-turbo-0125", "gpt-3.5-turbo-1106", "gpt-3.5-turbo-16k", "gpt-3.5-turbo-16k-0613":
		return 16_000
	case "gpt-3.5-turbo-0613":
		return 4_000
	case "gpt-4", "gpt-4-0613":
		return 8_000
	case "gpt-4-32k":
		return 32_000
	case "gpt-4-1106-preview", "gpt-4-0125-preview", "gpt-4-turbo-preview", "gpt-4-turbo-2024-04-09", "gpt-4-turbo":
		return 128_000
	case "gpt-4o", "gpt-4o-2024-05-13", "gpt-4o-mini", "gpt-4o-mini-2024-07-18", "gpt-4o-2024-08-06", "gpt-4o-2024-11-20":
		return 128_000
	case "gpt-4.5-preview", "gpt-4.5-preview-2025-02-27":
		return 128_000
	case "gpt-4.1", "gpt-4.1-2025-04-14", "gpt-4.1-mini", "gpt-4.1-mini-2025-04-14", "gpt-4.1-nano", "gpt-4.1-nano-2025-04-14":
		return 1_047_576
	case "gpt-5-nano", "gpt-5-mini", "gpt-5", "gpt-5-2025-08-07":
		return 200_000
	case "gpt-5.1", "gpt-5.1-2025-11-13", "gpt-5.1-chat-latest", "gpt-5.1-codex", "gpt-5.1-codex-mini":
		return 200_000
	case "gpt-5.2", "gpt-5.2-2025-12-11", "gpt-5.2-codex":
		return 400_000
	case "gpt-5.2-chat-latest":
		return 128_000
	case "o1-mini", "o1-mini-2024-09-12", "o1-preview", "o1-preview-2024-09-12":
		return 128_000
	case "o1-2024-12-17", "o1", "o3-mini", "o3-mini-2025-01-31":
		return 204_800
	case "o3", "o3-2025-04-16", "o4-mini", "o4-mini-2025-04-16":
		return 200_000
	case "deepseek/deepseek-chat":
		return 128_000
	case "deepseek/deepseek-reasoner":
		return 64_000
	case "mistral/open-codestral-mamba":
		return 256_000
	}

	switch {
	case strings.Contains(m, "claude-opus-4-5"), strings.Contains(m, "claude-sonnet-4-5"):
		return 200_000
	case strings.Contains(m, "claude-opus-4-1"):
		return 200_000
	case strings.Contains(m, "claude-opus-4"), strings.Contains(m, "claude-sonnet-4"):
		return 200_000
	case strings.Contains(m, "claude-haiku-4-5"):
		return 200_000
	case strings.Contains(m, "claude-3-7-sonnet"):
		return 200_000
	case strings.Contains(m, "claude-3-5-sonnet"), strings.Contains(m, "claude-3-5-haiku"):
		return 100_000
	case strings.Contains(m, "claude-3"):
		return 100_000
	case strings.Contains(m, "claude-2"), strings.Contains(m, "claude-instant"):
		return 100_000
	case strings.HasPrefix(m, "gemini/"), strings.Contains(m, "gemini-"):
		return 1_048_576
	case strings.HasPrefix(m, "groq/"):
		return 128_000
	case strings.HasPrefix(m, "xai/"):
		return 131_072
	case strings.HasPrefix(m, "mistral/"):
		return 128_000
	}

	return 0
}

// GetMaxTokensWithFallback returns GetMaxTokens(model), or configMax if the
// model is unrecognized.
func GetMaxTokensWithFallback(model string, configMax uint32) uint32 {
	if known := GetMaxTokens(model); known > 0 {
		return known
	}
	return configMax
}

// IsNoTemperatureModel reports whether model rejects the `temperature`
// request parameter (most reasoning-tier models).
func IsNoTemperatureModel(model string) bool {
	switch normalizeModelName(model) {
	case "deepseek/deepseek-reasoner", "o1-mini", "o1-mini-2024-09-12", "o1-preview", "o1-2024-12-17",
		"o1", "o3-mini", "o3-mini-2025-01-31", "o3", "o3-2025-04-16", "o4-mini", "o4-mini-2025-04-16",
		"gpt-5.1-codex", "gpt-5.1-codex-mini", "gpt-5.2-codex", "gpt-5-mini":
		return true
	}
	return false
}

// IsUserMessageOnlyModel reports whether model requires the system prompt to
// be folded into the user message (some reasoning-tier models reject a
// separate system role).
func IsUserMessageOnlyModel(model string) bool {
	switch normalizeModelName(model) {
	case "deepseek/deepseek-reasoner", "o1-mini", "o1-mini-2024-09-12", "o1-preview":
		return true
	}
	return false
}

// SupportsReasoningEffort reports whether model accepts the
// `reasoning_effort` request parameter.
func SupportsReasoningEffort(model string) bool {
	switch normalizeModelName(model) {
	case "o3-mini", "o3-mini-2025-01-31", "o3", "o3-2025-04-16", "o4-mini", "o4-mini-2025-04-16":
		return true
	}
	return false
}
