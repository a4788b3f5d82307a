package llm

import (
	"context"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/prerrors"
)

// ChatBackend handles a single LLM provider family. Implementations are
// selected per model name by NewBackendForModel
// so a fallback_models chain can cross providers. Grounded on orig/ai/mod.rs's
// AiHandler trait.
type ChatBackend interface {
	// DeploymentID is an opaque deployment identifier (e.g. an Azure
	// deployment name). May be empty.
	DeploymentID() string

	// Capabilities reports the request-shaping quirks for model.
	Capabilities(model string) ModelCapabilities

	// ChatCompletion sends one chat completion request. temperature is nil to
	// use the configured default; imageURLs may be nil.
	ChatCompletion(ctx context.Context, model, system, user string, temperature *float64, imageURLs []string) (*ChatResponse, error)
}

// IsAnthropicModel reports whether model should be routed to the Anthropic
// backend rather than the OpenAI-compatible one: true when the name starts
// with "claude-", optionally after an "anthropic/" prefix. (GetMaxTokens
// matches Claude families anywhere in the name; this check is stricter.)
func IsAnthropicModel(model string) bool {
	m := strings.TrimPrefix(model, "anthropic/")
	return strings.HasPrefix(m, "claude-")
}

// NewBackendForModel constructs the ChatBackend family appropriate for
// model from the active settings: the Anthropic backend for "claude-"/
// "anthropic/"-prefixed models, the OpenAI-compatible backend otherwise
// (which also serves Azure OpenAI, Ollama, Groq, DeepSeek, DeepInfra, xAI,
// OpenRouter and Mistral — any provider exposing the OpenAI chat-completions
// wire format).
func NewBackendForModel(ctx context.Context, model string) (ChatBackend, error) {
	settings := config.GetSettings(ctx)
	if IsAnthropicModel(model) {
		return NewAnthropicBackend(settings)
	}
	return NewOpenAIBackend(settings)
}

// errNoChoices is returned when a provider response carries no completion choices.
var errNoChoices = prerrors.NewAiHandler("no choices in response")
