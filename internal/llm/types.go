package llm

// FinishReason is why a model stopped generating. Ported from orig/ai/types.rs.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength         FinishReason = "length"
	FinishContentFilter  FinishReason = "content_filter"
	FinishToolCalls      FinishReason = "tool_calls"
	FinishUnknown        FinishReason = "unknown"
)

// ParseFinishReason maps a provider's raw finish-reason string onto the
// FinishReason enum, defaulting to FinishUnknown for anything unrecognized.
func ParseFinishReason(s string) FinishReason {
	switch s {
	case "stop", "end_turn", "stop_sequence":
		return FinishStop
	case "length", "max_tokens":
		return FinishLength
	case "content_filter":
		return FinishContentFilter
	case "tool_calls", "tool_use":
		return FinishToolCalls
	default:
		return FinishUnknown
	}
}

// Usage is the token accounting returned alongside a chat completion.
type Usage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}

// ChatResponse is the normalized result of a chat completion call, common
// across every ChatBackend implementation.
type ChatResponse struct {
	Content      string
	FinishReason FinishReason
	Usage        *Usage
}

// ModelCapabilities centralizes model-specific request-shaping quirks so a
// backend's request builder consults one struct instead of scattering
// if/else checks across the call site. Ported from orig/ai/types.rs.
type ModelCapabilities struct {
	SupportsSystemMessage bool
	SupportsTemperature   bool
	SupportsImages        bool
	ReasoningEffort       string
	MaxTokens             uint32
}

// DefaultModelCapabilities mirrors orig/ai/types.rs's Default impl.
func DefaultModelCapabilities() ModelCapabilities {
	return ModelCapabilities{
		SupportsSystemMessage: true,
		SupportsTemperature:   true,
		SupportsImages:        false,
		MaxTokens:             32_000,
	}
}
