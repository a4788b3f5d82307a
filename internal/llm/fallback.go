package llm

import "context"

// ChatCompletionWithFallback runs a chat completion against primaryModel,
// retrying against each of fallbackModels in order on failure. Each model
// name is routed to its ChatBackend independently via NewBackendForModel, so
// a fallback chain can cross from an OpenAI-compatible model to an Anthropic
// one (or back) without the caller choosing a single backend up front.
// Grounded on orig/ai/openai.rs's retry_with_fallback_models, generalized
// from a same-backend retry to a per-model backend resolution.
func ChatCompletionWithFallback(ctx context.Context, primaryModel string, fallbackModels []string, system, user string, temperature *float64, imageURLs []string) (*ChatResponse, error) {
	call := func(ctx context.Context, model string) (*ChatResponse, error) {
		backend, err := NewBackendForModel(ctx, model)
		if err != nil {
			return nil, err
		}
		return backend.ChatCompletion(ctx, model, system, user, temperature, imageURLs)
	}
	return retryWithFallbackModels(ctx, call, primaryModel, fallbackModels)
}
