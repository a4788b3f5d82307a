package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/prerrors"
)

// anthropicDefaultMaxTokens is the max_tokens value sent with every
// completion request, since the Anthropic API requires max_tokens always be
// supplied.
const anthropicDefaultMaxTokens = 8192

// AnthropicBackend talks to the Anthropic Messages API. Supplements
// orig/ai/openai.rs, which only wired OpenAI-compatible endpoints — selected
// at the ChatBackend-routing layer for "claude-"/"anthropic/"-prefixed
// models (see IsAnthropicModel), with config.fallback_models anticipating
// exactly this kind of cross-provider fallback.
type AnthropicBackend struct {
	client anthropic.Client
}

// NewAnthropicBackend builds an AnthropicBackend from the resolved settings.
func NewAnthropicBackend(settings *config.Settings) (*AnthropicBackend, error) {
	opts := []option.RequestOption{
		option.WithMaxRetries(0), // retry loop in ChatCompletion owns retry/backoff
	}
	if settings.Anthropic.Key != "" {
		opts = append(opts, option.WithAPIKey(settings.Anthropic.Key))
	}

	timeout := time.Duration(settings.Config.AiTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: timeout}))

	return &AnthropicBackend{client: anthropic.NewClient(opts...)}, nil
}

func (b *AnthropicBackend) DeploymentID() string { return "" }

func (b *AnthropicBackend) Capabilities(model string) ModelCapabilities {
	settings := config.Current()
	maxTokens := GetMaxTokensWithFallback(model, uint32(settings.Config.MaxModelTokens))

	return ModelCapabilities{
		SupportsSystemMessage: true,
		SupportsTemperature:   true,
		SupportsImages:        true,
		MaxTokens:             maxTokens,
	}
}

func (b *AnthropicBackend) sendCompletion(ctx context.Context, model, system, user string, temperature *float64, imageURLs []string) (*ChatResponse, error) {
	settings := config.GetSettings(ctx)

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(imageURLs)+1)
	blocks = append(blocks, anthropic.NewTextBlock(user))
	for _, url := range imageURLs {
		blocks = append(blocks, anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: url}))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: anthropicDefaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	}

	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	temp := settings.Config.Temperature
	if temperature != nil {
		temp = *temperature
	}
	params.Temperature = anthropic.Float(temp)

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return nil, prerrors.NewRateLimited(parseRetryAfter(apiErr.Response))
		}
		return nil, prerrors.NewHTTP(err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	if content == "" && len(resp.Content) == 0 {
		return nil, errNoChoices
	}

	return &ChatResponse{
		Content:      content,
		FinishReason: ParseFinishReason(string(resp.StopReason)),
		Usage: &Usage{
			PromptTokens:     uint32(resp.Usage.InputTokens),
			CompletionTokens: uint32(resp.Usage.OutputTokens),
			TotalTokens:      uint32(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

// ChatCompletion sends a chat completion request, retrying transient,
// non-rate-limit errors with the same exponential backoff as the
// OpenAI-compatible backend.
func (b *AnthropicBackend) ChatCompletion(ctx context.Context, model, system, user string, temperature *float64, imageURLs []string) (*ChatResponse, error) {
	ctx, span := tracer.Start(ctx, "llm.chat_completion")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", model))

	var lastErr error
	for attempt := 0; attempt <= modelRetries; attempt++ {
		resp, err := b.sendCompletion(ctx, model, system, user, temperature, imageURLs)
		if err == nil {
			span.SetStatus(codes.Ok, "")
			return resp, nil
		}

		var rlErr *prerrors.RateLimitedError
		if errors.As(err, &rlErr) {
			span.RecordError(err)
			return nil, err
		}

		lastErr = err
		log.Printf("AI request failed (attempt %d/%d): %v", attempt+1, modelRetries+1, err)

		if attempt < modelRetries {
			delay := time.Duration(1<<uint(attempt+1)) * time.Second
			select {
			case <-ctx.Done():
				span.RecordError(ctx.Err())
				return nil, prerrors.NewHTTP(ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	if lastErr == nil {
		lastErr = prerrors.NewAiHandler("all retries exhausted")
	}
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return nil, lastErr
}
