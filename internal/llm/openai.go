package llm

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/prerrors"
	"github.com/jlucaso1/pr-agent-go/pkg/logger"
)

var (
	log    = logger.New("llm:openai")
	tracer = otel.Tracer("github.com/jlucaso1/pr-agent-go/internal/llm")
)

// modelRetries is the number of retry attempts for transient, non-rate-limit
// errors. Ported from orig/ai/openai.rs's MODEL_RETRIES.
const modelRetries = 2

// OpenAIBackend talks to any provider exposing the OpenAI chat-completions
// wire format: OpenAI itself, Azure OpenAI, Ollama, Groq, DeepSeek, DeepInfra,
// xAI, OpenRouter, Mistral. Grounded on orig/ai/openai.rs's
// OpenAiCompatibleHandler.
type OpenAIBackend struct {
	client       openai.Client
	deploymentID string
}

// NewOpenAIBackend builds an OpenAIBackend from the resolved settings.
func NewOpenAIBackend(settings *config.Settings) (*OpenAIBackend, error) {
	opts := []option.RequestOption{
		option.WithMaxRetries(0), // retry loop in ChatCompletion owns retry/backoff
	}
	if settings.OpenAI.Key != "" {
		opts = append(opts, option.WithAPIKey(settings.OpenAI.Key))
	}
	if settings.OpenAI.Org != "" {
		opts = append(opts, option.WithOrganization(settings.OpenAI.Org))
	}
	if settings.OpenAI.APIBase != "" {
		opts = append(opts, option.WithBaseURL(settings.OpenAI.APIBase))
	}

	timeout := time.Duration(settings.Config.AiTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: timeout}))

	return &OpenAIBackend{
		client:       openai.NewClient(opts...),
		deploymentID: settings.OpenAI.DeploymentID,
	}, nil
}

func (b *OpenAIBackend) DeploymentID() string { return b.deploymentID }

func (b *OpenAIBackend) Capabilities(model string) ModelCapabilities {
	settings := config.Current()
	maxTokens := GetMaxTokensWithFallback(model, uint32(settings.Config.MaxModelTokens))

	var reasoningEffort string
	if SupportsReasoningEffort(model) && settings.Config.ReasoningEffort != "" {
		reasoningEffort = settings.Config.ReasoningEffort
	}

	return ModelCapabilities{
		SupportsSystemMessage: !IsUserMessageOnlyModel(model),
		SupportsTemperature:   !IsNoTemperatureModel(model),
		SupportsImages:        true,
		ReasoningEffort:       reasoningEffort,
		MaxTokens:             maxTokens,
	}
}

func (b *OpenAIBackend) buildParams(ctx context.Context, model, system, user string, temperature *float64, imageURLs []string) openai.ChatCompletionNewParams {
	settings := config.GetSettings(ctx)
	caps := b.Capabilities(model)

	sysMsg, userMsg := system, user
	if !caps.SupportsSystemMessage {
		sysMsg = ""
		userMsg = system + "\n\n\n" + user
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if sysMsg != "" {
		messages = append(messages, openai.SystemMessage(sysMsg))
	}

	if len(imageURLs) > 0 {
		parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(imageURLs)+1)
		parts = append(parts, openai.TextContentPart(userMsg))
		for _, url := range imageURLs {
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url}))
		}
		messages = append(messages, openai.ChatCompletionMessageParamUnion{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: parts,
				},
			},
		})
	} else {
		messages = append(messages, openai.UserMessage(userMsg))
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}

	// Temperature and reasoning_effort are mutually exclusive: reasoning-tier
	// models reject temperature entirely.
	if caps.ReasoningEffort != "" {
		params.ReasoningEffort = openai.ReasoningEffort(caps.ReasoningEffort)
	} else if caps.SupportsTemperature && !settings.Config.CustomReasoningModel {
		temp := settings.Config.Temperature
		if temperature != nil {
			temp = *temperature
		}
		params.Temperature = openai.Float(temp)
	}

	if settings.Config.Seed >= 0 {
		params.Seed = openai.Int(settings.Config.Seed)
	}

	return params
}

func (b *OpenAIBackend) sendCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*ChatResponse, error) {
	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return nil, prerrors.NewRateLimited(parseRetryAfter(apiErr.Response))
		}
		return nil, prerrors.NewHTTP(err)
	}

	if len(resp.Choices) == 0 {
		return nil, errNoChoices
	}
	choice := resp.Choices[0]

	return &ChatResponse{
		Content:      choice.Message.Content,
		FinishReason: ParseFinishReason(choice.FinishReason),
		Usage: &Usage{
			PromptTokens:     uint32(resp.Usage.PromptTokens),
			CompletionTokens: uint32(resp.Usage.CompletionTokens),
			TotalTokens:      uint32(resp.Usage.TotalTokens),
		},
	}, nil
}

func parseRetryAfter(resp *http.Response) uint64 {
	if resp == nil {
		return 60
	}
	if v := resp.Header.Get("retry-after"); v != "" {
		if secs, ok := parseUintDigits(v); ok {
			return secs
		}
	}
	return 60
}

// parseUintDigits parses s as a base-10 unsigned integer, reporting false
// for an empty string or any non-digit content.
func parseUintDigits(s string) (uint64, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	return n, err == nil
}

// ChatCompletion sends a chat completion request, retrying transient,
// non-rate-limit errors with the exponential backoff 2^(attempt+1)s ported
// from orig/ai/openai.rs. Rate-limit errors propagate immediately without
// retry, matching the original.
func (b *OpenAIBackend) ChatCompletion(ctx context.Context, model, system, user string, temperature *float64, imageURLs []string) (*ChatResponse, error) {
	ctx, span := tracer.Start(ctx, "llm.chat_completion")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", model))

	params := b.buildParams(ctx, model, system, user, temperature, imageURLs)

	var lastErr error
	for attempt := 0; attempt <= modelRetries; attempt++ {
		resp, err := b.sendCompletion(ctx, params)
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

// retryWithFallbackModels tries primaryModel first, then each of
// fallbackModels in order, returning the first success. Used by
// ChatCompletionWithFallback to implement config.fallback_models. Ported from
// orig/ai/openai.rs's retry_with_fallback_models.
func retryWithFallbackModels(ctx context.Context, call func(ctx context.Context, model string) (*ChatResponse, error), primaryModel string, fallbackModels []string) (*ChatResponse, error) {
	resp, err := call(ctx, primaryModel)
	if err == nil {
		return resp, nil
	}
	if len(fallbackModels) == 0 {
		return nil, err
	}
	log.Printf("primary model %q failed, trying fallbacks: %v", primaryModel, err)

	lastErr := err
	for i, fallback := range fallbackModels {
		resp, err := call(ctx, fallback)
		if err == nil {
			return resp, nil
		}
		log.Printf("fallback model %q failed (attempt %d): %v", fallback, i+2, err)
		lastErr = err
	}

	return nil, lastErr
}
