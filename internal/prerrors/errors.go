// Package prerrors defines the typed error taxonomy shared by every
// component of pr-agent-go. It mirrors orig/error.rs (PrAgentError)
// one-for-one: every fallible operation in this repository returns one of
// these, never a panic used for control flow.
package prerrors

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ConfigError wraps a malformed or forbidden settings override.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("configuration error: %s", e.Msg)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfig builds a ConfigError.
func NewConfig(msg string, err error) *ConfigError { return &ConfigError{Msg: msg, Err: err} }

// GitProviderError wraps a non-success response from the hosting platform.
type GitProviderError struct {
	Msg string
}

func (e *GitProviderError) Error() string { return fmt.Sprintf("git provider error: %s", e.Msg) }

// NewGitProvider builds a GitProviderError.
func NewGitProvider(format string, args ...any) *GitProviderError {
	return &GitProviderError{Msg: fmt.Sprintf(format, args...)}
}

// AiHandlerError wraps a non-success, non-rate-limit response from an LLM backend.
type AiHandlerError struct {
	Msg string
}

func (e *AiHandlerError) Error() string { return fmt.Sprintf("AI handler error: %s", e.Msg) }

// NewAiHandler builds an AiHandlerError.
func NewAiHandler(format string, args ...any) *AiHandlerError {
	return &AiHandlerError{Msg: fmt.Sprintf(format, args...)}
}

// RateLimitedError represents a 429 response; callers decide whether to retry.
type RateLimitedError struct {
	RetryAfterSecs uint64
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %ds", e.RetryAfterSecs)
}

// NewRateLimited builds a RateLimitedError.
func NewRateLimited(retryAfterSecs uint64) *RateLimitedError {
	return &RateLimitedError{RetryAfterSecs: retryAfterSecs}
}

// HTTPError wraps a transport-level failure.
type HTTPError struct{ Err error }

func (e *HTTPError) Error() string  { return fmt.Sprintf("HTTP request failed: %v", e.Err) }
func (e *HTTPError) Unwrap() error  { return e.Err }
func NewHTTP(err error) *HTTPError  { return &HTTPError{Err: err} }

// TemplateError wraps a prompt-render failure (e.g. a missing strict-undefined variable).
type TemplateError struct{ Msg string }

func (e *TemplateError) Error() string { return fmt.Sprintf("template rendering error: %s", e.Msg) }
func NewTemplate(format string, args ...any) *TemplateError {
	return &TemplateError{Msg: fmt.Sprintf(format, args...)}
}

// YamlParseError wraps a YAML-extraction failure over LLM output.
type YamlParseError struct{ Msg string }

func (e *YamlParseError) Error() string { return fmt.Sprintf("YAML parsing error: %s", e.Msg) }
func NewYamlParse(format string, args ...any) *YamlParseError {
	return &YamlParseError{Msg: fmt.Sprintf(format, args...)}
}

// TokenBudgetError is returned when requested content cannot fit in the model's window.
type TokenBudgetError struct {
	Needed, Available uint32
}

func (e *TokenBudgetError) Error() string {
	return fmt.Sprintf("token budget exceeded: needed %d, available %d", e.Needed, e.Available)
}
func NewTokenBudget(needed, available uint32) *TokenBudgetError {
	return &TokenBudgetError{Needed: needed, Available: available}
}

// UnsupportedError represents a missing capability on the active platform provider.
type UnsupportedError struct{ Msg string }

func (e *UnsupportedError) Error() string { return fmt.Sprintf("unsupported operation: %s", e.Msg) }
func NewUnsupported(format string, args ...any) *UnsupportedError {
	return &UnsupportedError{Msg: fmt.Sprintf(format, args...)}
}

// IOError wraps a filesystem failure.
type IOError struct{ Err error }

func (e *IOError) Error() string { return fmt.Sprintf("IO error: %v", e.Err) }
func (e *IOError) Unwrap() error { return e.Err }
func NewIO(err error) *IOError   { return &IOError{Err: err} }

// JSONError wraps an encoding/json failure.
type JSONError struct{ Err error }

func (e *JSONError) Error() string { return fmt.Sprintf("JSON error: %v", e.Err) }
func (e *JSONError) Unwrap() error { return e.Err }
func NewJSON(err error) *JSONError { return &JSONError{Err: err} }

// TomlError wraps a TOML decode failure.
type TomlError struct{ Err error }

func (e *TomlError) Error() string { return fmt.Sprintf("TOML deserialization error: %v", e.Err) }
func (e *TomlError) Unwrap() error { return e.Err }
func NewToml(err error) *TomlError { return &TomlError{Err: err} }

// OtherError is the catch-all for failures that don't fit another kind.
type OtherError struct{ Msg string }

func (e *OtherError) Error() string { return e.Msg }
func NewOther(format string, args ...any) *OtherError {
	return &OtherError{Msg: fmt.Sprintf(format, args...)}
}

// IsRetryable mirrors orig/error.rs's PrAgentError::is_retryable: true for
// transport timeouts/connect errors/5xx, generic AI-handler errors, and
// rate-limits; false for everything else.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		var netErr net.Error
		if errors.As(httpErr.Err, &netErr) && netErr.Timeout() {
			return true
		}
		var statusErr interface{ StatusCode() int }
		if errors.As(httpErr.Err, &statusErr) {
			return statusErr.StatusCode() >= http.StatusInternalServerError
		}
		// No explicit status attached: connect/transport-level failure.
		return true
	}

	var aiErr *AiHandlerError
	if errors.As(err, &aiErr) {
		return true
	}

	var rlErr *RateLimitedError
	if errors.As(err, &rlErr) {
		return true
	}

	return false
}
