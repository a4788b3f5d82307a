package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jlucaso1/pr-agent-go/internal/config"
)

func newTestWebhookHandler(t *testing.T) (*webhookHandler, *config.Settings) {
	t.Helper()
	settings := baseTestSettings(t)
	settings.Github.WebhookSecret = "test-secret"
	return newWebhookHandler(context.Background(), settings, config.LoadOptions{}), settings
}

func postWebhook(t *testing.T, h *webhookHandler, secret, event string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/github_webhooks", strings.NewReader(string(body)))
	req.Header.Set(githubEventHeader, event)
	req.Header.Set("X-Hub-Signature-256", sign(secret, body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookHandlerRejectsInvalidSignature(t *testing.T) {
	h, _ := newTestWebhookHandler(t)
	body := []byte(`{"action":"opened"}`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/github_webhooks", strings.NewReader(string(body)))
	req.Header.Set(githubEventHeader, "pull_request")
	req.Header.Set("X-Hub-Signature-256", sign("wrong-secret", body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookHandlerRejectsInvalidJSON(t *testing.T) {
	h, _ := newTestWebhookHandler(t)
	body := []byte(`not json`)

	rec := postWebhook(t, h, "test-secret", "pull_request", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookHandlerAcceptsValidSignatureUnhandledAction(t *testing.T) {
	h, _ := newTestWebhookHandler(t)
	body := []byte(`{"action":"closed","pull_request":{"html_url":"https://github.com/acme/widgets/pull/1"}}`)

	rec := postWebhook(t, h, "test-secret", "pull_request", body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookHandlerUnknownEventTypeStill200(t *testing.T) {
	h, _ := newTestWebhookHandler(t)
	body := []byte(`{"zen":"keep it logically awesome"}`)

	rec := postWebhook(t, h, "test-secret", "ping", body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookHandlerIssueCommentSlashCommandStill200(t *testing.T) {
	h, settings := newTestWebhookHandler(t)
	settings.GithubApp.DisableEyesReaction = false

	body := []byte(`{
		"action":"created",
		"issue":{"html_url":"https://github.com/acme/widgets/issues/1","pull_request":{"html_url":"https://github.com/acme/widgets/pull/1"}},
		"comment":{"id":99,"body":"/totally_unknown_command"}
	}`)

	rec := postWebhook(t, h, "test-secret", "issue_comment", body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookHandlerIssueCommentOnPlainIssueIgnored(t *testing.T) {
	h, _ := newTestWebhookHandler(t)
	body := []byte(`{
		"action":"created",
		"issue":{"html_url":"https://github.com/acme/widgets/issues/1"},
		"comment":{"id":99,"body":"/review"}
	}`)

	rec := postWebhook(t, h, "test-secret", "issue_comment", body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIsSlashCommandVariants(t *testing.T) {
	assert.True(t, isSlashCommand("/review"))
	assert.True(t, isSlashCommand("   /review\n"))
	assert.False(t, isSlashCommand("please review this"))
	assert.False(t, isSlashCommand(""))
}

func TestContainsHelper(t *testing.T) {
	assert.True(t, contains([]string{"opened", "reopened"}, "opened"))
	assert.False(t, contains([]string{"opened"}, "closed"))
}
