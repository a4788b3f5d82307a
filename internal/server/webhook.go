package server

import (
	"context"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
	"github.com/jlucaso1/pr-agent-go/internal/platform/github"
	"github.com/jlucaso1/pr-agent-go/internal/pushdedup"
	"github.com/jlucaso1/pr-agent-go/pkg/logger"
)

var webhookLog = logger.New("server:webhook")

// maxWebhookBodyBytes mirrors GitHub's own webhook payload ceiling, applied
// defensively before we ever hand the body to json/gjson.
const maxWebhookBodyBytes = 2 << 20 // 2 MiB

// githubEventHeader is the header GitHub sets to the webhook's event type
// ("pull_request", "issue_comment", ...).
const githubEventHeader = "X-GitHub-Event"

// webhookHandler implements http.Handler for the GitHub webhook endpoint.
// It verifies the request's HMAC signature, then dispatches the event on a
// detached background goroutine and replies 200 immediately — GitHub treats
// a slow webhook response as a delivery failure and retries, so processing
// never blocks the response. Grounded on orig/server/webhook.rs's
// handle_github_webhook.
type webhookHandler struct {
	baseSettings *config.Settings
	baseOpts     config.LoadOptions
	background   context.Context
}

func newWebhookHandler(background context.Context, baseSettings *config.Settings, baseOpts config.LoadOptions) *webhookHandler {
	return &webhookHandler{background: background, baseSettings: baseSettings, baseOpts: baseOpts}
}

func (h *webhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "request body too large or unreadable", http.StatusBadRequest)
		return
	}

	if !verifySignature(body, r.Header.Get("X-Hub-Signature-256"), h.baseSettings.Github.WebhookSecret) {
		webhookLog.Printf("rejecting webhook: signature verification failed")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := r.Header.Get(githubEventHeader)
	if !gjson.ValidBytes(body) {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	go func() {
		ctx := config.WithSettings(h.background, h.baseSettings)
		if err := dispatchEvent(ctx, eventType, body, h.baseSettings, h.baseOpts); err != nil {
			webhookLog.Printf("dispatching %s event failed: %v", eventType, err)
		}
	}()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// dispatchEvent routes one already-signature-verified webhook payload to
// the right handling path by its GitHub event type. Grounded on
// orig/server/webhook.rs's dispatch_event.
func dispatchEvent(ctx context.Context, eventType string, payload []byte, base *config.Settings, baseOpts config.LoadOptions) error {
	switch eventType {
	case "pull_request":
		return dispatchPullRequestEvent(ctx, payload, base, baseOpts)
	case "issue_comment":
		return dispatchIssueCommentEvent(ctx, payload, base, baseOpts)
	default:
		webhookLog.Printf("ignoring unhandled event type %q", eventType)
		return nil
	}
}

func dispatchPullRequestEvent(ctx context.Context, payload []byte, base *config.Settings, baseOpts config.LoadOptions) error {
	action := gjson.GetBytes(payload, "action").String()
	prURL := extractPRURL(payload)
	if prURL == "" {
		return nil
	}

	provider, err := github.New(ctx, prURL)
	if err != nil {
		return err
	}

	if action == "synchronize" {
		if !base.GithubApp.PushTriggerEnabled {
			return nil
		}
		return handlePushTrigger(ctx, provider, prURL, base, baseOpts)
	}

	if !contains(base.GithubApp.HandlePrActions, action) {
		return nil
	}

	return runCommands(ctx, provider, base, baseOpts, base.GithubApp.PrCommands)
}

// handlePushTrigger acquires a per-PR dedup slot before running the
// configured push_commands, discarding the event outright if too many
// pushes for the same PR are already queued. Grounded on
// orig/server/webhook.rs's synchronize-action handling plus
// orig/server/push_dedup.rs's acquire-before-process contract.
func handlePushTrigger(ctx context.Context, provider platform.GitProvider, prURL string, base *config.Settings, baseOpts config.LoadOptions) error {
	guard, err := pushdedup.AcquirePushSlot(ctx, prURL)
	if err != nil {
		return err
	}
	if guard == nil {
		webhookLog.Printf("push trigger for %s discarded (too many pending)", prURL)
		return nil
	}
	defer guard.Release()

	return runCommands(ctx, provider, base, baseOpts, base.GithubApp.PushCommands)
}

func dispatchIssueCommentEvent(ctx context.Context, payload []byte, base *config.Settings, baseOpts config.LoadOptions) error {
	if !isIssueCommentOnPR(payload) {
		return nil
	}

	action := gjson.GetBytes(payload, "action").String()
	prURL := extractPRURLFromIssue(payload)
	if prURL == "" {
		return nil
	}

	provider, err := github.New(ctx, prURL)
	if err != nil {
		return err
	}

	switch action {
	case "created":
		body := gjson.GetBytes(payload, "comment.body").String()
		if !isSlashCommand(body) {
			return nil
		}
		commentID := gjson.GetBytes(payload, "comment.id").Uint()
		if !base.GithubApp.DisableEyesReaction {
			_, _ = provider.AddEyesReaction(ctx, commentID, base.GithubApp.DisableEyesReaction)
		}
		return handleCommentCommand(ctx, provider, base, baseOpts, body)
	case "edited":
		commentID := gjson.GetBytes(payload, "comment.id").Uint()
		body := gjson.GetBytes(payload, "comment.body").String()
		return handleCheckboxEdit(ctx, provider, commentID, body)
	default:
		return nil
	}
}

func isSlashCommand(body string) bool {
	for _, r := range body {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		case '/':
			return true
		default:
			return false
		}
	}
	return false
}

func contains(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}
