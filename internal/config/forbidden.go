package config

import "strings"

// forbiddenOverrideKeys are settings paths that a webhook-triggered `--key=value`
// CLI override (e.g. `/review --github.webhook_secret=x`) is never allowed to
// touch, since that string arrives from an untrusted PR comment body. Ported
// 1:1 from orig/cli.rs's FORBIDDEN_OVERRIDE_KEYS.
var forbiddenOverrideKeys = []string{
	"github.user_token",
	"github.app_id",
	"github.private_key",
	"github.webhook_secret",
	"github.base_url",
	"github.deployment_type",
	"github.ratelimit_retries",
	"github.app_name",
	"openai.key",
	"openai.org",
	"openai.api_type",
	"openai.api_version",
	"openai.api_base",
	"openai.deployment_id",
	"anthropic.key",
	"config.secret_provider",
	"config.git_provider",
	"config.app_name",
	"config.use_repo_settings_file",
	"config.use_global_settings_file",
	"github_app.push_trigger_enabled",
	"github_app.push_trigger_pending_tasks_backlog",
	"github_app.push_trigger_pending_tasks_ttl",
	"github_app.handle_pr_actions",
	"github_app.pr_commands",
	"github_app.push_commands",
	"github_app.ignore_pr_authors",
	"github_app.ignore_pr_title",
}

// IsForbiddenOverrideKey reports whether key (already normalized to dotted
// form, e.g. "github.webhook_secret") may not be set via a CLI/comment
// override. A key matches if it equals a forbidden entry exactly, OR if any
// dot-separated segment of key equals any dot-separated segment of a
// forbidden entry — this catches an attacker trying to sneak the sensitive
// leaf name into an unexpected section path. Mirrors orig/cli.rs's
// check_forbidden_key.
func IsForbiddenOverrideKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	keySegments := strings.Split(key, ".")

	for _, forbidden := range forbiddenOverrideKeys {
		if key == forbidden {
			return true
		}
		for _, forbiddenSegment := range strings.Split(forbidden, ".") {
			for _, keySegment := range keySegments {
				if keySegment == forbiddenSegment {
					return true
				}
			}
		}
	}
	return false
}

// ForbiddenOverrideKeys returns a copy of the full denylist, so callers
// cannot mutate the package's own list.
func ForbiddenOverrideKeys() []string {
	out := make([]string, len(forbiddenOverrideKeys))
	copy(out, forbiddenOverrideKeys)
	return out
}
