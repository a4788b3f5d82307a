package server

import (
	"context"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
)

// fetchScopedSettings resolves the Settings snapshot for one webhook
// dispatch: it re-runs the full layered load (baseOpts already carries
// whatever secrets layer the process started with) with the org- and
// repo-level `.pr_agent.toml` layers fetched fresh from provider, each
// gated on the base settings' use_global_settings_file/use_repo_settings_file
// flags so a repo can opt out of being configured by its own file. Repo
// settings win over org settings, matching LoadSettings' layer order.
// Grounded on orig/server/webhook.rs's fetch_optional_toml/fetch_scoped_settings.
func fetchScopedSettings(ctx context.Context, p platform.GitProvider, base *config.Settings, baseOpts config.LoadOptions) (*config.Settings, error) {
	opts := baseOpts

	if base.Config.UseGlobalSettingsFile {
		if org, err := p.GetGlobalSettings(ctx); err == nil && org != nil {
			opts.OrgTOML = *org
		}
	}
	if base.Config.UseRepoSettingsFile {
		if repo, err := p.GetRepoSettings(ctx); err == nil && repo != nil {
			opts.RepoTOML = *repo
		}
	}

	return config.LoadSettings(opts)
}
