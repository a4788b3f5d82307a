package main

import (
	"context"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
)

// bootstrapSettings performs the CLI's first settings resolution pass:
// embedded defaults, a local secrets file if one exists on disk, the given
// CLI overrides, and the process environment. It has no provider yet (a PR
// URL may not even apply, e.g. "config"/"serve"/"health"), so org/repo TOML
// layers are not part of this pass — see scopedSettingsForProvider for the
// second pass once a provider is available. Grounded on orig/cli.rs's
// `init_settings(&config_overrides, None, None)` bootstrap call.
func bootstrapSettings(overrides map[string]string) (*config.Settings, config.LoadOptions, error) {
	opts := config.LoadOptions{
		SecretsTOML:  readLocalSecretsTOML(),
		CLIOverrides: overrides,
	}
	settings, err := config.LoadSettings(opts)
	if err != nil {
		return nil, opts, err
	}
	return settings, opts, nil
}

// scopedSettingsForProvider re-resolves settings with the target
// repository's org-level and repo-level ".pr_agent.toml" layered on top of
// base, when the corresponding UseGlobalSettingsFile/UseRepoSettingsFile
// toggles are enabled. A provider error fetching either file is tolerated
// (falls back to base's layer), matching
// internal/server's fetchScopedSettings and orig/cli.rs's
// "continuing without" log-and-ignore behavior.
func scopedSettingsForProvider(ctx context.Context, p platform.GitProvider, base *config.Settings, baseOpts config.LoadOptions) (*config.Settings, error) {
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

	if opts.OrgTOML == baseOpts.OrgTOML && opts.RepoTOML == baseOpts.RepoTOML {
		return base, nil
	}
	return config.LoadSettings(opts)
}
