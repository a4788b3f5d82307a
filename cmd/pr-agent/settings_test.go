package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlucaso1/pr-agent-go/internal/platform"
)

// settingsFakeProvider is a minimal platform.GitProvider stub exercising
// only the two calls scopedSettingsForProvider makes.
type settingsFakeProvider struct {
	platform.BaseProvider
	globalTOML *string
	repoTOML   *string
	err        error
}

func (f *settingsFakeProvider) GetGlobalSettings(context.Context) (*string, error) {
	return f.globalTOML, f.err
}

func (f *settingsFakeProvider) GetRepoSettings(context.Context) (*string, error) {
	return f.repoTOML, f.err
}

var _ platform.GitProvider = (*settingsFakeProvider)(nil)

func TestBootstrapSettingsAppliesOverrides(t *testing.T) {
	settings, opts, err := bootstrapSettings(map[string]string{"pr_reviewer.num_max_findings": "9"})
	require.NoError(t, err)
	assert.Equal(t, 9, settings.PrReviewer.NumMaxFindings)
	assert.Equal(t, "9", opts.CLIOverrides["pr_reviewer.num_max_findings"])
}

func TestScopedSettingsForProviderNoLayersReturnsBase(t *testing.T) {
	base, baseOpts, err := bootstrapSettings(nil)
	require.NoError(t, err)
	base.Config.UseGlobalSettingsFile = false
	base.Config.UseRepoSettingsFile = false

	provider := &settingsFakeProvider{}
	scoped, err := scopedSettingsForProvider(context.Background(), provider, base, baseOpts)
	require.NoError(t, err)
	assert.Same(t, base, scoped)
}

func TestScopedSettingsForProviderLayersRepoTOML(t *testing.T) {
	base, baseOpts, err := bootstrapSettings(nil)
	require.NoError(t, err)
	base.Config.UseRepoSettingsFile = true
	base.Config.UseGlobalSettingsFile = false

	repoTOML := "[pr_reviewer]\nnum_max_findings = 3\n"
	provider := &settingsFakeProvider{repoTOML: &repoTOML}

	scoped, err := scopedSettingsForProvider(context.Background(), provider, base, baseOpts)
	require.NoError(t, err)
	assert.Equal(t, 3, scoped.PrReviewer.NumMaxFindings)
}

func TestScopedSettingsForProviderToleratesProviderError(t *testing.T) {
	base, baseOpts, err := bootstrapSettings(nil)
	require.NoError(t, err)
	base.Config.UseRepoSettingsFile = true
	base.Config.UseGlobalSettingsFile = true

	provider := &settingsFakeProvider{err: errors.New("settings fetch failed")}
	scoped, err := scopedSettingsForProvider(context.Background(), provider, base, baseOpts)
	require.NoError(t, err)
	assert.Same(t, base, scoped)
}

func TestReadLocalSecretsTOMLMissingReturnsEmpty(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.Equal(t, "", readLocalSecretsTOML())
}
