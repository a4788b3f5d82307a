package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsDefaultsOnly(t *testing.T) {
	s, err := LoadSettings(LoadOptions{Environ: []string{}})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", s.Config.Model)
	assert.Equal(t, 5, s.Github.RatelimitRetries)
}

func TestLoadSettingsLayerPrecedence(t *testing.T) {
	s, err := LoadSettings(LoadOptions{
		OrgTOML: `
[config]
model = "org-model"

[pr_reviewer]
num_max_findings = 10
`,
		RepoTOML: `
[config]
model = "repo-model"
`,
		Environ: []string{},
	})
	require.NoError(t, err)
	// Repo layer outranks org layer for the key both set.
	assert.Equal(t, "repo-model", s.Config.Model)
	// Org-only key survives the repo layer's merge.
	assert.Equal(t, 10, s.PrReviewer.NumMaxFindings)
}

func TestLoadSettingsCLIOverride(t *testing.T) {
	s, err := LoadSettings(LoadOptions{
		CLIOverrides: map[string]string{
			"pr_reviewer.num_max_findings": "7",
			"pr_code_suggestions__parallel_calls": "false",
		},
		Environ: []string{},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, s.PrReviewer.NumMaxFindings)
	assert.False(t, s.PrCodeSuggestions.ParallelCalls)
}

func TestLoadSettingsForbiddenCLIOverrideRejected(t *testing.T) {
	_, err := LoadSettings(LoadOptions{
		CLIOverrides: map[string]string{"github.webhook_secret": "pwned"},
		Environ:      []string{},
	})
	require.Error(t, err)
}

func TestLoadSettingsEnvAlias(t *testing.T) {
	s, err := LoadSettings(LoadOptions{
		Environ: []string{"OPENAI_API_KEY=sk-test-123", "GITHUB_TOKEN=ghp_test"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", s.OpenAI.Key)
	assert.Equal(t, "ghp_test", s.Github.UserToken)
}

func TestLoadSettingsSkipsLocalTokenFallbackInAppMode(t *testing.T) {
	s, err := LoadSettings(LoadOptions{
		OrgTOML: "[github]\ndeployment_type = \"app\"\n",
		Environ: []string{},
	})
	require.NoError(t, err)
	assert.Equal(t, "app", s.Github.DeploymentType)
	assert.Empty(t, s.Github.UserToken)
}

func TestLoadSettingsSkipsLocalTokenFallbackWhenAlreadySet(t *testing.T) {
	s, err := LoadSettings(LoadOptions{
		Environ: []string{"GITHUB_TOKEN=ghp_explicit"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ghp_explicit", s.Github.UserToken)
}

func TestLoadSettingsGenericDottedEnvVar(t *testing.T) {
	s, err := LoadSettings(LoadOptions{
		Environ: []string{"PR_REVIEWER__NUM_MAX_FINDINGS=9"},
	})
	require.NoError(t, err)
	assert.Equal(t, 9, s.PrReviewer.NumMaxFindings)
}

func TestCoerceTOMLValueArrayAndEscapedQuotes(t *testing.T) {
	v1, err := coerceTOMLValue(`["x", "y"]`)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"x", "y"}, v1)

	v2, err := coerceTOMLValue(`[\'x\']`)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"x"}, v2)

	v3, err := coerceTOMLValue("plain string")
	require.NoError(t, err)
	assert.Equal(t, "plain string", v3)

	v4, err := coerceTOMLValue("42")
	require.NoError(t, err)
	assert.EqualValues(t, 42, v4)

	v5, err := coerceTOMLValue("true")
	require.NoError(t, err)
	assert.Equal(t, true, v5)
}

func TestDeepMergeMapsNestedTables(t *testing.T) {
	dst := map[string]interface{}{
		"a": map[string]interface{}{"x": 1, "y": 2},
		"b": "keep",
	}
	src := map[string]interface{}{
		"a": map[string]interface{}{"y": 20, "z": 30},
	}
	deepMergeMaps(dst, src)

	a := dst["a"].(map[string]interface{})
	assert.EqualValues(t, 1, a["x"])
	assert.EqualValues(t, 20, a["y"])
	assert.EqualValues(t, 30, a["z"])
	assert.Equal(t, "keep", dst["b"])
}
