package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigOverridesBasic(t *testing.T) {
	overrides, err := parseConfigOverrides([]string{"--pr_reviewer.num_max_findings=7"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"pr_reviewer.num_max_findings": "7"}, overrides)
}

func TestParseConfigOverridesDoubleUnderscore(t *testing.T) {
	overrides, err := parseConfigOverrides([]string{"--pr_code_suggestions__parallel_calls=false"})
	require.NoError(t, err)
	assert.Equal(t, "false", overrides["pr_code_suggestions.parallel_calls"])
}

func TestParseConfigOverridesSkipsNonConfigArgs(t *testing.T) {
	overrides, err := parseConfigOverrides([]string{"plain-word", "--pr_reviewer.num_max_findings=3"})
	require.NoError(t, err)
	assert.Len(t, overrides, 1)
	assert.Equal(t, "3", overrides["pr_reviewer.num_max_findings"])
}

func TestParseConfigOverridesRejectsForbiddenKey(t *testing.T) {
	_, err := parseConfigOverrides([]string{"--github.webhook_secret=evil"})
	assert.Error(t, err)
}

func TestParseConfigOverridesLowercasesKeys(t *testing.T) {
	overrides, err := parseConfigOverrides([]string{"--PR_REVIEWER.NUM_MAX_FINDINGS=9"})
	require.NoError(t, err)
	assert.Equal(t, "9", overrides["pr_reviewer.num_max_findings"])
}

func TestParseConfigOverridesEmptyArgIgnored(t *testing.T) {
	overrides, err := parseConfigOverrides([]string{"--", "--pr_reviewer.num_max_findings=1"})
	require.NoError(t, err)
	assert.Len(t, overrides, 1)
}
