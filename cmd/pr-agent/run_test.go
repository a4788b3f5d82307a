package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOverridesConfigArgsOnly(t *testing.T) {
	overrides, err := buildOverrides("review", []string{"--pr_reviewer.num_max_findings=5"})
	require.NoError(t, err)
	assert.Equal(t, "5", overrides["pr_reviewer.num_max_findings"])
	assert.NotContains(t, overrides, "_text")
}

func TestBuildOverridesAskCollectsFreeText(t *testing.T) {
	overrides, err := buildOverrides("ask", []string{"What", "does", "this", "PR", "change?"})
	require.NoError(t, err)
	assert.Equal(t, "What does this PR change?", overrides["_text"])
}

func TestBuildOverridesAskQuestionCollectsFreeText(t *testing.T) {
	overrides, err := buildOverrides("ask_question", []string{"why", "is", "this", "slow?"})
	require.NoError(t, err)
	assert.Equal(t, "why is this slow?", overrides["_text"])
}

func TestBuildOverridesHelpDocsCollectsFreeText(t *testing.T) {
	overrides, err := buildOverrides("help_docs", []string{"how", "do", "I", "run", "tests?"})
	require.NoError(t, err)
	assert.Equal(t, "how do I run tests?", overrides["_text"])
}

func TestBuildOverridesNonAskCommandIgnoresPlainWords(t *testing.T) {
	overrides, err := buildOverrides("review", []string{"plain", "words", "ignored"})
	require.NoError(t, err)
	assert.NotContains(t, overrides, "_text")
	assert.Empty(t, overrides)
}

func TestBuildOverridesAskMixedConfigAndText(t *testing.T) {
	overrides, err := buildOverrides("ask", []string{"--pr_reviewer.num_max_findings=2", "what", "changed?"})
	require.NoError(t, err)
	assert.Equal(t, "2", overrides["pr_reviewer.num_max_findings"])
	assert.Equal(t, "what changed?", overrides["_text"])
}

func TestBuildOverridesPropagatesForbiddenKeyError(t *testing.T) {
	_, err := buildOverrides("review", []string{"--github.webhook_secret=evil"})
	assert.Error(t, err)
}
