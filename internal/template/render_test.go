package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlucaso1/pr-agent-go/internal/config"
)

func TestRenderSimpleVariables(t *testing.T) {
	tmpl := &config.PromptTemplate{
		System: "Review PR titled '{{ title }}' on branch '{{ branch }}'.",
		User:   "Diff:\n{{ diff }}",
	}
	vars := map[string]interface{}{
		"title":  "Fix login bug",
		"branch": "feature/login",
		"diff":   "+new line\n-old line",
	}

	result, err := RenderPrompt(tmpl, vars)
	require.NoError(t, err)
	assert.Contains(t, result.System, "Fix login bug")
	assert.Contains(t, result.System, "feature/login")
	assert.Contains(t, result.User, "+new line")
}

func TestRenderConditionals(t *testing.T) {
	tmpl := &config.PromptTemplate{
		System: "{%- if extra_instructions %}Extra: {{ extra_instructions }}{% endif %}",
		User:   "Hello",
	}

	result, err := RenderPrompt(tmpl, map[string]interface{}{"extra_instructions": "Focus on security"})
	require.NoError(t, err)
	assert.Contains(t, result.System, "Focus on security")

	result, err = RenderPrompt(tmpl, map[string]interface{}{"extra_instructions": ""})
	require.NoError(t, err)
	assert.NotContains(t, result.System, "Extra:")
}

func TestRenderStrictUndefinedFails(t *testing.T) {
	tmpl := &config.PromptTemplate{
		System: "{{ undefined_var }}",
		User:   "",
	}

	_, err := RenderPrompt(tmpl, map[string]interface{}{})
	assert.Error(t, err)
}

func TestRenderListIteration(t *testing.T) {
	tmpl := &config.PromptTemplate{
		System: "",
		User:   "{%- for item in items %}{{ item }}\n{% endfor %}",
	}

	result, err := RenderPrompt(tmpl, map[string]interface{}{
		"items": []string{"alpha", "beta", "gamma"},
	})
	require.NoError(t, err)
	assert.Contains(t, result.User, "alpha")
	assert.Contains(t, result.User, "beta")
	assert.Contains(t, result.User, "gamma")
}

func TestRenderTrimFilter(t *testing.T) {
	tmpl := &config.PromptTemplate{
		System: "",
		User:   "{{ diff|trim }}",
	}

	result, err := RenderPrompt(tmpl, map[string]interface{}{"diff": "  content  \n\n"})
	require.NoError(t, err)
	assert.Equal(t, "content", result.User)
}

func TestTemplateInjectionSafe(t *testing.T) {
	tmpl := &config.PromptTemplate{
		System: "Title: {{ title }}",
		User:   "Branch: {{ branch }}",
	}

	vars := map[string]interface{}{
		"title":  "{{ config.secret }} {% for i in range(999) %}x{% endfor %}",
		"branch": "{{ __import__('os').system('rm -rf /') }}",
	}

	result, err := RenderPrompt(tmpl, vars)
	require.NoError(t, err)
	assert.Contains(t, result.System, "{{ config.secret }}")
	assert.Contains(t, result.System, "{% for i in range(999) %}")
	assert.Contains(t, result.User, "{{ __import__('os').system('rm -rf /') }}")
}

func TestRenderRealPromptTemplate(t *testing.T) {
	settings, err := config.DefaultSettings()
	require.NoError(t, err)

	tmpl, ok := settings.Prompts["review"]
	require.True(t, ok)

	vars := map[string]interface{}{
		"title":           "Add authentication",
		"source_branch":   "feature/auth",
		"target_branch":   "main",
		"description":     "Adds OAuth2 support",
		"language":        "Go",
		"diff":            "+func login() {}",
		"num_max_findings": 5,
		"extra_instructions": "",
	}

	result, err := RenderPrompt(&tmpl, vars)
	require.NoError(t, err)
	assert.Contains(t, result.System, "PR-Agent")
	assert.Contains(t, result.User, "+func login() {}")
}
