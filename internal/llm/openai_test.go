package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlucaso1/pr-agent-go/internal/config"
)

func TestParseUintDigits(t *testing.T) {
	n, ok := parseUintDigits("60")
	assert.True(t, ok)
	assert.EqualValues(t, 60, n)

	_, ok = parseUintDigits("")
	assert.False(t, ok)

	_, ok = parseUintDigits("60s")
	assert.False(t, ok)
}

func TestNewOpenAIBackendFromDefaultSettings(t *testing.T) {
	settings, err := config.DefaultSettings()
	require.NoError(t, err)
	settings.OpenAI.DeploymentID = "my-deployment"

	backend, err := NewOpenAIBackend(settings)
	require.NoError(t, err)
	assert.Equal(t, "my-deployment", backend.DeploymentID())
}

func TestOpenAIBackendCapabilitiesReasoningModel(t *testing.T) {
	settings, err := config.DefaultSettings()
	require.NoError(t, err)
	settings.Config.ReasoningEffort = "high"
	config.Init(settings)

	backend, err := NewOpenAIBackend(settings)
	require.NoError(t, err)

	caps := backend.Capabilities("o3-mini")
	assert.Equal(t, "high", caps.ReasoningEffort)
	assert.False(t, caps.SupportsTemperature)
}
