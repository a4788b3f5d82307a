package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
)

const sampleDescribeYAML = `
title: "Add debug output to request handler"
type: "Enhancement"
description: "Adds structured debug logging around the request path."
`

func TestStripPrAgentContentWithMarker(t *testing.T) {
	body := "User wrote this.\n\n---\n\n<!-- pr-agent:describe -->\n### PR Type\nGenerated stuff"
	assert.Equal(t, "User wrote this.", stripPrAgentContent(body))
}

func TestStripPrAgentContentWithoutMarker(t *testing.T) {
	body := "Just a normal body with no markers."
	assert.Equal(t, body, stripPrAgentContent(body))
}

func TestStripPrAgentContentEmpty(t *testing.T) {
	assert.Equal(t, "", stripPrAgentContent(""))
}

func TestStripPrAgentContentMarkerAtStart(t *testing.T) {
	body := "<!-- pr-agent:describe -->\nAll generated"
	assert.Equal(t, "", stripPrAgentContent(body))
}

func TestStripPrAgentContentLegacyFormat(t *testing.T) {
	body := "### **User description**\nUser wrote this.\n\n___\n\n### **PR Type**\nEnhancement\n\n___\n\n### **Description**\n- Generated bullet"
	assert.Equal(t, "User wrote this.", stripPrAgentContent(body))
}

func TestStripPrAgentContentLegacyFormatNoUserDesc(t *testing.T) {
	body := "### **PR Type**\nEnhancement\n\n### **Description**\n- Generated"
	assert.Equal(t, "", stripPrAgentContent(body))
}

func TestIsGeneratedByPrAgentHTMLMarker(t *testing.T) {
	assert.True(t, isGeneratedByPrAgent("<!-- pr-agent:describe -->\nContent"))
}

func TestIsGeneratedByPrAgentLegacyHeader(t *testing.T) {
	assert.True(t, isGeneratedByPrAgent("### **User description**\nContent"))
	assert.True(t, isGeneratedByPrAgent("### **PR Type**\nContent"))
}

func TestIsGeneratedByPrAgentNormalBody(t *testing.T) {
	assert.False(t, isGeneratedByPrAgent("Just a normal PR body."))
}

func TestDescribePipelineEndToEnd(t *testing.T) {
	settings := testSettings(t)
	settings.Config.PublishOutput = true
	settings.Config.PublishOutputProgress = false
	settings.PrDescription.GenerateAiTitle = true
	ctx := config.WithSettings(context.Background(), settings)

	provider := newMockGitProvider().withDiffFiles([]*platform.FilePatchInfo{sampleDiffFile()})
	describer := NewPRDescriptionWithAI(provider, constantAI(sampleDescribeYAML))

	err := describer.Run(ctx)
	require.NoError(t, err)

	calls := provider.calls.snapshot()
	require.NotEmpty(t, calls.descriptions)
	title, body := calls.descriptions[0][0], calls.descriptions[0][1]
	assert.Contains(t, title, "Add debug output")
	assert.Contains(t, body, "<!-- pr-agent:describe -->")
}

func TestDescribePreservesUserDescription(t *testing.T) {
	settings := testSettings(t)
	settings.Config.PublishOutput = true
	settings.Config.PublishOutputProgress = false
	settings.PrDescription.AddOriginalUserDescription = true
	ctx := config.WithSettings(context.Background(), settings)

	userBody := "My original PR description that should be preserved."
	provider := newMockGitProvider().
		withPRDescription("Original Title", userBody).
		withDiffFiles([]*platform.FilePatchInfo{sampleDiffFile()})
	describer := NewPRDescriptionWithAI(provider, constantAI(sampleDescribeYAML))

	err := describer.Run(ctx)
	require.NoError(t, err)

	calls := provider.calls.snapshot()
	require.NotEmpty(t, calls.descriptions)
	body := calls.descriptions[0][1]
	assert.Contains(t, body, userBody)

	markerPos := strings.Index(body, "<!-- pr-agent:describe -->")
	userPos := strings.Index(body, userBody)
	assert.Less(t, userPos, markerPos)
}

func TestDescribeStripsPreviousAgentContent(t *testing.T) {
	settings := testSettings(t)
	settings.Config.PublishOutput = true
	settings.Config.PublishOutputProgress = false
	settings.PrDescription.AddOriginalUserDescription = true
	ctx := config.WithSettings(context.Background(), settings)

	prevBody := "User wrote this.\n\n---\n\n<!-- pr-agent:describe -->\n### **PR Type**\nOld generated content"
	provider := newMockGitProvider().
		withPRDescription("Old Title", prevBody).
		withDiffFiles([]*platform.FilePatchInfo{sampleDiffFile()})
	describer := NewPRDescriptionWithAI(provider, constantAI(sampleDescribeYAML))

	err := describer.Run(ctx)
	require.NoError(t, err)

	calls := provider.calls.snapshot()
	body := calls.descriptions[0][1]
	assert.Contains(t, body, "User wrote this.")
	assert.NotContains(t, body, "Old generated content")
}

func TestDescribeAsCommentMode(t *testing.T) {
	settings := testSettings(t)
	settings.Config.PublishOutput = true
	settings.Config.PublishOutputProgress = false
	settings.PrDescription.PublishDescriptionAsComment = true
	ctx := config.WithSettings(context.Background(), settings)

	provider := newMockGitProvider().withDiffFiles([]*platform.FilePatchInfo{sampleDiffFile()})
	describer := NewPRDescriptionWithAI(provider, constantAI(sampleDescribeYAML))

	err := describer.Run(ctx)
	require.NoError(t, err)

	calls := provider.calls.snapshot()
	assert.Empty(t, calls.descriptions)
	assert.NotEmpty(t, calls.comments)
}
