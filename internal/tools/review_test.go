package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/llm"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
)

const sampleReviewYAML = `
review:
  estimated_effort_to_review_[1-5]: 3
  relevant_tests: "No"
  security_concerns: "No"
  key_issues_to_review:
    - issue_header: "Error Handling"
      issue_content: "Missing error check on file open"
      relevant_file: "src/main.go"
      start_line: 10
      end_line: 12
`

const malformedYAML = "not: [valid: yaml: at: all"

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	settings, err := config.DefaultSettings()
	require.NoError(t, err)
	return settings
}

func sampleDiffFile() *platform.FilePatchInfo {
	f := platform.NewFilePatchInfo("old content\n", "new content\n", "@@ -1,1 +1,1 @@\n-old content\n+new content\n", "src/main.go")
	f.EditType = platform.EditModified
	f.NumPlusLines = 1
	f.NumMinusLines = 1
	return f
}

func constantAI(content string) aiChatFunc {
	return func(context.Context, string, []string, string, string, *float64) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{Content: content}, nil
	}
}

func countingAI(content string, calls *int) aiChatFunc {
	return func(context.Context, string, []string, string, string, *float64) (*llm.ChatResponse, error) {
		*calls++
		return &llm.ChatResponse{Content: content}, nil
	}
}

func TestReviewPipelineEndToEnd(t *testing.T) {
	settings := testSettings(t)
	settings.Config.PublishOutput = true
	settings.PrReviewer.EnableReviewLabels = true
	ctx := config.WithSettings(context.Background(), settings)

	provider := newMockGitProvider().withDiffFiles([]*platform.FilePatchInfo{sampleDiffFile()})
	reviewer := NewPRReviewerWithAI(provider, constantAI(sampleReviewYAML))

	err := reviewer.Run(ctx)
	require.NoError(t, err)

	calls := provider.calls.snapshot()
	require.Len(t, calls.comments, 1)
	assert.Contains(t, calls.comments[0].body, "PR Reviewer Guide")
	assert.Contains(t, calls.comments[0].body, "Error Handling")
	assert.False(t, calls.comments[0].isTemporary)

	require.Len(t, calls.labels, 1)
	assert.Contains(t, calls.labels[0], "Review effort [1-5]: 3")
}

func TestReviewHandlesMalformedYAML(t *testing.T) {
	settings := testSettings(t)
	settings.Config.PublishOutput = true
	ctx := config.WithSettings(context.Background(), settings)

	provider := newMockGitProvider().withDiffFiles([]*platform.FilePatchInfo{sampleDiffFile()})
	reviewer := NewPRReviewerWithAI(provider, constantAI(malformedYAML))

	err := reviewer.Run(ctx)
	require.NoError(t, err)

	calls := provider.calls.snapshot()
	require.Len(t, calls.comments, 1)
	assert.Contains(t, calls.comments[0].body, "PR Reviewer Guide")
	assert.Empty(t, calls.labels)
}

func TestReviewPublishesLabelsWhenEnabled(t *testing.T) {
	settings := testSettings(t)
	settings.Config.PublishOutput = true
	settings.PrReviewer.EnableReviewLabels = false
	settings.PrReviewer.EnableSecurityLabel = true
	ctx := config.WithSettings(context.Background(), settings)

	securityYAML := `
review:
  estimated_effort_to_review_[1-5]: 2
  security_concerns: "Potential SQL injection in query builder"
`
	provider := newMockGitProvider().withDiffFiles([]*platform.FilePatchInfo{sampleDiffFile()})
	reviewer := NewPRReviewerWithAI(provider, constantAI(securityYAML))

	err := reviewer.Run(ctx)
	require.NoError(t, err)

	calls := provider.calls.snapshot()
	require.Len(t, calls.labels, 1)
	assert.Equal(t, []string{"Security concern"}, calls.labels[0])
}

func TestReviewEmptyDiff(t *testing.T) {
	settings := testSettings(t)
	settings.Config.PublishOutput = true
	ctx := config.WithSettings(context.Background(), settings)

	provider := newMockGitProvider().withDiffFiles(nil)
	var numAiCalls int
	reviewer := NewPRReviewerWithAI(provider, countingAI(sampleReviewYAML, &numAiCalls))

	err := reviewer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, numAiCalls)

	calls := provider.calls.snapshot()
	require.Len(t, calls.comments, 1)
}

func TestProgressCommentLifecycle(t *testing.T) {
	settings := testSettings(t)
	settings.Config.PublishOutput = true
	settings.Config.PublishOutputProgress = true
	ctx := config.WithSettings(context.Background(), settings)

	provider := newMockGitProvider().withDiffFiles([]*platform.FilePatchInfo{sampleDiffFile()})
	reviewer := NewPRReviewerWithAI(provider, constantAI(sampleReviewYAML))

	err := reviewer.Run(ctx)
	require.NoError(t, err)

	calls := provider.calls.snapshot()
	require.Len(t, calls.comments, 2)
	assert.True(t, calls.comments[0].isTemporary)
	assert.Equal(t, "Preparing review...", calls.comments[0].body)
	require.Len(t, calls.removedComments, 1)
	assert.Equal(t, calls.comments[0].id, calls.removedComments[0])
	assert.False(t, calls.comments[1].isTemporary)
}
