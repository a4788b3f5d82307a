package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
)

const sampleSimilarIssuesYAML = `
similar_issues:
  - issue_number: 42
    similarity_score: 8
    why: "Both report a crash on startup with an invalid config file"
`

func TestFormatCandidates(t *testing.T) {
	candidates := []platform.RepoIssue{
		{Number: 7, Title: "Crash on boot", Body: "App crashes immediately"},
	}
	out := formatCandidates(candidates)
	assert.Contains(t, out, "#7: Crash on boot")
	assert.Contains(t, out, "App crashes immediately")
}

func TestParseSimilarIssues(t *testing.T) {
	data := map[string]interface{}{
		"similar_issues": []interface{}{
			map[string]interface{}{"issue_number": 42, "similarity_score": 8, "why": "same root cause"},
		},
	}
	results := parseSimilarIssues(data)
	require.Len(t, results, 1)
	assert.Equal(t, int64(42), results[0].IssueNumber)
	assert.Equal(t, int64(8), results[0].SimilarityScore)
}

func TestSimilarIssuePipelineEndToEnd(t *testing.T) {
	settings := testSettings(t)
	settings.Config.PublishOutput = true
	settings.Config.PublishOutputProgress = false
	settings.PrSimilarIssue.MaxIssuesToScan = 10
	ctx := config.WithSettings(context.Background(), settings)

	provider := newMockGitProvider()
	provider.RepoIssues = []platform.RepoIssue{
		{Number: 42, Title: "App crashes with invalid config", Body: "Same issue here"},
	}
	tool := NewPRSimilarIssueWithAI(provider, constantAI(sampleSimilarIssuesYAML))

	err := tool.Run(ctx)
	require.NoError(t, err)

	comments := provider.calls.snapshot().comments
	require.NotEmpty(t, comments)
	assert.Contains(t, comments[0].body, "#42")
	assert.Contains(t, comments[0].body, "Similar issues")
}

func TestSimilarIssueNoCandidatesSkipsAICall(t *testing.T) {
	settings := testSettings(t)
	settings.Config.PublishOutput = true
	ctx := config.WithSettings(context.Background(), settings)

	provider := newMockGitProvider()
	calls := 0
	tool := NewPRSimilarIssueWithAI(provider, countingAI(sampleSimilarIssuesYAML, &calls))

	err := tool.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, calls, "should not call AI when there are no candidate issues")
	assert.Empty(t, provider.calls.snapshot().comments)
}
