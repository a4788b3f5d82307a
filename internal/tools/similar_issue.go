package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
	"github.com/jlucaso1/pr-agent-go/internal/template"
	"github.com/jlucaso1/pr-agent-go/internal/yamlx"
	"github.com/jlucaso1/pr-agent-go/pkg/logger"
	"github.com/jlucaso1/pr-agent-go/pkg/stringutil"
)

// maxCandidateBodyChars bounds how much of each candidate issue's body is
// sent to the LLM, so a handful of long issues can't blow the prompt budget.
const maxCandidateBodyChars = 1000

var similarIssueLog = logger.New("tools:similar_issue")

// similarIssueResult is one entry of similar_issue's similar_issues YAML response.
type similarIssueResult struct {
	IssueNumber     int64
	SimilarityScore int64
	Why             string
}

// PRSimilarIssue finds existing repo issues most similar to the one at the
// given URL: list candidate issues, ask the AI model to rank them, and
// publish the ranked list as a comment. A supplemented secondary tool; see
// SPEC_FULL.md §12.
type PRSimilarIssue struct {
	provider platform.GitProvider
	ai       aiChatFunc
}

// NewPRSimilarIssue builds a PRSimilarIssue against the production AI routing.
func NewPRSimilarIssue(p platform.GitProvider) *PRSimilarIssue {
	return &PRSimilarIssue{provider: p, ai: defaultAiChat}
}

// NewPRSimilarIssueWithAI builds a PRSimilarIssue against a test double for ai.
func NewPRSimilarIssueWithAI(p platform.GitProvider, ai aiChatFunc) *PRSimilarIssue {
	return &PRSimilarIssue{provider: p, ai: ai}
}

// Run executes the similar_issue pipeline, wrapped in the progress-comment lifecycle.
func (s *PRSimilarIssue) Run(ctx context.Context) error {
	return WithProgressComment(ctx, s.provider, "Looking for similar issues...", func() error {
		return s.runInner(ctx)
	})
}

func (s *PRSimilarIssue) runInner(ctx context.Context) error {
	settings := config.GetSettings(ctx)
	model := settings.Config.Model

	title, body, err := s.provider.GetPRDescriptionFull(ctx)
	if err != nil {
		return err
	}

	maxIssues := settings.PrSimilarIssue.MaxIssuesToScan
	candidates, err := s.provider.ListRepoIssues(ctx, maxIssues)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		similarIssueLog.Printf("no candidate issues found, skipping similar_issue")
		return nil
	}

	vars := map[string]interface{}{
		"title":      title,
		"body":       body,
		"candidates": formatCandidates(candidates),
	}

	prompt := settings.Prompts["similar_issue"]
	rendered, err := template.RenderPrompt(&prompt, vars)
	if err != nil {
		return err
	}

	similarIssueLog.Printf("calling AI model %q for similar_issue against %d candidates", model, len(candidates))
	response, err := s.ai(ctx, model, settings.Config.FallbackModels, rendered.System, rendered.User, &settings.Config.Temperature)
	if err != nil {
		return err
	}

	yamlData := yamlx.Load(response.Content, nil, "similar_issues", "issue_number")
	results := parseSimilarIssues(yamlData)

	if !settings.Config.PublishOutput {
		similarIssueLog.Printf("%d similar issues found (not publishing)", len(results))
		return nil
	}
	if len(results) == 0 {
		similarIssueLog.Printf("no similar issues found")
		return nil
	}

	return PublishAsComment(ctx, s.provider, formatSimilarIssues(results), "similar_issue", false, false)
}

func formatCandidates(candidates []platform.RepoIssue) string {
	var b strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&b, "#%d: %s\n%s\n\n", c.Number, c.Title, stringutil.Truncate(c.Body, maxCandidateBodyChars))
	}
	return b.String()
}

func parseSimilarIssues(data interface{}) []similarIssueResult {
	m, _ := data.(map[string]interface{})
	var seq []interface{}
	if m != nil {
		seq, _ = m["similar_issues"].([]interface{})
	}
	if seq == nil {
		seq, _ = data.([]interface{})
	}

	results := make([]similarIssueResult, 0, len(seq))
	for _, raw := range seq {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		number, _ := yamlx.ValueAsInt64(item["issue_number"])
		score, _ := yamlx.ValueAsInt64(item["similarity_score"])
		results = append(results, similarIssueResult{
			IssueNumber:     number,
			SimilarityScore: score,
			Why:             stringField(item, "why"),
		})
	}
	return results
}

func formatSimilarIssues(results []similarIssueResult) string {
	var b strings.Builder
	b.WriteString("### **Similar issues**\n\n")
	for _, r := range results {
		fmt.Fprintf(&b, "- #%d (similarity %d/10): %s\n", r.IssueNumber, r.SimilarityScore, r.Why)
	}
	return b.String()
}
