// Package tools implements the PR-Agent command pipelines (review, describe,
// improve, and the question-answering secondary tools) that sit on top of
// internal/platform, internal/llm, and internal/template. Grounded on
// orig/tools/mod.rs.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
	"github.com/jlucaso1/pr-agent-go/internal/prerrors"
)

// PrMetadata bundles the PR fields every tool pipeline needs, fetched once
// per run and shared across review/describe/improve instead of each tool
// re-issuing the same handful of provider calls.
type PrMetadata struct {
	Title          string
	Description    string
	Branch         string
	CommitMessages string
	BestPractices  string
	RepoMetadata   string
}

// FetchPrMetadata fetches all common PR metadata from the provider and settings.
func FetchPrMetadata(ctx context.Context, p platform.GitProvider, settings *config.Settings) (*PrMetadata, error) {
	title, description, err := p.GetPRDescriptionFull(ctx)
	if err != nil {
		return nil, err
	}
	branch, err := p.GetPRBranch(ctx)
	if err != nil {
		return nil, err
	}
	commitMessages, err := p.GetCommitMessages(ctx)
	if err != nil {
		return nil, err
	}

	bestPractices := settings.BestPractices.Content
	if bestPractices == "" {
		bestPractices, _ = p.GetBestPractices(ctx)
	}

	repoMetadata, _ := p.GetRepoMetadata(ctx)

	return &PrMetadata{
		Title:          title,
		Description:    description,
		Branch:         branch,
		CommitMessages: commitMessages,
		BestPractices:  bestPractices,
		RepoMetadata:   repoMetadata,
	}, nil
}

// WithProgressComment runs inner wrapped with the progress-comment lifecycle:
// if settings.config.publish_output_progress is enabled, it publishes a
// temporary progress comment before inner runs and removes it afterward,
// even if inner returns an error.
func WithProgressComment(ctx context.Context, p platform.GitProvider, message string, inner func() error) error {
	settings := config.GetSettings(ctx)

	var progressID *platform.CommentID
	if settings.Config.PublishOutputProgress {
		progressID, _ = p.PublishComment(ctx, message, true)
	}

	result := inner()

	if progressID != nil {
		_ = p.RemoveComment(ctx, *progressID)
	}

	return result
}

// BuildCustomLabelsClass produces the prompt-friendly label class format:
//
//	Label('gn-florestal', description='Changes to gn-florestal')
//	Label('database', description='Changes to database schemas')
//
// Labels are sorted by name so the rendered prompt is deterministic across
// runs, unlike Go's randomized map iteration order.
func BuildCustomLabelsClass(labels map[string]config.CustomLabelEntry) string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "Label('%s', description='%s')\n", name, labels[name].Description)
	}
	return b.String()
}

// BuildCommonVars builds the template variables shared by every tool
// (review, describe, improve): an 8-entry map that each tool then extends
// with its own tool-specific variables.
func BuildCommonVars(meta *PrMetadata, diff string) map[string]interface{} {
	return map[string]interface{}{
		"title":                  meta.Title,
		"branch":                 meta.Branch,
		"description":            meta.Description,
		"language":               "",
		"diff":                   diff,
		"commit_messages_str":    meta.CommitMessages,
		"best_practices_content": meta.BestPractices,
		"repo_metadata":          meta.RepoMetadata,
	}
}

// InsertCustomLabelsVars adds the enable_custom_labels/custom_labels_class/
// custom_labels template variables shared by review and describe.
func InsertCustomLabelsVars(vars map[string]interface{}, settings *config.Settings) {
	hasCustomLabels := len(settings.CustomLabels) > 0
	vars["enable_custom_labels"] = hasCustomLabels
	if hasCustomLabels {
		vars["custom_labels_class"] = BuildCustomLabelsClass(settings.CustomLabels)
	} else {
		vars["custom_labels_class"] = ""
	}
	vars["custom_labels"] = ""
}

// PublishAsComment publishes tool output as either a persistent comment
// (edited in place on re-runs) or a plain new comment, per the persistent
// flag. Shared by review and improve.
func PublishAsComment(ctx context.Context, p platform.GitProvider, content, toolName string, persistent, finalUpdateMessage bool) error {
	if persistent {
		marker := fmt.Sprintf("<!-- pr-agent:%s -->", toolName)
		return platform.PublishPersistentComment(ctx, p, content, marker, "", toolName, finalUpdateMessage)
	}
	_, err := p.PublishComment(ctx, content, false)
	return err
}

// ParseCommand parses a "/command --arg=value" string into (command name,
// config overrides). "__" in an override key is translated to "." so PR
// comment commands can address nested settings (e.g.
// pr_reviewer__num_max_findings=3 → pr_reviewer.num_max_findings=3).
func ParseCommand(input string) (string, map[string]string) {
	trimmed := strings.TrimSpace(input)
	fields := strings.Fields(trimmed)

	command := ""
	if len(fields) > 0 {
		command = strings.ToLower(strings.TrimLeft(fields[0], "/"))
	}

	overrides := make(map[string]string)
	for _, part := range fields[1:] {
		stripped := strings.TrimLeft(part, "-")
		stripped = strings.ReplaceAll(stripped, "__", ".")
		key, value, ok := strings.Cut(stripped, "=")
		if ok {
			overrides[key] = value
		}
	}

	return command, overrides
}

// HandleCommand dispatches command against provider. If args carries
// per-command overrides (from a "/command --key=value" PR comment), a
// scoped Settings snapshot with those overrides applied is installed on ctx
// for the dynamic extent of this one dispatch, leaving the ambient settings
// (and any other concurrent dispatch) untouched.
func HandleCommand(ctx context.Context, command string, p platform.GitProvider, args map[string]string) error {
	if len(args) > 0 {
		scoped, err := config.LoadSettings(config.LoadOptions{CLIOverrides: args})
		if err != nil {
			scoped = config.GetSettings(ctx)
		}
		ctx = config.WithSettings(ctx, scoped)
	}
	return dispatch(ctx, command, p, args)
}

// HandleAskCommand runs the Ask tool directly with a free-form question,
// bypassing the "/command --key=value" arg-override parsing HandleCommand
// does for the other tools (a question is free text, not a settings
// override list).
func HandleAskCommand(ctx context.Context, p platform.GitProvider, question string) error {
	return NewPRAsk(p).Run(ctx, question)
}

// HandleAskLineCommand runs the AskLine tool directly with its parsed
// comment-command args (line_start/line_end/side/file_name/comment_id/
// _text/_diff_hunk), bypassing HandleCommand's settings-override parsing.
func HandleAskLineCommand(ctx context.Context, p platform.GitProvider, args map[string]string) error {
	return NewPRAskLine(p).Run(ctx, args)
}

func dispatch(ctx context.Context, command string, p platform.GitProvider, args map[string]string) error {
	switch command {
	case "review", "auto_review", "review_pr":
		return NewPRReviewer(p).Run(ctx)
	case "describe", "describe_pr":
		return NewPRDescription(p).Run(ctx)
	case "improve", "improve_code":
		return NewPRCodeSuggestions(p).Run(ctx)
	case "ask", "ask_question":
		return HandleAskCommand(ctx, p, args["_text"])
	case "ask_line":
		return HandleAskLineCommand(ctx, p, args)
	case "update_changelog":
		return NewPRUpdateChangelog(p).Run(ctx)
	case "add_docs":
		return NewPRAddDocs(p).Run(ctx)
	case "help_docs":
		return NewPRHelpDocs(p).Run(ctx, args["_text"])
	case "similar_issue":
		return NewPRSimilarIssue(p).Run(ctx)
	case "generate_labels":
		return NewPRGenerateLabels(p).Run(ctx)
	case "answer":
		return NewPRAnswer(p).Run(ctx)
	default:
		return prerrors.NewOther("unknown command: '%s'", command)
	}
}
