package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/diffproc"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
	"github.com/jlucaso1/pr-agent-go/internal/template"
	"github.com/jlucaso1/pr-agent-go/pkg/logger"
)

var askLineLog = logger.New("tools:ask_line")

// PRAskLine answers a question scoped to a specific line range of one file,
// as asked from a GitHub review-thread comment. Grounded on
// orig/tools/ask_line.rs's PRAskLine.
type PRAskLine struct {
	provider platform.GitProvider
	ai       aiChatFunc
}

// NewPRAskLine builds a PRAskLine against the production AI routing.
func NewPRAskLine(p platform.GitProvider) *PRAskLine {
	return &PRAskLine{provider: p, ai: defaultAiChat}
}

// NewPRAskLineWithAI builds a PRAskLine against a test double for ai.
func NewPRAskLineWithAI(p platform.GitProvider, ai aiChatFunc) *PRAskLine {
	return &PRAskLine{provider: p, ai: ai}
}

// Run executes the ask_line pipeline against a parsed comment-command
// args map. Expected keys: line_start, line_end, side, file_name,
// comment_id, _text (the question), _diff_hunk (the webhook-provided hunk,
// if any).
func (a *PRAskLine) Run(ctx context.Context, args map[string]string) error {
	question := args["_text"]
	if strings.TrimSpace(question) == "" {
		askLineLog.Printf("empty question, skipping /ask_line")
		return nil
	}

	fileName := args["file_name"]
	lineStart := atoiArg(args["line_start"], 0)
	lineEnd := atoiArg(args["line_end"], lineStart)
	side := args["side"]
	if side == "" {
		side = "RIGHT"
	}
	commentID := uint64Arg(args["comment_id"], 0)

	settings := config.GetSettings(ctx)
	model := settings.Config.Model

	fullHunk, selectedLines, err := a.resolveHunk(ctx, args["_diff_hunk"], fileName, lineStart, lineEnd, side)
	if err != nil {
		return err
	}
	if fullHunk == "" {
		askLineLog.Printf("no hunk found for ask_line: file=%q lines=%d-%d", fileName, lineStart, lineEnd)
		return nil
	}

	conversationHistory := ""
	if settings.PrQuestions.UseConversationHistory && commentID > 0 {
		conversationHistory = a.loadConversationHistory(ctx, commentID)
	}

	title, _, err := a.provider.GetPRDescriptionFull(ctx)
	if err != nil {
		return err
	}
	branch, err := a.provider.GetPRBranch(ctx)
	if err != nil {
		return err
	}

	vars := map[string]interface{}{
		"title":                title,
		"branch":               branch,
		"question":             strings.TrimSpace(question),
		"relevant_file":        fileName,
		"line_start":           lineStart,
		"line_end":             lineEnd,
		"hunk":                 fullHunk,
		"full_hunk":            fullHunk,
		"selected_lines":       selectedLines,
		"conversation_history": conversationHistory,
	}

	askLinePrompt := settings.Prompts["ask_line"]
	rendered, err := template.RenderPrompt(&askLinePrompt, vars)
	if err != nil {
		return err
	}

	askLineLog.Printf("calling AI model %q for ask_line", model)
	response, err := a.ai(ctx, model, settings.Config.FallbackModels, rendered.System, rendered.User, &settings.Config.Temperature)
	if err != nil {
		return err
	}

	answer := sanitizeAnswer(extractAnswerField(response.Content))

	if commentID > 0 {
		return a.provider.ReplyToComment(ctx, commentID, answer)
	}
	if settings.Config.PublishOutput {
		_, err := a.provider.PublishComment(ctx, answer, false)
		return err
	}
	askLineLog.Printf("%s", answer)
	return nil
}

// resolveHunk extracts the hunk's full text and the question's specific
// selected lines, either directly from a webhook-provided diff_hunk or, if
// that is empty, by fetching the PR's diff files and matching fileName.
func (a *PRAskLine) resolveHunk(ctx context.Context, diffHunk, fileName string, lineStart, lineEnd int, side string) (fullHunk, selectedLines string, err error) {
	if diffHunk != "" {
		fullHunk, selectedLines = diffproc.ExtractHunkLinesFromPatch(diffHunk, fileName, lineStart, lineEnd, side)
		return fullHunk, selectedLines, nil
	}

	files, err := a.provider.GetDiffFiles(ctx)
	if err != nil {
		return "", "", err
	}
	for _, f := range files {
		if f.Filename == fileName {
			fullHunk, selectedLines = diffproc.ExtractHunkLinesFromPatch(f.Patch, fileName, lineStart, lineEnd, side)
			break
		}
	}
	return fullHunk, selectedLines, nil
}

// loadConversationHistory fetches the review thread's comments, filters out
// the anchor comment and any empty bodies, and formats the rest as a
// numbered "N. author: body" list. Grounded on
// orig/tools/ask_line.rs's load_conversation_history.
func (a *PRAskLine) loadConversationHistory(ctx context.Context, commentID uint64) string {
	comments, err := a.provider.GetReviewThreadComments(ctx, commentID)
	if err != nil {
		askLineLog.Printf("failed to load conversation history: %v", err)
		return ""
	}

	var filtered []platform.IssueComment
	for _, c := range comments {
		if c.ID != commentID && strings.TrimSpace(c.Body) != "" {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return ""
	}
	askLineLog.Printf("loaded %d comments of conversation history from review thread", len(filtered))

	lines := make([]string, len(filtered))
	for i, c := range filtered {
		author := c.User
		if author == "" {
			author = "Unknown"
		}
		lines[i] = fmt.Sprintf("%d. %s: %s", i+1, author, c.Body)
	}
	return strings.Join(lines, "\n")
}

func atoiArg(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func uint64Arg(s string, fallback uint64) uint64 {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
