package server

import (
	"context"
	"strconv"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
	"github.com/jlucaso1/pr-agent-go/internal/tools"
	"github.com/jlucaso1/pr-agent-go/pkg/logger"
)

var cmdLog = logger.New("server:commands")

// runCommands fetches scoped settings once for prURL, skips the PR entirely
// if it matches an ignore rule, then runs each command string in order,
// logging and continuing past a single command's failure so one broken tool
// doesn't block the rest of the list. Grounded on orig/server/webhook.rs's
// run_commands.
func runCommands(ctx context.Context, provider platform.GitProvider, base *config.Settings, baseOpts config.LoadOptions, commands []string) error {
	scoped, err := fetchScopedSettings(ctx, provider, base, baseOpts)
	if err != nil {
		return err
	}

	title, _, err := provider.GetPRDescriptionFull(ctx)
	if err != nil {
		return err
	}
	author, _ := provider.GetUserID(ctx)
	if shouldIgnorePR(title, author, scoped) {
		cmdLog.Printf("ignoring PR %q (author=%s) per ignore settings", title, author)
		return nil
	}

	scopedCtx := config.WithSettings(ctx, scoped)

	for _, raw := range commands {
		command, overrides := tools.ParseCommand(raw)
		if command == "" {
			continue
		}
		if err := tools.HandleCommand(scopedCtx, command, provider, overrides); err != nil {
			cmdLog.Printf("command %q failed: %v", command, err)
		}
	}

	return nil
}

// handleCheckboxEdit inspects an issue_comment "edited" event: if the
// edited body carries a checked self-review checkbox, it performs the
// marker's requested action(s) (approve, fold, or both) exactly once.
// Grounded on orig/server/webhook.rs's handle_checkbox_edit.
func handleCheckboxEdit(ctx context.Context, provider platform.GitProvider, commentID uint64, body string) error {
	if !isSelfReviewChecked(body) {
		return nil
	}

	action := detectSelfReviewAction(body)
	if action == selfReviewNone {
		return nil
	}

	if action == selfReviewApprove || action == selfReviewApproveAndFold {
		if _, err := provider.AutoApprove(ctx); err != nil {
			cmdLog.Printf("self-review auto-approve failed: %v", err)
		}
	}

	if action == selfReviewFold || action == selfReviewApproveAndFold {
		folded := foldCommentBody(body)
		if folded != body {
			id := platform.CommentID(strconv.FormatUint(commentID, 10))
			if err := provider.EditComment(ctx, id, folded); err != nil {
				return err
			}
		}
	}

	return nil
}

// handleCommentCommand parses a "/command ..." issue comment and runs it
// directly against provider under scoped settings, skipping the ignore
// check (a human typing a command on an otherwise-ignored PR is an explicit
// request, not automatic dispatch).
func handleCommentCommand(ctx context.Context, provider platform.GitProvider, base *config.Settings, baseOpts config.LoadOptions, commentText string) error {
	scoped, err := fetchScopedSettings(ctx, provider, base, baseOpts)
	if err != nil {
		return err
	}
	scopedCtx := config.WithSettings(ctx, scoped)

	command, overrides := tools.ParseCommand(commentText)
	if command == "" {
		return nil
	}

	// "/ask"/"/ask_question"/"/help_docs" take a free-form question, not
	// "key=value" overrides: tools.ParseCommand would silently drop plain
	// words, so build the args map HandleAskCommand/PRHelpDocs expects
	// (args["_text"]) instead.
	if command == "ask" || command == "ask_question" || command == "help_docs" {
		return tools.HandleCommand(scopedCtx, command, provider, map[string]string{"_text": askQuestionText(commentText)})
	}

	return tools.HandleCommand(scopedCtx, command, provider, overrides)
}

// askQuestionText strips the leading "/ask" or "/ask_question" token off a
// PR comment and returns the remaining free-form question text, trimmed.
func askQuestionText(commentText string) string {
	trimmed := strings.TrimSpace(commentText)
	rest := strings.TrimLeft(trimmed, "/")
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ""
	}
	_, remainder, found := strings.Cut(rest, fields[0])
	if !found {
		return ""
	}
	return strings.TrimSpace(remainder)
}
