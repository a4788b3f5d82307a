package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// toolCommand describes one of the non-Config/Serve/Health subcommands:
// the cobra surface (use/short/aliases) plus the canonical tool name
// internal/tools.HandleCommand dispatches on. Mirrors orig/cli.rs's
// Command enum + Command::canonical_name().
type toolCommand struct {
	use       string
	short     string
	aliases   []string
	canonical string
}

var toolCommands = []toolCommand{
	{use: "review", short: "Add a review with summary and suggestions", aliases: []string{"review_pr"}, canonical: "review"},
	{use: "auto-review", short: "Automatic review (triggered by CI/webhooks)", canonical: "auto_review"},
	{use: "answer", short: "Answer mode (for issue comments)", canonical: "answer"},
	{use: "describe", short: "Rewrite the PR title and description", aliases: []string{"describe_pr"}, canonical: "describe"},
	{use: "improve", short: "Suggest code improvements", aliases: []string{"improve_code"}, canonical: "improve"},
	{use: "ask", short: "Ask a free-form question about the PR", aliases: []string{"ask_question"}, canonical: "ask"},
	{use: "ask-line", short: "Ask a question about a specific diff line", canonical: "ask_line"},
	{use: "update-changelog", short: "Update the changelog based on this PR", canonical: "update_changelog"},
	{use: "add-docs", short: "Add documentation for this PR's changes", canonical: "add_docs"},
	{use: "generate-labels", short: "Generate and apply PR labels", canonical: "generate_labels"},
	{use: "help-docs", short: "Get help on issues/PRs from project docs", canonical: "help_docs"},
	{use: "similar-issue", short: "Find similar issues", canonical: "similar_issue"},
}

// newToolCmd builds the cobra.Command for one toolCommand entry. Every one
// of these requires --pr-url or --issue-url (inherited persistent flags on
// rootCmd) and forwards any "--section.key=value" args placed after "--" as
// settings overrides.
func newToolCmd(tc toolCommand) *cobra.Command {
	return &cobra.Command{
		Use:     tc.use,
		Short:   tc.short,
		Aliases: tc.aliases,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prURL, _ := cmd.Flags().GetString("pr-url")
			issueURL, _ := cmd.Flags().GetString("issue-url")
			return runTool(cmd.Context(), prURL, issueURL, args, tc.canonical)
		},
	}
}

// newConfigCmd prints the resolved ambient settings that matter most for
// diagnosing "why did the model/provider do that" questions — the same four
// fields orig/cli.rs's Config arm prints.
func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "config",
		Aliases: []string{"settings"},
		Short:   "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parseConfigOverrides(args)
			if err != nil {
				return err
			}
			settings, _, err := bootstrapSettings(overrides)
			if err != nil {
				return err
			}
			fmt.Printf("Model: %s\n", settings.Config.Model)
			fmt.Printf("Temperature: %g\n", settings.Config.Temperature)
			fmt.Printf("Git provider: %s\n", settings.Config.GitProvider)
			fmt.Printf("Max model tokens: %d\n", settings.Config.MaxModelTokens)
			return nil
		},
	}
}
