// Command pr-agent is an AI-powered pull request reviewer: a CLI for
// one-shot review/describe/improve/ask invocations plus a "serve"
// subcommand that runs the same tools behind a GitHub webhook receiver.
// Grounded on orig/cli.rs and the teacher's cmd/gh-aw/main.go cobra
// conventions.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set by the release build via -ldflags; "dev" otherwise.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "pr-agent",
	Short:   "AI-powered code review and PR analysis tool",
	Version: version,
	Long: `pr-agent reviews pull requests with an LLM: a structured review with a
summary and findings, a rewritten PR title/description, inline code
suggestions, and free-form Q&A against the diff.

Common tasks:
  pr-agent review --pr-url=<url>        # post a review comment
  pr-agent describe --pr-url=<url>      # rewrite title/description
  pr-agent improve --pr-url=<url>       # post inline code suggestions
  pr-agent ask --pr-url=<url> -- why is this slow
  pr-agent serve                        # run the webhook server
  pr-agent health                       # liveness probe for Docker

Extra "--section.key=value" arguments placed after "--" are applied as
one-off settings overrides for that invocation only.`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().String("pr-url", "", "URL of the pull request to act on")
	rootCmd.PersistentFlags().String("issue-url", "", "URL of the issue to act on")
	rootCmd.SetOut(os.Stderr)

	// newHealthCmd's RunE never touches settings/provider bootstrap, so a
	// liveness probe can never fail because an unrelated API key is
	// misconfigured — it is just an ordinary subcommand here.
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newServeCmd())
	for _, tc := range toolCommands {
		rootCmd.AddCommand(newToolCmd(tc))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err.Error()))
		os.Exit(1)
	}
}
