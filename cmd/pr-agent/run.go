package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/platform/github"
	"github.com/jlucaso1/pr-agent-go/internal/tools"
)

// buildOverrides turns a subcommand's trailing rest args into the override
// map tools.HandleCommand expects. "ask"/"ask_question"/"help_docs" get one
// extra entry: any rest token without an "=" is free-form question text,
// not a settings override, and is joined into args["_text"] — mirroring
// internal/server's askQuestionText special-case for the same tools.
func buildOverrides(canonicalName string, rest []string) (map[string]string, error) {
	var configArgs []string
	var words []string
	for _, arg := range rest {
		if strings.Contains(strings.TrimLeft(arg, "-"), "=") {
			configArgs = append(configArgs, arg)
		} else if canonicalName == "ask" || canonicalName == "ask_question" || canonicalName == "help_docs" {
			words = append(words, strings.TrimLeft(arg, "-"))
		}
	}

	overrides, err := parseConfigOverrides(configArgs)
	if err != nil {
		return nil, err
	}
	if question := strings.TrimSpace(strings.Join(words, " ")); question != "" {
		overrides["_text"] = question
	}
	return overrides, nil
}

// runTool is the shared body behind every subcommand except
// config/serve/health: resolve the PR (or issue) URL, build a GitHub
// provider, layer in that repo's org/repo-level settings, then dispatch to
// internal/tools. Grounded on orig/cli.rs's run()'s non-Config/Serve match
// arm.
func runTool(ctx context.Context, prURL, issueURL string, rest []string, canonicalName string) error {
	url := prURL
	if url == "" {
		url = issueURL
	}
	if url == "" {
		return fmt.Errorf("--pr-url is required for %s", canonicalName)
	}

	overrides, err := buildOverrides(canonicalName, rest)
	if err != nil {
		return err
	}

	base, baseOpts, err := bootstrapSettings(overrides)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, formatInfoMessage(fmt.Sprintf(
		"starting pr-agent: command=%s overrides=%d model=%s", canonicalName, len(overrides), base.Config.Model)))

	provider, err := github.New(ctx, url)
	if err != nil {
		return err
	}

	scoped, err := scopedSettingsForProvider(ctx, provider, base, baseOpts)
	if err != nil {
		return err
	}
	scopedCtx := config.WithSettings(ctx, scoped)

	return tools.HandleCommand(scopedCtx, canonicalName, provider, overrides)
}
