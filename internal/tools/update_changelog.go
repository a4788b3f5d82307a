package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/diffproc"
	"github.com/jlucaso1/pr-agent-go/internal/output"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
	"github.com/jlucaso1/pr-agent-go/internal/template"
	"github.com/jlucaso1/pr-agent-go/internal/yamlx"
	"github.com/jlucaso1/pr-agent-go/pkg/logger"
)

var updateChangelogLog = logger.New("tools:update_changelog")

// PRUpdateChangelog writes one changelog entry for a PR: fetch the diff,
// ask the AI model for a one-line entry, and prepend it to the configured
// changelog file on the PR's branch. A supplemented secondary tool; see
// SPEC_FULL.md §12.
type PRUpdateChangelog struct {
	provider platform.GitProvider
	ai       aiChatFunc
}

// NewPRUpdateChangelog builds a PRUpdateChangelog against the production AI routing.
func NewPRUpdateChangelog(p platform.GitProvider) *PRUpdateChangelog {
	return &PRUpdateChangelog{provider: p, ai: defaultAiChat}
}

// NewPRUpdateChangelogWithAI builds a PRUpdateChangelog against a test double for ai.
func NewPRUpdateChangelogWithAI(p platform.GitProvider, ai aiChatFunc) *PRUpdateChangelog {
	return &PRUpdateChangelog{provider: p, ai: ai}
}

// Run executes the update_changelog pipeline, wrapped in the
// progress-comment lifecycle.
func (u *PRUpdateChangelog) Run(ctx context.Context) error {
	return WithProgressComment(ctx, u.provider, "Updating changelog...", func() error {
		return u.runInner(ctx)
	})
}

func (u *PRUpdateChangelog) runInner(ctx context.Context) error {
	settings := config.GetSettings(ctx)
	model := settings.Config.Model

	meta, err := FetchPrMetadata(ctx, u.provider, settings)
	if err != nil {
		return err
	}

	files, err := u.provider.GetDiffFiles(ctx)
	if err != nil {
		return err
	}
	diffResult := diffproc.GetPRDiff(ctx, files, model, false)

	vars := BuildCommonVars(meta, diffResult.Diff)
	vars["add_pr_number"] = settings.PrUpdateChangelog.AddPrNumber
	vars["pr_number"] = u.provider.GetPRID()
	vars["extra_instructions"] = settings.PrUpdateChangelog.ExtraInstructions

	prompt := settings.Prompts["update_changelog"]
	rendered, err := template.RenderPrompt(&prompt, vars)
	if err != nil {
		return err
	}

	updateChangelogLog.Printf("calling AI model %q for update_changelog", model)
	response, err := u.ai(ctx, model, settings.Config.FallbackModels, rendered.System, rendered.User, &settings.Config.Temperature)
	if err != nil {
		return err
	}

	entry := strings.TrimSpace(extractChangelogEntry(response.Content))
	if entry == "" {
		updateChangelogLog.Printf("warning: could not parse a changelog_entry from the AI response, skipping")
		return nil
	}

	if !settings.Config.PublishOutput {
		updateChangelogLog.Printf("changelog entry (not publishing): %s", entry)
		return nil
	}

	return u.applyChangelogEntry(ctx, settings, meta, entry)
}

// extractChangelogEntry pulls the "changelog_entry" field out of the AI's
// YAML response.
func extractChangelogEntry(responseText string) string {
	data := yamlx.LoadSimple(responseText)
	if m, ok := data.(map[string]interface{}); ok {
		if v, ok := m["changelog_entry"]; ok {
			return output.YamlValueToString(v)
		}
	}
	return strings.TrimSpace(responseText)
}

// applyChangelogEntry writes the new entry to the top of the changelog file
// via CreateOrUpdatePRFile, which prepends it ahead of whatever content (if
// any) is already there. The file not existing yet is not an error: the
// entry becomes the whole file.
func (u *PRUpdateChangelog) applyChangelogEntry(ctx context.Context, settings *config.Settings, meta *PrMetadata, entry string) error {
	path := settings.PrUpdateChangelog.ChangelogFilePath
	if path == "" {
		path = "CHANGELOG.md"
	}

	line := fmt.Sprintf("- %s", entry)
	contents := line + "\n"

	updateChangelogLog.Printf("writing changelog entry to %s on branch %s", path, meta.Branch)
	commitMessage := "docs: update changelog [pr-agent]"
	if err := u.provider.CreateOrUpdatePRFile(ctx, path, meta.Branch, []byte(contents), commitMessage); err != nil {
		return err
	}
	return nil
}
