package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/diffproc"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
	"github.com/jlucaso1/pr-agent-go/internal/template"
	"github.com/jlucaso1/pr-agent-go/internal/yamlx"
	"github.com/jlucaso1/pr-agent-go/pkg/logger"
)

var addDocsLog = logger.New("tools:add_docs")

// docSuggestion is one entry of add_docs's docs_suggestions YAML response.
type docSuggestion struct {
	RelevantFile       string
	Language           string
	ExistingCode       string
	DocumentedCode     string
	RelevantLinesStart int32
	RelevantLinesEnd   int32
}

// PRAddDocs runs the add_docs pipeline: ask the AI model to propose
// docstrings/doc comments for the functions and types touched by the diff,
// then publish the proposals as a single summary comment (documentation
// proposals are advisory, not code review findings, so they don't go
// through PublishCodeSuggestions the way improve's suggestions do). A
// supplemented secondary tool; see SPEC_FULL.md §12.
type PRAddDocs struct {
	provider platform.GitProvider
	ai       aiChatFunc
}

// NewPRAddDocs builds a PRAddDocs against the production AI routing.
func NewPRAddDocs(p platform.GitProvider) *PRAddDocs {
	return &PRAddDocs{provider: p, ai: defaultAiChat}
}

// NewPRAddDocsWithAI builds a PRAddDocs against a test double for ai.
func NewPRAddDocsWithAI(p platform.GitProvider, ai aiChatFunc) *PRAddDocs {
	return &PRAddDocs{provider: p, ai: ai}
}

// Run executes the add_docs pipeline, wrapped in the progress-comment lifecycle.
func (a *PRAddDocs) Run(ctx context.Context) error {
	return WithProgressComment(ctx, a.provider, "Preparing documentation suggestions...", func() error {
		return a.runInner(ctx)
	})
}

func (a *PRAddDocs) runInner(ctx context.Context) error {
	settings := config.GetSettings(ctx)
	model := settings.Config.Model

	meta, err := FetchPrMetadata(ctx, a.provider, settings)
	if err != nil {
		return err
	}

	files, err := a.provider.GetDiffFiles(ctx)
	if err != nil {
		return err
	}
	diffResult := diffproc.GetPRDiff(ctx, files, model, true)

	vars := BuildCommonVars(meta, diffResult.Diff)
	vars["docs_style"] = settings.PrAddDocs.DocsStyle
	vars["extra_instructions"] = settings.PrAddDocs.ExtraInstructions

	prompt := settings.Prompts["add_docs"]
	rendered, err := template.RenderPrompt(&prompt, vars)
	if err != nil {
		return err
	}

	addDocsLog.Printf("calling AI model %q for add_docs", model)
	response, err := a.ai(ctx, model, settings.Config.FallbackModels, rendered.System, rendered.User, &settings.Config.Temperature)
	if err != nil {
		return err
	}

	yamlData := yamlx.Load(response.Content, nil, "docs_suggestions", "documented_code")
	suggestions := parseDocSuggestions(yamlData)

	if !settings.Config.PublishOutput {
		addDocsLog.Printf("%d documentation suggestions (not publishing)", len(suggestions))
		return nil
	}
	if len(suggestions) == 0 {
		addDocsLog.Printf("no documentation suggestions to publish")
		return nil
	}

	body := formatDocSuggestions(suggestions)
	return PublishAsComment(ctx, a.provider, body, "add_docs", true, false)
}

func parseDocSuggestions(data interface{}) []docSuggestion {
	m, _ := data.(map[string]interface{})
	var seq []interface{}
	if m != nil {
		seq, _ = m["docs_suggestions"].([]interface{})
	}
	if seq == nil {
		seq, _ = data.([]interface{})
	}

	suggestions := make([]docSuggestion, 0, len(seq))
	for _, raw := range seq {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		startI, _ := yamlx.ValueAsInt64(item["relevant_lines_start"])
		endI, _ := yamlx.ValueAsInt64(item["relevant_lines_end"])
		suggestions = append(suggestions, docSuggestion{
			RelevantFile:       stringField(item, "relevant_file"),
			Language:           stringField(item, "language"),
			ExistingCode:       stringField(item, "existing_code"),
			DocumentedCode:     stringField(item, "documented_code"),
			RelevantLinesStart: int32(startI),
			RelevantLinesEnd:   int32(endI),
		})
	}
	return suggestions
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// formatDocSuggestions renders add_docs's proposals as a single markdown
// comment: one collapsible section per suggestion, each showing the
// existing code and the proposed documented version as a fenced diff-style
// block. Grounded on output.FormatSuggestionsTable's per-item structure,
// simplified since add_docs has no score/severity to sort by.
func formatDocSuggestions(suggestions []docSuggestion) string {
	var b strings.Builder
	b.WriteString("### **Documentation suggestions**\n\n")

	for _, s := range suggestions {
		lineRange := fmt.Sprintf("%d-%d", s.RelevantLinesStart, s.RelevantLinesEnd)
		if s.RelevantLinesEnd <= 0 || s.RelevantLinesEnd == s.RelevantLinesStart {
			lineRange = fmt.Sprintf("%d", s.RelevantLinesStart)
		}
		fmt.Fprintf(&b, "<details><summary>%s (lines %s)</summary>\n\n", s.RelevantFile, lineRange)
		fmt.Fprintf(&b, "```%s\n%s\n```\n\n", s.Language, s.DocumentedCode)
		b.WriteString("</details>\n\n")
	}

	return b.String()
}
