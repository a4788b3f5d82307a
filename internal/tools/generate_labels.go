package tools

import (
	"context"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/diffproc"
	"github.com/jlucaso1/pr-agent-go/internal/output"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
	"github.com/jlucaso1/pr-agent-go/internal/template"
	"github.com/jlucaso1/pr-agent-go/internal/yamlx"
	"github.com/jlucaso1/pr-agent-go/pkg/logger"
	"github.com/jlucaso1/pr-agent-go/pkg/sliceutil"
)

var generateLabelsLog = logger.New("tools:generate_labels")

// PRGenerateLabels asks the AI model to pick labels for a PR from its diff
// (and this repo's custom label set, if configured) and applies them via
// PublishLabels. A supplemented secondary tool; see SPEC_FULL.md §12.
type PRGenerateLabels struct {
	provider platform.GitProvider
	ai       aiChatFunc
}

// NewPRGenerateLabels builds a PRGenerateLabels against the production AI routing.
func NewPRGenerateLabels(p platform.GitProvider) *PRGenerateLabels {
	return &PRGenerateLabels{provider: p, ai: defaultAiChat}
}

// NewPRGenerateLabelsWithAI builds a PRGenerateLabels against a test double for ai.
func NewPRGenerateLabelsWithAI(p platform.GitProvider, ai aiChatFunc) *PRGenerateLabels {
	return &PRGenerateLabels{provider: p, ai: ai}
}

// Run executes the generate_labels pipeline, wrapped in the progress-comment lifecycle.
func (g *PRGenerateLabels) Run(ctx context.Context) error {
	return WithProgressComment(ctx, g.provider, "Generating labels...", func() error {
		return g.runInner(ctx)
	})
}

func (g *PRGenerateLabels) runInner(ctx context.Context) error {
	settings := config.GetSettings(ctx)
	model := settings.Config.Model

	meta, err := FetchPrMetadata(ctx, g.provider, settings)
	if err != nil {
		return err
	}

	files, err := g.provider.GetDiffFiles(ctx)
	if err != nil {
		return err
	}
	diffResult := diffproc.GetPRDiff(ctx, files, model, false)

	vars := BuildCommonVars(meta, diffResult.Diff)
	InsertCustomLabelsVars(vars, settings)
	maxLabels := settings.PrGenerateLabels.MaxLabels
	if maxLabels <= 0 {
		maxLabels = 5
	}
	vars["max_labels"] = maxLabels
	vars["extra_instructions"] = settings.PrGenerateLabels.ExtraInstructions

	prompt := settings.Prompts["generate_labels"]
	rendered, err := template.RenderPrompt(&prompt, vars)
	if err != nil {
		return err
	}

	generateLabelsLog.Printf("calling AI model %q for generate_labels", model)
	response, err := g.ai(ctx, model, settings.Config.FallbackModels, rendered.System, rendered.User, &settings.Config.Temperature)
	if err != nil {
		return err
	}

	labels := extractLabels(response.Content)
	if len(labels) > maxLabels {
		labels = labels[:maxLabels]
	}

	if !settings.Config.PublishOutput {
		generateLabelsLog.Printf("generated labels (not publishing): %v", labels)
		return nil
	}
	if len(labels) == 0 {
		generateLabelsLog.Printf("no labels generated")
		return nil
	}

	return g.provider.PublishLabels(ctx, labels)
}

func extractLabels(responseText string) []string {
	data := yamlx.Load(responseText, nil, "labels", "")
	m, _ := data.(map[string]interface{})
	var seq []interface{}
	if m != nil {
		seq, _ = m["labels"].([]interface{})
	}
	if seq == nil {
		seq, _ = data.([]interface{})
	}

	labels := make([]string, 0, len(seq))
	for _, raw := range seq {
		s := output.YamlValueToString(raw)
		if s != "" && !sliceutil.Contains(labels, s) {
			labels = append(labels, s)
		}
	}
	return labels
}
