package tools

import (
	"context"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/diffproc"
	"github.com/jlucaso1/pr-agent-go/internal/output"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
	"github.com/jlucaso1/pr-agent-go/internal/template"
	"github.com/jlucaso1/pr-agent-go/internal/yamlx"
	"github.com/jlucaso1/pr-agent-go/pkg/logger"
)

var describeLog = logger.New("tools:describe")

// PRDescription runs the describe pipeline: fetch diff, call the AI model,
// parse its YAML response, format it as a PR title/body/labels, and publish
// it by either editing the PR description or posting a comment. Grounded on
// orig/tools/describe.rs's PRDescription.
type PRDescription struct {
	provider platform.GitProvider
	ai       aiChatFunc
}

// NewPRDescription builds a PRDescription against the production AI routing.
func NewPRDescription(p platform.GitProvider) *PRDescription {
	return &PRDescription{provider: p, ai: defaultAiChat}
}

// NewPRDescriptionWithAI builds a PRDescription against a test double for ai.
func NewPRDescriptionWithAI(p platform.GitProvider, ai aiChatFunc) *PRDescription {
	return &PRDescription{provider: p, ai: ai}
}

// Run executes the full describe pipeline, wrapped in the progress-comment
// lifecycle.
func (d *PRDescription) Run(ctx context.Context) error {
	return WithProgressComment(ctx, d.provider, "Preparing PR description...", func() error {
		return d.runInner(ctx)
	})
}

func (d *PRDescription) runInner(ctx context.Context) error {
	settings := config.GetSettings(ctx)
	model := settings.Config.Model

	meta, err := FetchPrMetadata(ctx, d.provider, settings)
	if err != nil {
		return err
	}

	files, err := d.provider.GetDiffFiles(ctx)
	if err != nil {
		return err
	}
	numFiles := len(files)
	describeLog.Printf("processing %d changed files for describe", numFiles)

	diffResult := diffproc.GetPRDiff(ctx, files, model, true)

	fileStats := make(map[string]output.FileStats, len(files))
	for _, f := range files {
		link := d.provider.GetLineLink(f.Filename, -1, nil)
		key := strings.ToLower(strings.TrimPrefix(f.Filename, "/"))
		fileStats[key] = output.FileStats{
			NumPlusLines:  f.NumPlusLines,
			NumMinusLines: f.NumMinusLines,
			Link:          link,
		}
	}

	vars := d.buildVars(ctx, meta, diffResult.Diff, numFiles)

	describePrompt := settings.Prompts["describe"]
	rendered, err := template.RenderPrompt(&describePrompt, vars)
	if err != nil {
		return err
	}

	describeLog.Printf("calling AI model %q for describe", model)
	response, err := d.ai(ctx, model, settings.Config.FallbackModels, rendered.System, rendered.User, &settings.Config.Temperature)
	if err != nil {
		return err
	}

	yamlData := yamlx.Load(response.Content, nil, "type", "pr_files")

	userDescription := stripPrAgentContent(meta.Description)

	if settings.Config.PublishOutput {
		return d.publishDescription(ctx, settings, yamlData, meta.Title, userDescription, fileStats)
	}
	d.printDescription(yamlData, response.Content)
	return nil
}

func (d *PRDescription) buildVars(ctx context.Context, meta *PrMetadata, diff string, numFiles int) map[string]interface{} {
	settings := config.GetSettings(ctx)
	vars := BuildCommonVars(meta, diff)

	vars["extra_instructions"] = settings.PrDescription.ExtraInstructions
	vars["original_title"] = meta.Title
	vars["original_description"] = stripPrAgentContent(meta.Description)
	InsertCustomLabelsVars(vars, settings)
	vars["enable_semantic_files_types"] = settings.PrDescription.EnableSemanticFilesTypes
	vars["related_tickets"] = []string{}
	vars["include_file_summary_changes"] = numFiles <= 20
	vars["duplicate_prompt_examples"] = false
	vars["enable_pr_diagram"] = settings.PrDescription.EnablePrDiagram

	return vars
}

func (d *PRDescription) publishDescription(ctx context.Context, settings *config.Settings, yamlData interface{}, originalTitle, originalBody string, fileStats map[string]output.FileStats) error {
	if yamlData == nil {
		describeLog.Printf("warning: could not parse YAML from AI response, skipping publish")
		return nil
	}

	result := output.FormatDescribeOutput(yamlData, originalTitle, originalBody, &settings.PrDescription, fileStats)

	if settings.PrDescription.PublishDescriptionAsComment {
		if settings.PrDescription.PublishDescriptionAsCommentPersistent {
			marker := "<!-- pr-agent:describe -->"
			if err := platform.PublishPersistentComment(ctx, d.provider, result.Body, marker, "", "describe", settings.PrDescription.FinalUpdateMessage); err != nil {
				return err
			}
		} else {
			if _, err := d.provider.PublishComment(ctx, result.Body, false); err != nil {
				return err
			}
		}
	} else {
		if err := d.provider.PublishDescription(ctx, result.Title, result.Body); err != nil {
			return err
		}
	}

	if settings.PrDescription.PublishLabels && len(result.Labels) > 0 {
		return d.provider.PublishLabels(ctx, result.Labels)
	}
	return nil
}

func (d *PRDescription) printDescription(yamlData interface{}, rawResponse string) {
	if yamlData != nil {
		describeLog.Printf("%v", yamlData)
	} else {
		describeLog.Printf("warning: could not parse YAML from AI response, printing raw:\n%s", rawResponse)
	}
}

// prAgentHeaders lists known section headers emitted by pr-agent's legacy
// (pre-HTML-marker) describe output, used to recognize previously-generated
// bodies that lack the "<!-- pr-agent:describe -->" marker.
var prAgentHeaders = []string{
	"### **user description**",
	"### **pr type**",
	"### **pr description**",
	"### **pr labels**",
	"### **type**",
	"### **description**",
	"### **labels**",
}

func isGeneratedByPrAgent(body string) bool {
	lower := strings.ToLower(strings.TrimLeft(body, " \t\n\r"))
	if strings.HasPrefix(lower, "<!-- pr-agent:") {
		return true
	}
	for _, header := range prAgentHeaders {
		if strings.HasPrefix(lower, header) {
			return true
		}
	}
	return false
}

// stripPrAgentContent strips any previous pr-agent generated content from a
// PR body, returning only the original user-written description. Grounded
// on orig/tools/describe.rs's strip_pr_agent_content.
func stripPrAgentContent(body string) string {
	if pos := strings.Index(body, "<!-- pr-agent:"); pos != -1 {
		before := strings.TrimSpace(body[:pos])
		before = strings.TrimSuffix(before, "---")
		return strings.TrimSpace(before)
	}

	if !isGeneratedByPrAgent(body) {
		return body
	}

	lower := strings.ToLower(body)
	const userDescHeader = "### **user description**"

	start := strings.Index(lower, userDescHeader)
	if start == -1 {
		return ""
	}
	contentStart := start + len(userDescHeader)

	endPos := len(body)
	for _, header := range prAgentHeaders {
		if header == userDescHeader {
			continue
		}
		if rel := strings.Index(lower[contentStart:], header); rel != -1 {
			if contentStart+rel < endPos {
				endPos = contentStart + rel
			}
		}
	}

	userContent := strings.TrimSpace(body[contentStart:endPos])
	userContent = strings.TrimSuffix(userContent, "___")
	return strings.TrimSpace(userContent)
}
