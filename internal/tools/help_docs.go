package tools

import (
	"context"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/output"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
	"github.com/jlucaso1/pr-agent-go/internal/template"
	"github.com/jlucaso1/pr-agent-go/internal/yamlx"
	"github.com/jlucaso1/pr-agent-go/pkg/logger"
)

var helpDocsLog = logger.New("tools:help_docs")

// PRHelpDocs answers a question about how to use the project from its own
// documentation content, reusing the best-practices/repo-metadata files
// already fetched for every tool as the "docs_content" grounding instead of
// inventing a new provider method for it. A supplemented secondary tool;
// see SPEC_FULL.md §12.
type PRHelpDocs struct {
	provider platform.GitProvider
	ai       aiChatFunc
}

// NewPRHelpDocs builds a PRHelpDocs against the production AI routing.
func NewPRHelpDocs(p platform.GitProvider) *PRHelpDocs {
	return &PRHelpDocs{provider: p, ai: defaultAiChat}
}

// NewPRHelpDocsWithAI builds a PRHelpDocs against a test double for ai.
func NewPRHelpDocsWithAI(p platform.GitProvider, ai aiChatFunc) *PRHelpDocs {
	return &PRHelpDocs{provider: p, ai: ai}
}

// Run executes the help_docs pipeline for question, wrapped in the
// progress-comment lifecycle. A blank question is a silent no-op.
func (h *PRHelpDocs) Run(ctx context.Context, question string) error {
	if strings.TrimSpace(question) == "" {
		helpDocsLog.Printf("empty question, skipping /help_docs")
		return nil
	}
	return WithProgressComment(ctx, h.provider, "Looking through the docs...", func() error {
		return h.runInner(ctx, question)
	})
}

func (h *PRHelpDocs) runInner(ctx context.Context, question string) error {
	settings := config.GetSettings(ctx)
	model := settings.Config.Model

	bestPractices, _ := h.provider.GetBestPractices(ctx)
	repoMetadata, _ := h.provider.GetRepoMetadata(ctx)
	docsContent := strings.TrimSpace(bestPractices + "\n\n" + repoMetadata)

	vars := map[string]interface{}{
		"question":           strings.TrimSpace(question),
		"docs_content":       docsContent,
		"extra_instructions": settings.PrHelpDocs.ExtraInstructions,
	}

	prompt := settings.Prompts["help_docs"]
	rendered, err := template.RenderPrompt(&prompt, vars)
	if err != nil {
		return err
	}

	helpDocsLog.Printf("calling AI model %q for help_docs", model)
	response, err := h.ai(ctx, model, settings.Config.FallbackModels, rendered.System, rendered.User, &settings.Config.Temperature)
	if err != nil {
		return err
	}

	answer := strings.TrimSpace(extractHelpAnswer(response.Content))
	if answer == "" {
		helpDocsLog.Printf("warning: could not parse an answer from the AI response")
		return nil
	}
	body := "### **Help**\n" + strings.TrimSpace(question) + "\n\n### **Answer:**\n" + answer + "\n\n"

	if settings.Config.PublishOutput {
		_, err := h.provider.PublishComment(ctx, body, false)
		return err
	}
	helpDocsLog.Printf("%s", body)
	return nil
}

func extractHelpAnswer(responseText string) string {
	data := yamlx.LoadSimple(responseText)
	if m, ok := data.(map[string]interface{}); ok {
		if v, ok := m["answer"]; ok {
			return output.YamlValueToString(v)
		}
	}
	return strings.TrimSpace(responseText)
}
