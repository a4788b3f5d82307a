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

var askLog = logger.New("tools:ask")

// PRAsk answers a free-form question about a PR's code changes: fetch the
// diff, render the question prompt, call the AI model, and publish the
// answer as a regular comment. Grounded on orig/tools/ask.rs's PRAsk.
type PRAsk struct {
	provider platform.GitProvider
	ai       aiChatFunc
}

// NewPRAsk builds a PRAsk against the production AI routing.
func NewPRAsk(p platform.GitProvider) *PRAsk {
	return &PRAsk{provider: p, ai: defaultAiChat}
}

// NewPRAskWithAI builds a PRAsk against a test double for ai.
func NewPRAskWithAI(p platform.GitProvider, ai aiChatFunc) *PRAsk {
	return &PRAsk{provider: p, ai: ai}
}

// Run executes the ask pipeline for question, wrapped in the
// progress-comment lifecycle. A blank question is a silent no-op.
func (a *PRAsk) Run(ctx context.Context, question string) error {
	if strings.TrimSpace(question) == "" {
		askLog.Printf("empty question, skipping /ask")
		return nil
	}
	return WithProgressComment(ctx, a.provider, "Preparing answer...", func() error {
		return a.runInner(ctx, question)
	})
}

func (a *PRAsk) runInner(ctx context.Context, question string) error {
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

	// Image detection is kept to match the image-stripping behavior of
	// formatAskOutput below; this port's AI chat seam has no multimodal
	// image slot (see DESIGN.md), so the URL itself is not forwarded to
	// the model the way orig/tools/ask.rs's chat_completion does.
	_ = extractImageURL(question)

	vars := BuildCommonVars(meta, diffResult.Diff)
	vars["question"] = strings.TrimSpace(question)
	vars["extra_instructions"] = settings.PrQuestions.ExtraInstructions

	askPrompt := settings.Prompts["ask"]
	rendered, err := template.RenderPrompt(&askPrompt, vars)
	if err != nil {
		return err
	}

	askLog.Printf("calling AI model %q for ask", model)
	response, err := a.ai(ctx, model, settings.Config.FallbackModels, rendered.System, rendered.User, &settings.Config.Temperature)
	if err != nil {
		return err
	}

	answer := sanitizeAnswer(extractAnswerField(response.Content))
	body := formatAskOutput(question, answer)

	if settings.Config.PublishOutput {
		_, err := a.provider.PublishComment(ctx, body, false)
		return err
	}
	askLog.Printf("%s", body)
	return nil
}

// extractAnswerField pulls the "answer" field out of the AI's YAML
// response, per this tool's embedded prompt schema; falls back to the raw
// response text if it does not parse as the expected shape.
func extractAnswerField(responseText string) string {
	data := yamlx.LoadSimple(responseText)
	if m, ok := data.(map[string]interface{}); ok {
		if v, ok := m["answer"]; ok {
			return output.YamlValueToString(v)
		}
	}
	return strings.TrimSpace(responseText)
}

// extractImageURL detects an image reference in a free-form question,
// matching two shapes: markdown `![image](url)` syntax (with balanced
// parenthesis scanning), or a direct https://...png/.jpg/.jpeg URL.
// Grounded on orig/tools/ask.rs's extract_image_url.
func extractImageURL(question string) string {
	const marker = "![image]"
	if idx := strings.Index(question, marker); idx >= 0 {
		after := strings.TrimSpace(question[idx+len(marker):])
		if strings.HasPrefix(after, "(") {
			inner := after[1:]
			depth := 1
			end := len(inner)
			for i, ch := range inner {
				switch ch {
				case '(':
					depth++
				case ')':
					depth--
					if depth == 0 {
						end = i
					}
				}
				if depth == 0 {
					break
				}
			}
			url := strings.TrimSpace(inner[:end])
			if url != "" {
				return url
			}
		}
		return ""
	}

	if strings.Contains(question, "https://") {
		_, after, found := strings.Cut(question, "https://")
		if !found {
			return ""
		}
		token := after
		if fields := strings.Fields(after); len(fields) > 0 {
			token = fields[0]
		}
		token = "https://" + token
		token = strings.TrimRight(token, ".,;")

		pathPart := token
		if i := strings.IndexAny(token, "?#"); i >= 0 {
			pathPart = token[:i]
		}
		lower := strings.ToLower(pathPart)
		if strings.HasSuffix(lower, ".png") || strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") {
			return token
		}
	}
	return ""
}

// sanitizeAnswer prevents an AI answer from accidentally triggering a
// GitHub slash-command quick action: GitHub interprets a line starting
// with '/' as one, so a leading '/' on any line gets a space inserted
// before it. Grounded on orig/tools/ask.rs's sanitize_answer.
func sanitizeAnswer(answer string) string {
	sanitized := strings.ReplaceAll(strings.TrimSpace(answer), "\n/", "\n /")
	if strings.HasPrefix(sanitized, "/") {
		sanitized = " " + sanitized
	}
	return sanitized
}

// formatAskOutput renders the final ask comment body, stripping any
// "> ![image]..." quoted-image line from the displayed question. Grounded
// on orig/tools/ask.rs's format_ask_output.
func formatAskOutput(question, answer string) string {
	lines := strings.Split(question, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if !strings.HasPrefix(strings.TrimSpace(line), "> ![image]") {
			kept = append(kept, line)
		}
	}
	displayQuestion := strings.TrimSpace(strings.Join(kept, "\n"))

	return "### **Ask**\n" + displayQuestion + "\n\n### **Answer:**\n" + answer + "\n\n"
}
