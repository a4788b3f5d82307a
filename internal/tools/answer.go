package tools

import (
	"context"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/diffproc"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
	"github.com/jlucaso1/pr-agent-go/internal/template"
	"github.com/jlucaso1/pr-agent-go/pkg/logger"
)

var answerLog = logger.New("tools:answer")

// PRAnswer replies to the latest human comment on a PR's discussion thread,
// without requiring an explicit "/ask <question>" invocation: it looks up
// the thread's own most recent comment not authored by the bot account
// itself and answers that. A supplemented secondary tool; see
// SPEC_FULL.md §12.
type PRAnswer struct {
	provider platform.GitProvider
	ai       aiChatFunc
}

// NewPRAnswer builds a PRAnswer against the production AI routing.
func NewPRAnswer(p platform.GitProvider) *PRAnswer {
	return &PRAnswer{provider: p, ai: defaultAiChat}
}

// NewPRAnswerWithAI builds a PRAnswer against a test double for ai.
func NewPRAnswerWithAI(p platform.GitProvider, ai aiChatFunc) *PRAnswer {
	return &PRAnswer{provider: p, ai: ai}
}

// Run executes the answer pipeline, wrapped in the progress-comment lifecycle.
func (a *PRAnswer) Run(ctx context.Context) error {
	return WithProgressComment(ctx, a.provider, "Preparing answer...", func() error {
		return a.runInner(ctx)
	})
}

func (a *PRAnswer) runInner(ctx context.Context) error {
	settings := config.GetSettings(ctx)
	model := settings.Config.Model

	latest, err := a.latestHumanComment(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(latest) == "" {
		answerLog.Printf("no unanswered comment found, skipping /answer")
		return nil
	}

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
	vars["question"] = latest
	vars["extra_instructions"] = settings.PrAnswer.ExtraInstructions

	prompt := settings.Prompts["answer"]
	rendered, err := template.RenderPrompt(&prompt, vars)
	if err != nil {
		return err
	}

	answerLog.Printf("calling AI model %q for answer", model)
	response, err := a.ai(ctx, model, settings.Config.FallbackModels, rendered.System, rendered.User, &settings.Config.Temperature)
	if err != nil {
		return err
	}

	answer := sanitizeAnswer(extractAnswerField(response.Content))
	if answer == "" {
		answerLog.Printf("warning: could not parse an answer from the AI response")
		return nil
	}

	if !settings.Config.PublishOutput {
		answerLog.Printf("%s", answer)
		return nil
	}
	_, err = a.provider.PublishComment(ctx, answer, false)
	return err
}

// latestHumanComment returns the body of the most recent issue comment not
// authored by the bot's own account, or "" if there is none.
func (a *PRAnswer) latestHumanComment(ctx context.Context) (string, error) {
	botUser, _ := a.provider.GetUserID(ctx)

	comments, err := a.provider.GetIssueComments(ctx)
	if err != nil {
		return "", err
	}

	for i := len(comments) - 1; i >= 0; i-- {
		c := comments[i]
		if botUser != "" && strings.EqualFold(c.User, botUser) {
			continue
		}
		return strings.TrimSpace(c.Body), nil
	}
	return "", nil
}
