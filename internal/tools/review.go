package tools

import (
	"context"
	"strconv"
	"time"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/diffproc"
	"github.com/jlucaso1/pr-agent-go/internal/llm"
	"github.com/jlucaso1/pr-agent-go/internal/output"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
	"github.com/jlucaso1/pr-agent-go/internal/template"
	"github.com/jlucaso1/pr-agent-go/internal/yamlx"
	"github.com/jlucaso1/pr-agent-go/pkg/logger"
)

var reviewLog = logger.New("tools:review")

// aiChatFunc is the seam PRReviewer/PRDescription/PRCodeSuggestions call
// through to request a completion. The production default routes through
// llm.ChatCompletionWithFallback; tests substitute a canned responder.
type aiChatFunc func(ctx context.Context, model string, fallbackModels []string, system, user string, temperature *float64) (*llm.ChatResponse, error)

func defaultAiChat(ctx context.Context, model string, fallbackModels []string, system, user string, temperature *float64) (*llm.ChatResponse, error) {
	return llm.ChatCompletionWithFallback(ctx, model, fallbackModels, system, user, temperature, nil)
}

// PRReviewer runs the review pipeline: fetch diff, call the AI model, parse
// its YAML response, format it as markdown, and publish it to the PR.
// Grounded on orig/tools/review.rs's PRReviewer.
type PRReviewer struct {
	provider platform.GitProvider
	ai       aiChatFunc
}

// NewPRReviewer builds a PRReviewer against the production AI routing.
func NewPRReviewer(p platform.GitProvider) *PRReviewer {
	return &PRReviewer{provider: p, ai: defaultAiChat}
}

// NewPRReviewerWithAI builds a PRReviewer against a test double for ai.
func NewPRReviewerWithAI(p platform.GitProvider, ai aiChatFunc) *PRReviewer {
	return &PRReviewer{provider: p, ai: ai}
}

// Run executes the full review pipeline, wrapped in the progress-comment
// lifecycle.
func (r *PRReviewer) Run(ctx context.Context) error {
	return WithProgressComment(ctx, r.provider, "Preparing review...", func() error {
		return r.runInner(ctx)
	})
}

func (r *PRReviewer) runInner(ctx context.Context) error {
	settings := config.GetSettings(ctx)
	model := settings.Config.Model

	meta, err := FetchPrMetadata(ctx, r.provider, settings)
	if err != nil {
		return err
	}

	files, err := r.provider.GetDiffFiles(ctx)
	if err != nil {
		return err
	}
	numFiles := len(files)
	reviewLog.Printf("processing %d changed files for review", numFiles)

	diffResult := diffproc.GetPRDiff(ctx, files, model, true)
	reviewLog.Printf("diff processed: tokens=%d files_included=%d remaining=%d",
		diffResult.TokenCount, len(diffResult.FilesInDiff), len(diffResult.RemainingFiles))

	vars := r.buildVars(ctx, meta, diffResult.Diff, numFiles)

	reviewPrompt := settings.Prompts["review"]
	rendered, err := template.RenderPrompt(&reviewPrompt, vars)
	if err != nil {
		return err
	}

	reviewLog.Printf("calling AI model %q for review", model)
	response, err := r.ai(ctx, model, settings.Config.FallbackModels, rendered.System, rendered.User, &settings.Config.Temperature)
	if err != nil {
		return err
	}

	yamlData := yamlx.Load(response.Content, []string{
		"estimated_effort_to_review_[1-5]:",
		"security_concerns:",
		"key_issues_to_review:",
		"relevant_file:",
		"issue_header:",
		"issue_content:",
		"ticket_compliance_check:",
	}, "review", "security_concerns")

	if settings.Config.PublishOutput {
		return r.publishReview(ctx, settings, yamlData, response.Content)
	}
	r.printReview(yamlData, response.Content)
	return nil
}

func (r *PRReviewer) buildVars(ctx context.Context, meta *PrMetadata, diff string, numFiles int) map[string]interface{} {
	settings := config.GetSettings(ctx)
	vars := BuildCommonVars(meta, diff)

	vars["num_pr_files"] = numFiles
	vars["source_branch"] = meta.Branch
	targetBranch, _ := r.provider.GetPRBaseBranch(ctx)
	vars["target_branch"] = targetBranch
	vars["num_max_findings"] = settings.PrReviewer.NumMaxFindings
	vars["require_score"] = settings.PrReviewer.RequireScoreReview
	vars["require_tests"] = settings.PrReviewer.RequireTestsReview
	vars["require_estimate_effort_to_review"] = settings.PrReviewer.RequireEstimateEffortReview
	vars["require_estimate_contribution_time_cost"] = settings.PrReviewer.RequireEstimateContributionTimeCost
	vars["require_can_be_split_review"] = settings.PrReviewer.RequireCanBeSplitReview
	vars["require_security_review"] = settings.PrReviewer.RequireSecurityReview
	vars["require_todo_scan"] = settings.PrReviewer.RequireTodoScan
	vars["require_ticket_analysis_review"] = settings.PrReviewer.RequireTicketAnalysisReview
	vars["question_str"] = ""
	vars["answer_str"] = ""
	vars["extra_instructions"] = settings.PrReviewer.ExtraInstructions
	InsertCustomLabelsVars(vars, settings)
	vars["is_ai_metadata"] = false
	vars["related_tickets"] = []string{}
	vars["duplicate_prompt_examples"] = false
	vars["date"] = time.Now().UTC().Format("2006-01-02")

	return vars
}

func (r *PRReviewer) publishReview(ctx context.Context, settings *config.Settings, yamlData interface{}, rawResponse string) error {
	gfmSupported := r.provider.IsSupported("gfm_markdown")

	provider := r.provider
	linkGen := output.LinkGenerator(func(file string, start int32, end *int32) string {
		return provider.GetLineLink(file, start, end)
	})

	var markdown string
	if yamlData != nil {
		markdown = output.FormatReviewMarkdown(yamlData, gfmSupported, linkGen)
	} else {
		reviewLog.Printf("warning: could not parse YAML from AI response, publishing raw")
		markdown = "## PR Reviewer Guide 🔍\n\n" + rawResponse + "\n"
	}

	if err := PublishAsComment(ctx, r.provider, markdown, "review", settings.PrReviewer.PersistentComment, settings.PrReviewer.FinalUpdateMessage); err != nil {
		return err
	}

	if yamlData != nil {
		return r.publishReviewLabels(ctx, yamlData, settings)
	}
	return nil
}

func (r *PRReviewer) publishReviewLabels(ctx context.Context, data interface{}, settings *config.Settings) error {
	review := data
	if m, ok := data.(map[string]interface{}); ok {
		if sub, ok := m["review"]; ok {
			review = sub
		}
	}
	reviewMap, _ := review.(map[string]interface{})

	var labels []string

	if settings.PrReviewer.EnableReviewLabels {
		var effortVal interface{}
		var found bool
		if reviewMap != nil {
			if v, ok := reviewMap["estimated_effort_to_review_[1-5]"]; ok {
				effortVal, found = v, true
			} else if v, ok := reviewMap["estimated_effort_to_review"]; ok {
				effortVal, found = v, true
			}
		}
		if found {
			effort := output.ExtractEffortScore(effortVal)
			labels = append(labels, "Review effort [1-5]: "+strconv.Itoa(int(effort)))
		}
	}

	if settings.PrReviewer.EnableSecurityLabel && reviewMap != nil {
		if secVal, ok := reviewMap["security_concerns"]; ok {
			text := output.YamlValueToString(secVal)
			if !output.IsValueNo(text) {
				labels = append(labels, "Security concern")
			}
		}
	}

	if len(labels) > 0 {
		reviewLog.Printf("publishing review labels: %v", labels)
		return r.provider.PublishLabels(ctx, labels)
	}
	return nil
}

func (r *PRReviewer) printReview(yamlData interface{}, rawResponse string) {
	if yamlData != nil {
		formatted := output.FormatReviewMarkdown(yamlData, true, nil)
		reviewLog.Printf("%s", formatted)
	} else {
		reviewLog.Printf("warning: could not parse YAML from AI response, printing raw:\n%s", rawResponse)
	}
}
