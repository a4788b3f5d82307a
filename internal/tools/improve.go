package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/diffproc"
	"github.com/jlucaso1/pr-agent-go/internal/output"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
	"github.com/jlucaso1/pr-agent-go/internal/template"
	"github.com/jlucaso1/pr-agent-go/internal/yamlx"
	"github.com/jlucaso1/pr-agent-go/pkg/logger"
)

var improveLog = logger.New("tools:improve")

// PRCodeSuggestions runs the Improve pipeline: split the diff into batches,
// ask the AI model to propose code suggestions for each batch, self-reflect
// on the suggestions to score them, then filter/sort/publish the result.
// Grounded on orig/tools/improve.rs's PRCodeSuggestions.
type PRCodeSuggestions struct {
	provider platform.GitProvider
	ai       aiChatFunc
}

// NewPRCodeSuggestions builds a PRCodeSuggestions against the production AI routing.
func NewPRCodeSuggestions(p platform.GitProvider) *PRCodeSuggestions {
	return &PRCodeSuggestions{provider: p, ai: defaultAiChat}
}

// NewPRCodeSuggestionsWithAI builds a PRCodeSuggestions against a test double for ai.
func NewPRCodeSuggestionsWithAI(p platform.GitProvider, ai aiChatFunc) *PRCodeSuggestions {
	return &PRCodeSuggestions{provider: p, ai: ai}
}

// Run executes the full improve pipeline, wrapped in the progress-comment
// lifecycle.
func (c *PRCodeSuggestions) Run(ctx context.Context) error {
	return WithProgressComment(ctx, c.provider, "Preparing code suggestions...", func() error {
		return c.runInner(ctx)
	})
}

func (c *PRCodeSuggestions) runInner(ctx context.Context) error {
	settings := config.GetSettings(ctx)
	model := settings.Config.Model

	meta, err := FetchPrMetadata(ctx, c.provider, settings)
	if err != nil {
		return err
	}

	files, err := c.provider.GetDiffFiles(ctx)
	if err != nil {
		return err
	}
	numFiles := len(files)
	improveLog.Printf("processing %d changed files for improve", numFiles)

	maxCalls := settings.PrCodeSuggestions.MaxNumberOfCalls

	batchesNoLines := diffproc.GetPRDiffMultiplePatches(ctx, files, model, false, maxCalls)
	batchesWithLines := diffproc.GetPRDiffMultiplePatches(ctx, files, model, true, maxCalls)

	if len(batchesNoLines) == 0 {
		improveLog.Printf("no diff content, skipping improve")
		return nil
	}

	numBatches := len(batchesNoLines)
	improveLog.Printf("processing PR in extended mode: %d batches, %d files", numBatches, numFiles)

	var allSuggestions []output.ParsedSuggestion
	if settings.PrCodeSuggestions.ParallelCalls && numBatches > 1 {
		allSuggestions = c.processBatchesParallel(ctx, meta, batchesNoLines, batchesWithLines)
	} else {
		allSuggestions = c.processBatchesSequential(ctx, meta, batchesNoLines, batchesWithLines)
	}

	scoreThreshold := settings.PrCodeSuggestions.SuggestionsScoreThreshold
	if scoreThreshold < 1 {
		scoreThreshold = 1
	}
	suggestions := make([]output.ParsedSuggestion, 0, len(allSuggestions))
	for _, s := range allSuggestions {
		if s.Score >= uint32(scoreThreshold) && s.Score > 0 {
			suggestions = append(suggestions, s)
		}
	}
	sortSuggestionsByScoreDesc(suggestions)

	if settings.Config.PublishOutput {
		return c.publishSuggestions(ctx, settings, suggestions)
	}
	c.printSuggestions(settings, suggestions)
	return nil
}

func sortSuggestionsByScoreDesc(suggestions []output.ParsedSuggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
}

func (c *PRCodeSuggestions) processBatchesSequential(ctx context.Context, meta *PrMetadata, batchesNoLines, batchesWithLines []diffproc.CompressedDiffResult) []output.ParsedSuggestion {
	var all []output.ParsedSuggestion
	n := len(batchesNoLines)
	if len(batchesWithLines) < n {
		n = len(batchesWithLines)
	}
	for i := 0; i < n; i++ {
		suggestions, err := c.processSingleBatch(ctx, meta, batchesNoLines[i].Patches, batchesWithLines[i].Patches, i)
		if err != nil {
			improveLog.Printf("batch %d failed: %v", i, err)
			continue
		}
		all = append(all, suggestions...)
	}
	return all
}

func (c *PRCodeSuggestions) processBatchesParallel(ctx context.Context, meta *PrMetadata, batchesNoLines, batchesWithLines []diffproc.CompressedDiffResult) []output.ParsedSuggestion {
	n := len(batchesNoLines)
	if len(batchesWithLines) < n {
		n = len(batchesWithLines)
	}

	results := make([][]output.ParsedSuggestion, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			suggestions, err := c.processSingleBatch(ctx, meta, batchesNoLines[i].Patches, batchesWithLines[i].Patches, i)
			if err != nil {
				improveLog.Printf("batch %d failed: %v", i, err)
				return
			}
			results[i] = suggestions
		}(i)
	}
	wg.Wait()

	var all []output.ParsedSuggestion
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

// processSingleBatch runs one diff batch through the suggest prompt then the
// self-reflect prompt, returning scored suggestions for that batch.
func (c *PRCodeSuggestions) processSingleBatch(ctx context.Context, meta *PrMetadata, diff, diffWithLines string, batchIndex int) ([]output.ParsedSuggestion, error) {
	settings := config.GetSettings(ctx)

	vars := c.buildVars(ctx, meta, diff)

	suggestPrompt := settings.Prompts["improve_suggest"]
	rendered, err := template.RenderPrompt(&suggestPrompt, vars)
	if err != nil {
		return nil, err
	}

	improveLog.Printf("calling AI model %q for improve batch %d", settings.Config.Model, batchIndex)
	response, err := c.ai(ctx, settings.Config.Model, settings.Config.FallbackModels, rendered.System, rendered.User, &settings.Config.Temperature)
	if err != nil {
		return nil, err
	}

	yamlData := yamlx.Load(response.Content, nil, "code_suggestions", "improved_code")
	var suggestions []output.ParsedSuggestion
	if yamlData != nil {
		suggestions = output.ParseSuggestions(yamlData)
	}
	if len(suggestions) == 0 {
		return suggestions, nil
	}

	feedback, err := c.selfReflectOnSuggestions(ctx, suggestions, diffWithLines)
	if err != nil {
		improveLog.Printf("reflect pass failed for batch %d: %v, using default scores", batchIndex, err)
		for i := range suggestions {
			if suggestions[i].Score == 0 {
				suggestions[i].Score = 7
			}
		}
		return suggestions, nil
	}

	applyReflectFeedback(suggestions, feedback)
	improveLog.Printf("applied reflect feedback to %d suggestions in batch %d", len(suggestions), batchIndex)
	return suggestions, nil
}

// reflectFeedback is the per-suggestion score returned by the self-reflect
// AI call.
type reflectFeedback struct {
	score uint32
}

func (c *PRCodeSuggestions) selfReflectOnSuggestions(ctx context.Context, suggestions []output.ParsedSuggestion, diffWithLines string) ([]reflectFeedback, error) {
	settings := config.GetSettings(ctx)

	var suggestionStr strings.Builder
	for i, s := range suggestions {
		fmt.Fprintf(&suggestionStr, "suggestion %d: {'relevant_file': '%s', 'suggestion_content': '%s', 'existing_code': '%s', 'improved_code': '%s', 'one_sentence_summary': '%s', 'label': '%s'}\n",
			i+1,
			s.RelevantFile,
			strings.ReplaceAll(s.SuggestionContent, "'", "\\'"),
			strings.ReplaceAll(s.ExistingCode, "'", "\\'"),
			strings.ReplaceAll(s.ImprovedCode, "'", "\\'"),
			strings.ReplaceAll(s.OneSentenceSummary, "'", "\\'"),
			s.Label,
		)
	}

	vars := map[string]interface{}{
		"diff":        diffWithLines,
		"suggestions": suggestionStr.String(),
	}

	reflectPrompt := settings.Prompts["improve_reflect"]
	rendered, err := template.RenderPrompt(&reflectPrompt, vars)
	if err != nil {
		return nil, err
	}

	improveLog.Printf("calling AI model %q for improve reflect pass", settings.Config.Model)
	response, err := c.ai(ctx, settings.Config.Model, settings.Config.FallbackModels, rendered.System, rendered.User, &settings.Config.Temperature)
	if err != nil {
		return nil, err
	}

	reflectYAML := yamlx.Load(response.Content, nil, "code_suggestions", "suggestion_score")
	if reflectYAML == nil {
		improveLog.Printf("could not parse reflect YAML response")
		return nil, nil
	}
	return parseReflectResponse(reflectYAML), nil
}

func parseReflectResponse(data interface{}) []reflectFeedback {
	m, _ := data.(map[string]interface{})
	var seq []interface{}
	if m != nil {
		if v, ok := m["code_suggestions"]; ok {
			seq, _ = v.([]interface{})
		}
	}
	if seq == nil {
		seq, _ = data.([]interface{})
	}

	feedback := make([]reflectFeedback, 0, len(seq))
	for _, raw := range seq {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		score := uint32(7)
		if v, ok := yamlx.ValueAsUint64(item["score"]); ok {
			score = uint32(v)
		} else if v, ok := yamlx.ValueAsUint64(item["suggestion_score"]); ok {
			score = uint32(v)
		}
		feedback = append(feedback, reflectFeedback{score: score})
	}
	return feedback
}

// applyReflectFeedback merges reflect-pass scores into parsed suggestions by
// position. A suggestion with no corresponding feedback item keeps its
// original score.
func applyReflectFeedback(suggestions []output.ParsedSuggestion, feedback []reflectFeedback) {
	if len(feedback) != len(suggestions) {
		improveLog.Printf("reflect feedback count mismatch: %d suggestions, %d feedback items, applying partial", len(suggestions), len(feedback))
	}

	for i := range suggestions {
		if i < len(feedback) {
			suggestions[i].Score = feedback[i].score
		}
	}
}

func (c *PRCodeSuggestions) buildVars(ctx context.Context, meta *PrMetadata, diff string) map[string]interface{} {
	settings := config.GetSettings(ctx)
	vars := BuildCommonVars(meta, diff)

	vars["diff_no_line_numbers"] = diff
	vars["extra_instructions"] = settings.PrCodeSuggestions.ExtraInstructions
	vars["num_code_suggestions_per_chunk"] = settings.PrCodeSuggestions.NumCodeSuggestionsPerChunk
	vars["focus_only_on_problems"] = settings.PrCodeSuggestions.FocusOnlyOnProblems
	vars["is_ai_metadata"] = false
	vars["duplicate_prompt_examples"] = false

	return vars
}

// publishSuggestions publishes suggestions to the PR in one of three modes:
//
//  1. Dual publishing (dual_publishing_score_threshold > -1): publish
//     high-scoring suggestions as inline committable comments AND all
//     suggestions as a summary table.
//  2. Inline-only (commitable_code_suggestions = true): publish as inline
//     GitHub code suggestions; fall back to table on failure.
//  3. Table-only (default): publish as a persistent comment table.
func (c *PRCodeSuggestions) publishSuggestions(ctx context.Context, settings *config.Settings, suggestions []output.ParsedSuggestion) error {
	if len(suggestions) == 0 {
		improveLog.Printf("no code suggestions to publish")
		return nil
	}

	improveLog.Printf("publishing %d code suggestions", len(suggestions))

	threshold := settings.PrCodeSuggestions.DualPublishingScoreThreshold

	if threshold > -1 {
		thresholdU := uint32(threshold)
		if threshold < 0 {
			thresholdU = 0
		}
		var highScoring []output.ParsedSuggestion
		for _, s := range suggestions {
			if s.Score >= thresholdU {
				highScoring = append(highScoring, s)
			}
		}

		if len(highScoring) > 0 {
			codeSuggestions := output.SuggestionsToCodeSuggestions(highScoring)
			if len(codeSuggestions) > 0 {
				if _, err := c.provider.PublishCodeSuggestions(ctx, codeSuggestions); err != nil {
					improveLog.Printf("failed to publish inline suggestions in dual mode: %v", err)
				} else {
					improveLog.Printf("published %d inline suggestions (dual mode, threshold=%d)", len(codeSuggestions), thresholdU)
				}
			}
		}

		return c.publishTable(ctx, settings, suggestions)
	}

	if settings.PrCodeSuggestions.CommitableCodeSuggestions {
		codeSuggestions := output.SuggestionsToCodeSuggestions(suggestions)
		if len(codeSuggestions) == 0 {
			improveLog.Printf("all %d suggestions filtered out (missing line numbers), falling back to table mode", len(suggestions))
			return c.publishTable(ctx, settings, suggestions)
		}
		if _, err := c.provider.PublishCodeSuggestions(ctx, codeSuggestions); err != nil {
			improveLog.Printf("failed to publish inline suggestions, falling back to table mode: %v", err)
			return c.publishTable(ctx, settings, suggestions)
		}
		return nil
	}

	return c.publishTable(ctx, settings, suggestions)
}

func (c *PRCodeSuggestions) publishTable(ctx context.Context, settings *config.Settings, suggestions []output.ParsedSuggestion) error {
	table := output.FormatSuggestionsTable(
		suggestions,
		uint32(settings.PrCodeSuggestions.NewScoreMechanismThHigh),
		uint32(settings.PrCodeSuggestions.NewScoreMechanismThMedium),
	)

	if settings.PrCodeSuggestions.DemandCodeSuggestionsSelfReview {
		b := strings.Builder{}
		b.WriteString(table)
		output.AppendSelfReviewCheckbox(
			&b,
			settings.PrCodeSuggestions.CodeSuggestionsSelfReviewText,
			settings.PrCodeSuggestions.ApprovePrOnSelfReview,
			settings.PrCodeSuggestions.FoldSuggestionsOnSelfReview,
		)
		table = b.String()
	}

	return PublishAsComment(ctx, c.provider, table, "improve", settings.PrCodeSuggestions.PersistentComment, false)
}

func (c *PRCodeSuggestions) printSuggestions(settings *config.Settings, suggestions []output.ParsedSuggestion) {
	if len(suggestions) == 0 {
		improveLog.Printf("No code suggestions found.")
		return
	}
	table := output.FormatSuggestionsTable(
		suggestions,
		uint32(settings.PrCodeSuggestions.NewScoreMechanismThHigh),
		uint32(settings.PrCodeSuggestions.NewScoreMechanismThMedium),
	)
	improveLog.Printf("%s", table)
}
