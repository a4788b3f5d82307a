// Package config implements the layered Settings resolver: a six-layer
// TOML merge (embedded defaults, secrets, org-level, repo-level, CLI
// overrides, environment) with a forbidden-key guard and per-request
// dynamic scoping. Grounded on orig/config/{loader,types}.rs.
package config

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// BoolOrString models a TOML value that may be either a boolean or a
// string literal (e.g. pr_description.collapsible_file_list = "adaptive").
// Grounded on orig/config/types.rs's hand-written Serialize/Deserialize.
type BoolOrString struct {
	IsString bool
	B        bool
	S        string
}

// BoolOrStringFromBool builds a BoolOrString wrapping a bool.
func BoolOrStringFromBool(b bool) BoolOrString { return BoolOrString{B: b} }

// BoolOrStringFromString builds a BoolOrString wrapping a string.
func BoolOrStringFromString(s string) BoolOrString { return BoolOrString{IsString: true, S: s} }

// AsString renders the value's textual form ("true"/"false" or the string itself).
func (v BoolOrString) AsString() string {
	if v.IsString {
		return v.S
	}
	return strconv.FormatBool(v.B)
}

// IsTruthy reports whether the value should be treated as "on": a bool is
// itself; any non-empty string other than "false"/"off"/"no" is truthy.
func (v BoolOrString) IsTruthy() bool {
	if !v.IsString {
		return v.B
	}
	switch v.S {
	case "", "false", "off", "no":
		return false
	default:
		return true
	}
}

func (v BoolOrString) String() string { return v.AsString() }

// MarshalJSON serializes either form naturally: a bool as a JSON bool, a string as a JSON string.
func (v BoolOrString) MarshalJSON() ([]byte, error) {
	if v.IsString {
		return json.Marshal(v.S)
	}
	return json.Marshal(v.B)
}

// UnmarshalTOML implements BurntSushi/toml's Unmarshaler interface so a field
// in the source document may be written as either a bare bool or a quoted
// string, matching orig/config/types.rs's hand-rolled (de)serializer.
func (v *BoolOrString) UnmarshalTOML(data interface{}) error {
	switch val := data.(type) {
	case bool:
		*v = BoolOrString{B: val}
	case string:
		*v = BoolOrString{IsString: true, S: val}
	default:
		return fmt.Errorf("expected bool or string, got %T", data)
	}
	return nil
}

// PromptTemplate is one embedded system+user prompt pair for a tool.
type PromptTemplate struct {
	System string
	User   string
}

// CustomLabelEntry is one entry of config.custom_labels.
type CustomLabelEntry struct {
	Description string
}

// IgnoreConfig drives the Diff Filter's path exclusion (glob + regex).
type IgnoreConfig struct {
	Glob  []string
	Regex []string
}

// OpenAISecrets carries OpenAI-compatible backend credentials. Fields
// tagged `redact:"true"` mark secret values. No code reads the tag; the
// `config` command prints only model, temperature, git provider and max
// model tokens, none of which is a secret.
type OpenAISecrets struct {
	Key        string `toml:"key" redact:"true"`
	Org        string `toml:"org"`
	APIType    string `toml:"api_type"`
	APIVersion string `toml:"api_version"`
	APIBase    string `toml:"api_base" redact:"true"`
	DeploymentID string `toml:"deployment_id"`
}

// AnthropicSecrets carries Anthropic backend credentials.
type AnthropicSecrets struct {
	Key string `toml:"key" redact:"true"`
}

// GlobalConfig is the `[config]` section: model selection, timeouts, and
// cross-cutting toggles shared by every tool. Defaults taken from
// orig/config/types.rs GlobalConfig.
type GlobalConfig struct {
	Model                     string   `toml:"model"`
	FallbackModels            []string `toml:"fallback_models"`
	ModelWeak                 string   `toml:"model_weak"`
	ModelReasoning            string   `toml:"model_reasoning"`
	Temperature               float64  `toml:"temperature"`
	ReasoningEffort           string   `toml:"reasoning_effort"`
	CustomReasoningModel      bool     `toml:"custom_reasoning_model"`
	Seed                      int64    `toml:"seed"`
	AiTimeout                 int64    `toml:"ai_timeout"`
	MaxModelTokens            int64    `toml:"max_model_tokens"`
	CustomModelMaxTokens      int64    `toml:"custom_model_max_tokens"`
	GitProvider               string   `toml:"git_provider"`
	PublishOutput             bool     `toml:"publish_output"`
	PublishOutputProgress     bool     `toml:"publish_output_progress"`
	PublishOutputNoSuggestions bool    `toml:"publish_output_no_suggestions"`
	Verbosity                 int      `toml:"verbosity_level"`
	UseRepoSettingsFile       bool     `toml:"use_repo_settings_file"`
	UseGlobalSettingsFile     bool     `toml:"use_global_settings_file"`
	SecretProvider            string   `toml:"secret_provider"`
	AppName                   string   `toml:"app_name"`
	SkipKeys                  []string `toml:"skip_keys"`
	DisableAutoFeedback       bool     `toml:"disable_auto_feedback"`
	AddRepoMetadata           bool     `toml:"add_repo_metadata"`
	AddRepoMetadataFileList   []string `toml:"add_repo_metadata_file_list"`
	LargePrCommentsThreshold  int      `toml:"large_pr_comments_threshold"`
	PatchExtraLinesBefore     int      `toml:"patch_extra_lines_before"`
	PatchExtraLinesAfter      int      `toml:"patch_extra_lines_after"`
	CustomLabels              map[string]CustomLabelEntry `toml:"custom_labels"`
}

// PrReviewerConfig is the Review tool's `[pr_reviewer]` section.
type PrReviewerConfig struct {
	ExtraInstructions        string `toml:"extra_instructions"`
	NumMaxFindings           int    `toml:"num_max_findings"`
	RequireScoreReview       bool   `toml:"require_score_review"`
	RequireTestsReview       bool   `toml:"require_tests_review"`
	RequireSecurityReview    bool   `toml:"require_security_review"`
	RequireEstimateEffortReview bool `toml:"require_estimate_effort_to_review"`
	RequireEstimateContributionTimeCost bool `toml:"require_estimate_contribution_time_cost"`
	RequireCanBeSplitReview  bool   `toml:"require_can_be_split_review"`
	RequireTodoScan          bool   `toml:"require_todo_scan"`
	RequireTicketAnalysisReview bool `toml:"require_ticket_analysis_review"`
	FinalUpdateMessage       bool   `toml:"final_update_message"`
	PersistentComment        bool   `toml:"persistent_comment"`
	EnableReviewLabels       bool   `toml:"enable_review_labels_effort"`
	EnableSecurityLabel      bool   `toml:"enable_review_labels_security"`
	NumCodeSuggestions       int    `toml:"num_code_suggestions"`
}

// PrDescriptionConfig is the Describe tool's `[pr_description]` section.
type PrDescriptionConfig struct {
	ExtraInstructions       string       `toml:"extra_instructions"`
	PublishLabels           bool         `toml:"publish_labels"`
	AddOriginalUserDescription bool      `toml:"add_original_user_description"`
	GenerateAiTitle         bool         `toml:"generate_ai_title"`
	EnablePrType            bool         `toml:"enable_pr_type"`
	EnablePrDiagram         bool         `toml:"enable_pr_diagram"`
	PublishDescriptionAsComment bool     `toml:"publish_description_as_comment"`
	PublishDescriptionAsCommentPersistent bool `toml:"publish_description_as_comment_persistent"`
	CollapsibleFileList     BoolOrString `toml:"collapsible_file_list"`
	CollapsibleFileListThreshold int     `toml:"collapsible_file_list_threshold"`
	InlineFileSummary       BoolOrString `toml:"inline_file_summary"`
	IncludeGeneratedByHeader bool        `toml:"include_generated_by_header"`
	FinalUpdateMessage      bool         `toml:"final_update_message"`
	EnableSemanticFilesTypes bool        `toml:"enable_semantic_files_types"`
}

// PrCodeSuggestionsConfig is the Improve tool's `[pr_code_suggestions]` section.
type PrCodeSuggestionsConfig struct {
	CommitableCodeSuggestions bool  `toml:"commitable_code_suggestions"`
	DualPublishingScoreThreshold int `toml:"dual_publishing_score_threshold"`
	FocusOnlyOnProblems     bool    `toml:"focus_only_on_problems"`
	ExtraInstructions       string  `toml:"extra_instructions"`
	PersistentComment       bool    `toml:"persistent_comment"`
	SuggestionsScoreThreshold int   `toml:"suggestions_score_threshold"`
	NewScoreMechanismThHigh int     `toml:"new_score_mechanism_th_high"`
	NewScoreMechanismThMedium int   `toml:"new_score_mechanism_th_medium"`
	NumCodeSuggestionsPerChunk int  `toml:"num_code_suggestions_per_chunk"`
	MaxNumberOfCalls        int     `toml:"max_number_of_calls"`
	ParallelCalls           bool    `toml:"parallel_calls"`
	DemandCodeSuggestionsSelfReview bool `toml:"demand_code_suggestions_self_review"`
	CodeSuggestionsSelfReviewText string `toml:"code_suggestions_self_review_text"`
	ApprovePrOnSelfReview   bool    `toml:"approve_pr_on_self_review"`
	FoldSuggestionsOnSelfReview bool `toml:"fold_suggestions_on_self_review"`
}

// PrQuestionsConfig drives the Ask / AskLine tools' `[pr_questions]` section.
type PrQuestionsConfig struct {
	EnableHelpText         bool   `toml:"enable_help_text"`
	UseConversationHistory bool   `toml:"use_conversation_history"`
	ExtraInstructions      string `toml:"extra_instructions"`
}

// PrCustomPromptConfig drives a freeform custom-prompt secondary tool.
type PrCustomPromptConfig struct {
	Prompt string `toml:"prompt"`
}

// PrAddDocsConfig drives the supplemented add_docs secondary tool.
type PrAddDocsConfig struct {
	ExtraInstructions string `toml:"extra_instructions"`
	DocsStyle         string `toml:"docs_style"`
}

// PrUpdateChangelogConfig drives the supplemented update_changelog secondary tool.
type PrUpdateChangelogConfig struct {
	ExtraInstructions string `toml:"extra_instructions"`
	ChangelogFilePath string `toml:"changelog_file_path"`
	AddPrNumber       bool   `toml:"add_pr_number"`
}

// PrHelpConfig drives the help_docs secondary tool.
type PrHelpConfig struct {
	ExtraInstructions string `toml:"extra_instructions"`
}

// PrSimilarIssueConfig drives the similar_issue secondary tool.
type PrSimilarIssueConfig struct {
	MaxIssuesToScan int `toml:"max_issues_to_scan"`
}

// PrGenerateLabelsConfig drives the supplemented generate_labels secondary tool.
type PrGenerateLabelsConfig struct {
	ExtraInstructions string `toml:"extra_instructions"`
	MaxLabels         int    `toml:"max_labels"`
}

// PrAnswerConfig drives the supplemented answer secondary tool.
type PrAnswerConfig struct {
	ExtraInstructions string `toml:"extra_instructions"`
}

// ChecksConfig drives the auto-run label/command gating.
type ChecksConfig struct {
	EnableAutoChecksFeedback bool `toml:"enable_auto_checks_feedback"`
}

// GithubConfig is the `[github]` section of the reference Platform Provider.
type GithubConfig struct {
	DeploymentType    string `toml:"deployment_type"` // "user" | "app"
	BaseURL           string `toml:"base_url"`
	UserToken         string `toml:"user_token" redact:"true"`
	AppID             uint64 `toml:"app_id"`
	PrivateKey        string `toml:"private_key" redact:"true"`
	WebhookSecret     string `toml:"webhook_secret" redact:"true"`
	RatelimitRetries  int    `toml:"ratelimit_retries"`
	AppName           string `toml:"app_name"`
}

// GithubAppConfig is the `[github_app]` section controlling webhook dispatch.
type GithubAppConfig struct {
	HandlePrActions             []string `toml:"handle_pr_actions"`
	PrCommands                  []string `toml:"pr_commands"`
	PushTriggerEnabled          bool     `toml:"push_trigger_enabled"`
	PushTriggerPendingTasksBacklog bool  `toml:"push_trigger_pending_tasks_backlog"`
	PushTriggerPendingTasksTTL   int      `toml:"push_trigger_pending_tasks_ttl"`
	PushCommands                 []string `toml:"push_commands"`
	IgnorePrAuthors              []string `toml:"ignore_pr_authors"`
	IgnorePrTitleRegex            []string `toml:"ignore_pr_title"`
	DisableEyesReaction          bool     `toml:"disable_eyes_reaction"`
}

// BestPracticesConfig is the `[best_practices]` section.
type BestPracticesConfig struct {
	Content        string `toml:"content"`
	MaxLinesAllowed int    `toml:"max_lines_allowed"`
}

// Settings is the immutable snapshot produced by the Settings Resolver. It
// is shared by reference among readers; a scoped snapshot may be overlaid
// via context.Context for the dynamic extent of one webhook dispatch
// without disturbing other in-flight dispatches (see scope.go).
type Settings struct {
	Config            GlobalConfig              `toml:"config"`
	PrReviewer        PrReviewerConfig          `toml:"pr_reviewer"`
	PrDescription     PrDescriptionConfig       `toml:"pr_description"`
	PrCodeSuggestions PrCodeSuggestionsConfig   `toml:"pr_code_suggestions"`
	PrQuestions       PrQuestionsConfig         `toml:"pr_questions"`
	PrCustomPrompt    PrCustomPromptConfig      `toml:"pr_custom_prompt"`
	PrAddDocs         PrAddDocsConfig           `toml:"pr_add_docs"`
	PrUpdateChangelog PrUpdateChangelogConfig   `toml:"pr_update_changelog"`
	PrHelpDocs        PrHelpConfig              `toml:"pr_help_docs"`
	PrSimilarIssue    PrSimilarIssueConfig      `toml:"pr_similar_issue"`
	PrGenerateLabels  PrGenerateLabelsConfig    `toml:"pr_generate_labels"`
	PrAnswer          PrAnswerConfig            `toml:"pr_answer"`
	Checks            ChecksConfig              `toml:"checks"`
	Github            GithubConfig              `toml:"github"`
	GithubApp         GithubAppConfig           `toml:"github_app"`
	BestPractices     BestPracticesConfig       `toml:"best_practices"`
	Ignore            IgnoreConfig              `toml:"ignore"`
	OpenAI            OpenAISecrets             `toml:"openai"`
	Anthropic         AnthropicSecrets          `toml:"anthropic"`
	Prompts           map[string]PromptTemplate `toml:"-"`
}
