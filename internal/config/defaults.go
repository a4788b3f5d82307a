package config

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed embedded/default.toml
var defaultTOML string

//go:embed embedded/prompts/*.txt
var promptFiles embed.FS

// toolNames lists the prompt-pair stems under embedded/prompts, one per tool.
var toolNames = []string{
	"review",
	"describe",
	"improve_suggest",
	"improve_reflect",
	"ask",
	"ask_line",
	"add_docs",
	"update_changelog",
	"help_docs",
	"similar_issue",
	"generate_labels",
	"answer",
}

// DefaultTOML returns the embedded baseline configuration, the first and
// lowest-priority layer of the Settings Resolver's six-layer merge.
func DefaultTOML() string { return defaultTOML }

// loadEmbeddedPrompts reads the embedded system/user prompt pairs into a
// map keyed by tool name. Grounded on orig/config/loader.rs's PROMPT_TEMPLATES
// static map, reimplemented here via go:embed since Go has no build-time
// include_str! equivalent for a whole directory glob other than embed.FS.
func loadEmbeddedPrompts() (map[string]PromptTemplate, error) {
	prompts := make(map[string]PromptTemplate, len(toolNames))
	for _, name := range toolNames {
		sys, err := promptFiles.ReadFile(fmt.Sprintf("embedded/prompts/%s.system.txt", name))
		if err != nil {
			return nil, fmt.Errorf("reading embedded system prompt for %q: %w", name, err)
		}
		usr, err := promptFiles.ReadFile(fmt.Sprintf("embedded/prompts/%s.user.txt", name))
		if err != nil {
			return nil, fmt.Errorf("reading embedded user prompt for %q: %w", name, err)
		}
		prompts[name] = PromptTemplate{
			System: strings.TrimRight(string(sys), "\n"),
			User:   strings.TrimRight(string(usr), "\n"),
		}
	}
	return prompts, nil
}

// DefaultSettings decodes the embedded default.toml into a fresh Settings
// value with its Prompts map populated, before any secrets/org/repo/CLI/env
// layer has been applied.
func DefaultSettings() (*Settings, error) {
	var s Settings
	if _, err := toml.Decode(defaultTOML, &s); err != nil {
		return nil, fmt.Errorf("decoding embedded defaults: %w", err)
	}
	prompts, err := loadEmbeddedPrompts()
	if err != nil {
		return nil, err
	}
	s.Prompts = prompts
	return &s, nil
}

// sortedToolNames returns the known tool names in a stable, sorted order.
// It is unexported and used only by this package's tests.
func sortedToolNames() []string {
	out := make([]string, len(toolNames))
	copy(out, toolNames)
	sort.Strings(out)
	return out
}

// renderDefaultTOMLBuffer decodes the embedded default document into a
// Settings value and re-encodes it through BurntSushi/toml. It is unexported
// and currently has no caller.
func renderDefaultTOMLBuffer() (*bytes.Buffer, error) {
	var s Settings
	if _, err := toml.Decode(defaultTOML, &s); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return &buf, nil
}
