// Package yamlx loads YAML out of free-form LLM completions.
//
// Models asked to emit a single YAML document routinely wrap it in code
// fences, forget to indent block scalars, leave stray diff markers in place,
// or otherwise hand back something go-yaml refuses to parse on the first
// try. Load runs the response through a fixed cascade of progressively more
// aggressive repairs, trying a real parse after each one, and gives up only
// once every repair has failed.
package yamlx

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/jlucaso1/pr-agent-go/pkg/logger"
)

var log = logger.New("yamlx")

var yamlBlockRe = regexp.MustCompile("(?s)```yaml([\\s\\S]*?)```(?:\\s*$|\")")

var yamlKeyRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*\s*:`)

// defaultKeys lists keys whose values are commonly multiline and therefore
// need a block-scalar indicator the model forgot to emit.
var defaultKeys = []string{
	"relevant line:",
	"suggestion content:",
	"relevant file:",
	"existing code:",
	"improved code:",
	"label:",
	"why:",
	"suggestion_summary:",
}

// Load parses a YAML document out of an AI model response, applying
// progressive fixups if a direct parse fails. extraKeys are appended to the
// default multiline-prone key list used by the block-scalar fallback.
// firstKey/lastKey bound the key-boundary extraction fallback; pass "" for
// both to skip it. Returns nil only once every fallback has been exhausted.
func Load(responseText string, extraKeys []string, firstKey, lastKey string) interface{} {
	original := responseText

	cleaned := strings.Trim(responseText, "\n")
	cleaned = strings.TrimPrefix(cleaned, "```yaml")
	cleaned = strings.TrimPrefix(cleaned, "yaml")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if data, ok := tryParse(cleaned); ok {
		return data
	}

	log.Printf("initial YAML parse failed, trying fallbacks")

	keys := make([]string, 0, len(defaultKeys)+len(extraKeys))
	keys = append(keys, defaultKeys...)
	keys = append(keys, extraKeys...)

	return tryFixYAML(cleaned, keys, firstKey, lastKey, original)
}

// LoadSimple is a convenience wrapper with no extra keys or key boundaries.
func LoadSimple(responseText string) interface{} {
	return Load(responseText, nil, "", "")
}

// ValueAsInt64 extracts an int64 from a decoded YAML value, trying a numeric
// type first and falling back to parsing a string representation.
func ValueAsInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// ValueAsUint64 extracts a uint64 from a decoded YAML value, trying a
// numeric type first and falling back to parsing a string representation.
func ValueAsUint64(value interface{}) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case float64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func tryParse(text string) (interface{}, bool) {
	var data interface{}
	if err := yaml.Unmarshal([]byte(text), &data); err != nil {
		return nil, false
	}
	if data == nil {
		return nil, false
	}
	return data, true
}

func tryFixYAML(text string, keys []string, firstKey, lastKey, original string) interface{} {
	if data, ok := fallbackAddBlockScalar(text, keys); ok {
		log.Printf("YAML parsed after adding |- block scalars")
		return data
	}

	if data, ok := fallbackPipeToPipe2(text); ok {
		log.Printf("YAML parsed after replacing | with |2")
		return data
	}

	if data, ok := fallbackExtractYAMLBlock(text, original); ok {
		log.Printf("YAML parsed after extracting yaml code block")
		return data
	}

	if data, ok := fallbackRemoveCurlyBrackets(text); ok {
		log.Printf("YAML parsed after removing curly brackets")
		return data
	}

	if firstKey != "" && lastKey != "" {
		if data, ok := fallbackExtractByKeys(text, firstKey, lastKey); ok {
			log.Printf("YAML parsed after extracting by key boundaries")
			return data
		}
	}

	if data, ok := fallbackRemoveLeadingPlus(text); ok {
		log.Printf("YAML parsed after removing leading '+' characters")
		return data
	}

	if strings.Contains(text, "\t") {
		if data, ok := fallbackReplaceTabs(text); ok {
			log.Printf("YAML parsed after replacing tabs with spaces")
			return data
		}
	}

	if data, ok := fallbackFixCodeIndent(text); ok {
		log.Printf("YAML parsed after fixing code block indentation")
		return data
	}

	if data, ok := fallbackRemoveLeadingPipe(text); ok {
		log.Printf("YAML parsed after removing leading pipe chars")
		return data
	}

	log.Printf("all YAML fallbacks exhausted")
	return nil
}

// fallbackAddBlockScalar adds a "|\n        " block scalar indicator after
// any known key that lacks one, letting multiline values that weren't
// properly block-scalared parse correctly.
func fallbackAddBlockScalar(text string, keys []string) (interface{}, bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		for _, key := range keys {
			if strings.Contains(line, key) && !strings.Contains(line, "|") {
				lines[i] = strings.Replace(line, key, key+" |\n        ", 1)
				line = lines[i]
			}
		}
	}
	return tryParse(strings.Join(lines, "\n"))
}

// fallbackPipeToPipe2 replaces bare "|\n" block scalar indicators with
// "|2\n" so go-yaml doesn't have to auto-detect the content indent, then
// additionally indents lines that look like they hold a brace at indent 2.
func fallbackPipeToPipe2(text string) (interface{}, bool) {
	replaced := strings.ReplaceAll(text, "|\n", "|2\n")
	if data, ok := tryParse(replaced); ok {
		return data, true
	}

	lines := strings.Split(replaced, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		indent := len(line) - len(trimmed)
		if indent == 2 && !strings.Contains(line, "|2") && strings.Contains(line, "}") {
			lines[i] = "    " + trimmed
		}
	}
	return tryParse(strings.Join(lines, "\n"))
}

// fallbackExtractYAMLBlock pulls the contents of a ```yaml fenced code
// block out of the (possibly already-fixed-up) text, trying the original
// unmodified response as a second source if the first attempt fails.
func fallbackExtractYAMLBlock(text, original string) (interface{}, bool) {
	for _, source := range []string{text, original} {
		m := yamlBlockRe.FindStringSubmatch(source)
		if m == nil {
			continue
		}
		cleaned := strings.TrimSpace(m[1])
		if data, ok := tryParse(cleaned); ok {
			return data, true
		}
	}
	return nil, false
}

// fallbackRemoveCurlyBrackets strips a leading '{' and trailing '}' (models
// sometimes wrap the whole document as a flow mapping).
func fallbackRemoveCurlyBrackets(text string) (interface{}, bool) {
	stripped := strings.TrimSpace(text)
	stripped = strings.TrimPrefix(stripped, "{")
	stripped = strings.TrimSuffix(stripped, "}")
	stripped = strings.TrimSuffix(stripped, ":\n")
	stripped = strings.TrimSpace(stripped)
	return tryParse(stripped)
}

// fallbackExtractByKeys slices out the region of text between the first
// occurrence of firstKey and the last occurrence of lastKey, dropping any
// preamble/epilogue prose the model added around the document.
func fallbackExtractByKeys(text, firstKey, lastKey string) (interface{}, bool) {
	firstPattern := "\n" + firstKey + ":"
	indexStart := strings.Index(text, firstPattern)
	if indexStart == -1 {
		indexStart = strings.Index(text, firstKey+":")
		if indexStart == -1 {
			return nil, false
		}
	}

	lastPattern := lastKey + ":"
	indexLast := strings.LastIndex(text, lastPattern)
	if indexLast == -1 {
		return nil, false
	}

	indexEnd := len(text)
	if rel := strings.Index(text[indexLast:], "\n\n"); rel != -1 {
		indexEnd = indexLast + rel
	}

	slice := text[indexStart:indexEnd]
	cleaned := strings.TrimSpace(slice)
	cleaned = strings.TrimPrefix(cleaned, "```yaml")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	return tryParse(cleaned)
}

// fallbackRemoveLeadingPlus replaces a leading '+' on each line with a
// space, undoing stray diff markers the model sometimes copies in.
func fallbackRemoveLeadingPlus(text string) (interface{}, bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if rest, ok := strings.CutPrefix(line, "+"); ok {
			lines[i] = " " + rest
		}
	}
	return tryParse(strings.Join(lines, "\n"))
}

// fallbackReplaceTabs replaces tabs with 4 spaces; YAML forbids tabs for
// indentation.
func fallbackReplaceTabs(text string) (interface{}, bool) {
	return tryParse(strings.ReplaceAll(text, "\t", "    "))
}

// fallbackFixCodeIndent indents unindented block-scalar content.
//
// When the model returns "key: |\ncontent" without indenting the content,
// the block scalar has no body and parsing fails. This indents every line
// following such a key until a line at or below the key's own indent that
// looks like another YAML key or a list item, which closes the scalar.
func fallbackFixCodeIndent(text string) (interface{}, bool) {
	lines := strings.Split(text, "\n")
	result := make([]string, 0, len(lines))

	inBlockScalar := false
	keyIndent := 0

	for _, line := range lines {
		trimmedEnd := strings.TrimRight(line, " \t")
		trimmedStart := strings.TrimLeft(line, " ")
		lineIndent := len(line) - len(trimmedStart)

		if inBlockScalar {
			isYAMLKey := trimmedStart != "" &&
				lineIndent <= keyIndent &&
				(yamlKeyRe.MatchString(trimmedStart) || strings.HasPrefix(trimmedStart, "- "))

			if isYAMLKey {
				inBlockScalar = false
				result = append(result, line)
			} else {
				result = append(result, strings.Repeat(" ", keyIndent+2)+line)
			}
		} else {
			result = append(result, line)
		}

		if !inBlockScalar && (strings.HasSuffix(trimmedEnd, ": |") || strings.HasSuffix(trimmedEnd, ": |-")) {
			inBlockScalar = true
			keyIndent = lineIndent
		}
	}

	return tryParse(strings.Join(result, "\n"))
}

// fallbackRemoveLeadingPipe strips any leading '|' and newline characters
// from the very start of the text.
func fallbackRemoveLeadingPipe(text string) (interface{}, bool) {
	stripped := strings.TrimLeft(text, "|\n")
	return tryParse(stripped)
}
