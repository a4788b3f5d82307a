package diffproc

import (
	"regexp"
	"strings"

	"github.com/jlucaso1/pr-agent-go/pkg/logger"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
)

var log = logger.New("diffproc:filter")

// binaryExtensions lists common binary file extensions excluded from diff
// processing outright, regardless of the configured ignore patterns.
// Ported from orig/processing/filter.rs's BINARY_EXTENSIONS.
var binaryExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "bmp": {}, "ico": {}, "svg": {}, "webp": {},
	"tiff": {}, "tif": {}, "mp3": {}, "mp4": {}, "wav": {}, "avi": {}, "mov": {}, "mkv": {},
	"flac": {}, "ogg": {}, "webm": {}, "zip": {}, "tar": {}, "gz": {}, "bz2": {}, "xz": {},
	"7z": {}, "rar": {}, "pdf": {}, "doc": {}, "docx": {}, "xls": {}, "xlsx": {}, "ppt": {},
	"pptx": {}, "exe": {}, "dll": {}, "so": {}, "dylib": {}, "bin": {}, "obj": {}, "o": {},
	"a": {}, "lib": {}, "woff": {}, "woff2": {}, "ttf": {}, "eot": {}, "otf": {}, "pyc": {},
	"pyo": {}, "class": {}, "jar": {}, "sqlite": {}, "db": {}, "dat": {},
}

// IsBinary reports whether filename's extension is a known binary type.
func IsBinary(filename string) bool {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 || idx == len(filename)-1 {
		return false
	}
	ext := strings.ToLower(filename[idx+1:])
	_, ok := binaryExtensions[ext]
	return ok
}

// BuildIgnorePatterns compiles the active settings' ignore.regex and
// ignore.glob entries into a single list of *regexp.Regexp. A `**/` glob
// prefix additionally compiles its suffix alone, so a repo-root file also
// matches the "anywhere" pattern. Invalid regex patterns are logged and
// skipped; a glob whose translation fails to compile is skipped silently.
func BuildIgnorePatterns(settings *config.Settings) []*regexp.Regexp {
	var patterns []*regexp.Regexp

	for _, pattern := range settings.Ignore.Regex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			log.Printf("invalid ignore regex pattern %q: %v", pattern, err)
			continue
		}
		patterns = append(patterns, re)
	}

	for _, glob := range settings.Ignore.Glob {
		if re, err := regexp.Compile(globToRegex(glob)); err == nil {
			patterns = append(patterns, re)
		}
		if rootGlob, ok := strings.CutPrefix(glob, "**/"); ok {
			if re, err := regexp.Compile(globToRegex(rootGlob)); err == nil {
				patterns = append(patterns, re)
			}
		}
	}

	return patterns
}

// globToRegex translates a glob pattern supporting `*`, `**`, `?`, and
// character classes into an equivalent anchored regex string. Ported from
// orig/processing/filter.rs's glob_to_regex.
func globToRegex(glob string) string {
	var regex strings.Builder
	regex.WriteByte('^')

	runes := []rune(glob)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				i++
				if i+1 < len(runes) && runes[i+1] == '/' {
					i++
					regex.WriteString("(?:.*/)?")
				} else {
					regex.WriteString(".*")
				}
			} else {
				regex.WriteString("[^/]*")
			}
		case '?':
			regex.WriteString("[^/]")
		case '.':
			regex.WriteString(`\.`)
		case '[':
			regex.WriteByte('[')
			i++
			for ; i < len(runes); i++ {
				regex.WriteRune(runes[i])
				if runes[i] == ']' {
					break
				}
			}
		default:
			regex.WriteRune(c)
		}
	}

	regex.WriteByte('$')
	return regex.String()
}

// FilterFiles removes binary files and files matching an active ignore
// pattern from files, in place.
func FilterFiles(files []*platform.FilePatchInfo, settings *config.Settings) []*platform.FilePatchInfo {
	patterns := BuildIgnorePatterns(settings)

	kept := files[:0]
	for _, file := range files {
		if IsBinary(file.Filename) {
			log.Printf("filtered: binary extension, file=%s", file.Filename)
			continue
		}

		matched := false
		for _, p := range patterns {
			if p.MatchString(file.Filename) {
				log.Printf("filtered: ignore pattern, file=%s pattern=%s", file.Filename, p.String())
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		kept = append(kept, file)
	}
	return kept
}
