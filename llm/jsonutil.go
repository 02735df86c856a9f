package llm

import (
	"regexp"
	"strings"
)

// Pre-compiled patterns for JSON extraction from generation responses.
var (
	// fencedBlockPattern matches a fenced code block, optionally tagged as
	// json: ```json { ... } ```
	fencedBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")
	// fencedArrayPattern matches JSON arrays inside fenced code blocks.
	fencedArrayPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\[.*\\])\\s*```")
	// rawArrayPattern matches any JSON array (greedy fallback).
	rawArrayPattern = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// FencedBlock returns the content of the first fenced code block in the
// response, if any.
func FencedBlock(content string) (string, bool) {
	if matches := fencedBlockPattern.FindStringSubmatch(content); len(matches) > 1 {
		return matches[1], true
	}
	return "", false
}

// ExtractBalanced returns the first balanced JSON object in the text: it
// scans for the first '{', tracks nesting depth through braces (ignoring
// braces inside string literals), and returns the substring when depth
// returns to zero. This deliberately stops at the first complete object
// instead of greedily matching to the last '}' in the text, so trailing
// prose after the object cannot corrupt the extraction.
func ExtractBalanced(content string) (string, bool) {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return content[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// ExtractJSON extracts a JSON object from a generation response: fenced
// block first, then balanced extraction over the whole text. The result is
// cleaned of common LLM artifacts. Returns "" when no candidate is found.
func ExtractJSON(content string) string {
	if block, ok := FencedBlock(content); ok {
		if obj, ok := ExtractBalanced(block); ok {
			return CleanArtifacts(obj)
		}
	}
	if obj, ok := ExtractBalanced(content); ok {
		return CleanArtifacts(obj)
	}
	return ""
}

// ExtractJSONArray extracts a JSON array from a generation response.
func ExtractJSONArray(content string) string {
	if matches := fencedArrayPattern.FindStringSubmatch(content); len(matches) > 1 {
		return CleanArtifacts(matches[1])
	}
	if match := rawArrayPattern.FindString(content); match != "" {
		return CleanArtifacts(match)
	}
	return ""
}

// CleanArtifacts removes JavaScript-style line comments and trailing commas,
// which models commonly emit inside otherwise-valid JSON.
func CleanArtifacts(raw string) string {
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, stripLineComment(line))
	}
	result := strings.Join(cleaned, "\n")
	return trailingCommaPattern.ReplaceAllString(result, "$1")
}

// stripLineComment removes a // comment from a JSON line, respecting string
// values so URLs like "http://example.com" survive.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
