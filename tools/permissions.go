package tools

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Allowed reports whether a tool name is covered by any of the granted
// permission patterns. Patterns use glob syntax over the slash-namespaced
// tool name, with ** matching across namespace segments:
//
//   - "ehr/search_person" matches exactly that tool
//   - "ehr/*" matches every tool directly under the ehr namespace
//   - "ehr/**" matches the whole ehr namespace recursively
//   - "**" matches everything
//
// Invalid patterns are skipped rather than failing the check, so one bad
// grant cannot lock out a session.
func Allowed(patterns []string, name string) bool {
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// FilterAllowed returns the subset of descriptors covered by the granted
// patterns. An empty pattern list grants nothing.
func FilterAllowed(descriptors []Descriptor, patterns []string) []Descriptor {
	if len(patterns) == 0 {
		return nil
	}

	var out []Descriptor
	for _, d := range descriptors {
		if Allowed(patterns, d.Name) {
			out = append(out, d)
		}
	}
	return out
}
