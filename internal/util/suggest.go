package util

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// Suggest returns up to n candidates that fuzzily match input, best first.
// An empty input returns every candidate. Matching ignores case.
func Suggest(input string, candidates []string, n int) []string {
	if input == "" {
		return candidates
	}
	lowered := make([]string, len(candidates))
	for i, c := range candidates {
		lowered[i] = strings.ToLower(c)
	}
	matches := fuzzy.Find(strings.ToLower(input), lowered)
	if len(matches) == 0 {
		return nil
	}
	if n <= 0 || n > len(matches) {
		n = len(matches)
	}
	out := make([]string, n)
	for i := range out {
		out[i] = candidates[matches[i].Index]
	}
	return out
}

// Contains reports whether name is one of candidates.
func Contains(candidates []string, name string) bool {
	for _, c := range candidates {
		if c == name {
			return true
		}
	}
	return false
}
