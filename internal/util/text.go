package util

import (
	"strings"
)

// WordFilter rejects user text containing any configured forbidden word.
type WordFilter struct {
	words []string
}

// NewWordFilter builds a filter; matching is case-insensitive.
func NewWordFilter(words []string) *WordFilter {
	f := &WordFilter{}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			f.words = append(f.words, w)
		}
	}
	return f
}

// Blocked reports whether text contains a forbidden word
func (f *WordFilter) Blocked(text string) bool {
	if f == nil || len(f.words) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, w := range f.words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
