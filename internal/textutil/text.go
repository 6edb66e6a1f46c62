// Package textutil holds the Unicode-aware text helpers shared by the
// extractor, the language detector and the classifier.
package textutil

import (
	"strings"
	"unicode"
)

// Fold lowercases s for matching. Dotted capital İ folds to plain i so
// that Turkish and English spellings compare equal.
func Fold(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 'İ' {
			return 'i'
		}
		return unicode.ToLower(r)
	}, s)
}

// CollapseSpace trims s and replaces every run of whitespace with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Words splits folded text on anything that is not a letter or digit.
// "Ar-Ge" yields ["ar", "ge"].
func Words(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// IsNumeric reports whether every rune of s is a digit.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Phrase is a pre-split search term. Matching a phrase against a word
// sequence is a whole-word, case-insensitive match.
type Phrase []string

// NewPhrase splits term the same way Words splits text.
func NewPhrase(term string) Phrase {
	return Phrase(Words(term))
}

// Count returns the number of (possibly overlapping) occurrences of p in words.
func (p Phrase) Count(words []string) int {
	if len(p) == 0 || len(words) < len(p) {
		return 0
	}
	n := 0
	for i := 0; i+len(p) <= len(words); i++ {
		match := true
		for j, w := range p {
			if words[i+j] != w {
				match = false
				break
			}
		}
		if match {
			n++
		}
	}
	return n
}

// WordSet indexes single words for O(1) membership checks.
type WordSet map[string]struct{}

// NewWordSet builds a set from folded words.
func NewWordSet(words ...string) WordSet {
	s := make(WordSet, len(words))
	for _, w := range words {
		s[Fold(w)] = struct{}{}
	}
	return s
}

// Has reports whether w is in the set.
func (s WordSet) Has(w string) bool {
	_, ok := s[w]
	return ok
}
