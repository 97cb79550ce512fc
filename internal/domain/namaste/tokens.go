package namaste

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const maxDefinitionTokens = 8

var (
	subTokenSplit = regexp.MustCompile(`[-\s_]+`)
	nonWord       = regexp.MustCompile(`[^\w\s]`)
)

var definitionStopwords = map[string]bool{
	"this":          true,
	"that":          true,
	"with":          true,
	"from":          true,
	"such":          true,
	"could":         true,
	"would":         true,
	"characterized": true,
	"condition":     true,
}

// normalize applies NFC so precomposed and combining diacritics compare equal.
func normalize(s string) string {
	return norm.NFC.String(s)
}

// lowerFold is the case folding used for both tokens and queries.
func lowerFold(s string) string {
	return strings.ToLower(normalize(s))
}

// buildSearchTokens returns the deduplicated lowercase tokens a term is
// matched against, in first-seen order.
func buildSearchTokens(fields []string, definition string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(tok string) {
		if tok == "" || seen[tok] {
			return
		}
		seen[tok] = true
		out = append(out, tok)
	}

	for _, f := range fields {
		if f == "" {
			continue
		}
		add(lowerFold(f))
		for _, part := range subTokenSplit.Split(f, -1) {
			if len([]rune(part)) > 2 {
				add(lowerFold(part))
			}
		}
	}

	if definition != "" {
		text := nonWord.ReplaceAllString(strings.ToLower(definition), " ")
		n := 0
		for _, w := range strings.Fields(text) {
			if n == maxDefinitionTokens {
				break
			}
			if len(w) <= 3 || definitionStopwords[w] {
				continue
			}
			add(w)
			n++
		}
	}
	return out
}

var keywordPattern = regexp.MustCompile(`\b\w{4,}\b`)

// DefinitionKeywords returns up to n definition words of four or more word
// characters, in order of appearance.
func (t *Term) DefinitionKeywords(n int) []string {
	if t.Definition == "" || n <= 0 {
		return nil
	}
	return keywordPattern.FindAllString(t.Definition, n)
}
