package knowledge

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// stopWords are dropped before token overlap is computed. The list is
// tuned for short customer questions, not general prose.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "at": {}, "be": {}, "can": {},
	"do": {}, "does": {}, "for": {}, "have": {}, "how": {}, "i": {}, "in": {},
	"is": {}, "it": {}, "me": {}, "my": {}, "of": {}, "on": {}, "or": {},
	"please": {}, "the": {}, "there": {}, "to": {}, "we": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "who": {}, "will": {}, "with": {},
	"you": {}, "your": {}, "yours": {},
}

// Normalize canonicalizes a question: NFKC, case-folded, punctuation
// replaced by spaces and whitespace collapsed. Normalize is idempotent.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	// A Caser keeps internal state, so each call gets its own.
	s = cases.Fold().String(s)

	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSuffix(b.String(), " ")
}

// Tokens returns the significant words of an already normalized question.
// If every word is a stop word, all words are returned so that questions
// like "who are you" still have something to compare.
func Tokens(normalized string) []string {
	words := strings.Fields(normalized)
	var out []string
	for _, w := range words {
		if _, stop := stopWords[w]; !stop {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		return words
	}
	return out
}

// sortedKey joins the sorted words of a normalized question, so word order
// does not count against fuzzy similarity.
func sortedKey(normalized string) string {
	words := strings.Fields(normalized)
	sort.Strings(words)
	return strings.Join(words, " ")
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
