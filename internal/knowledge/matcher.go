package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// ErrEmptyQuestion is returned when a question normalizes to nothing.
var ErrEmptyQuestion = errors.New("question is empty")

// Default strategy thresholds.
const (
	DefaultOverlapThreshold = 0.6
	DefaultFuzzyThreshold   = 0.8
)

// Source provides the entries a Matcher searches, newest first.
type Source interface {
	List(ctx context.Context) ([]Entry, error)
}

// Query is a question prepared once for every strategy.
type Query struct {
	Text       string
	Normalized string
	Tokens     []string
}

// NewQuery prepares text for matching.
func NewQuery(text string) Query {
	n := Normalize(text)
	return Query{Text: text, Normalized: n, Tokens: Tokens(n)}
}

// Strategy looks for a match among entries ordered newest first. On a tie
// a strategy keeps the earliest candidate, which is the most recent entry.
type Strategy struct {
	Name  string
	Match func(q Query, entries []Entry) (Match, bool)
}

// Matcher tries each strategy in order and returns the first match.
type Matcher struct {
	source     Source
	strategies []Strategy
}

// NewMatcher creates a Matcher running exact, overlap and fuzzy matching
// with the given thresholds. Non-positive thresholds fall back to defaults.
func NewMatcher(source Source, overlapThreshold, fuzzyThreshold float64) *Matcher {
	if overlapThreshold <= 0 {
		overlapThreshold = DefaultOverlapThreshold
	}
	if fuzzyThreshold <= 0 {
		fuzzyThreshold = DefaultFuzzyThreshold
	}
	return &Matcher{
		source: source,
		strategies: []Strategy{
			{Name: StrategyExact, Match: ExactMatch},
			{Name: StrategyOverlap, Match: OverlapMatch(overlapThreshold)},
			{Name: StrategyFuzzy, Match: FuzzyMatch(fuzzyThreshold)},
		},
	}
}

// Strategies returns the strategy chain in priority order.
func (m *Matcher) Strategies() []Strategy {
	return append([]Strategy(nil), m.strategies...)
}

// Match searches the knowledge base for question. The boolean is false
// when no strategy matched. Matching never writes to any store.
func (m *Matcher) Match(ctx context.Context, question string) (Match, bool, error) {
	q := NewQuery(question)
	if q.Normalized == "" {
		return Match{}, false, ErrEmptyQuestion
	}

	entries, err := m.source.List(ctx)
	if err != nil {
		return Match{}, false, fmt.Errorf("loading knowledge: %w", err)
	}
	if len(entries) == 0 {
		return Match{}, false, nil
	}

	for _, s := range m.strategies {
		if match, ok := s.Match(q, entries); ok {
			match.Strategy = s.Name
			match.Answer = match.Entry.Answer
			return match, true, nil
		}
	}
	return Match{}, false, nil
}

// ExactMatch matches entries whose normalized question equals the query's.
func ExactMatch(q Query, entries []Entry) (Match, bool) {
	for _, e := range entries {
		if entryKey(e) == q.Normalized {
			return Match{Entry: e, Confidence: 1}, true
		}
	}
	return Match{}, false
}

// OverlapMatch matches on the share of significant tokens the query and an
// entry have in common, relative to the shorter of the two token sets.
func OverlapMatch(threshold float64) func(Query, []Entry) (Match, bool) {
	return func(q Query, entries []Entry) (Match, bool) {
		qs := tokenSet(q.Tokens)
		var (
			best  Match
			found bool
		)
		for _, e := range entries {
			ratio := overlapRatio(qs, tokenSet(Tokens(entryKey(e))))
			if ratio >= threshold && (!found || ratio > best.Confidence) {
				best = Match{Entry: e, Confidence: ratio}
				found = true
			}
		}
		return best, found
	}
}

// FuzzyMatch matches on normalized edit distance between the word-sorted
// forms of the query and each entry.
func FuzzyMatch(threshold float64) func(Query, []Entry) (Match, bool) {
	return func(q Query, entries []Entry) (Match, bool) {
		qk := sortedKey(q.Normalized)
		var (
			best  Match
			found bool
		)
		for _, e := range entries {
			sim := Similarity(qk, sortedKey(entryKey(e)))
			if sim >= threshold && (!found || sim > best.Confidence) {
				best = Match{Entry: e, Confidence: sim}
				found = true
			}
		}
		return best, found
	}
}

// Similarity returns 1 - distance/maxLen over runes, in [0, 1].
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}

func overlapRatio(a, b map[string]struct{}) float64 {
	shorter, longer := a, b
	if len(b) < len(a) {
		shorter, longer = b, a
	}
	if len(shorter) == 0 {
		return 0
	}
	shared := 0
	for t := range shorter {
		if _, ok := longer[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(shorter))
}

// entryKey returns the normalized form of an entry, computing it for rows
// written before the column was populated.
func entryKey(e Entry) string {
	if e.NormalizedQuestion != "" {
		return e.NormalizedQuestion
	}
	return Normalize(strings.TrimSpace(e.Question))
}
