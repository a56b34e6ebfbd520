// Package matching scores guest names against the invitee list.
package matching

import (
	"unicode"

	model "github.com/okian/rsvp/internal/domain/model"
)

// DefaultThreshold is the minimum similarity accepted as a match.
const DefaultThreshold = 0.75

// Option applies a configuration option to the Matcher.
type Option func(*Matcher)

// WithThreshold sets the similarity threshold. Values outside (0, 1] are ignored.
func WithThreshold(threshold float64) Option {
	return func(m *Matcher) {
		if threshold > 0 && threshold <= 1 {
			m.threshold = threshold
		}
	}
}

// Matcher finds the closest candidate for a normalized name. It holds no
// mutable state and is safe for concurrent use.
type Matcher struct {
	threshold float64
}

// NewMatcher creates a matcher with configuration options.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Threshold returns the similarity a candidate must reach to match.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// FindBestMatch compares query against every candidate and reports the
// highest scoring one. Ties keep the earliest candidate.
func (m *Matcher) FindBestMatch(query string, candidates []string) model.MatchResult {
	if query == "" || len(candidates) == 0 {
		return model.MatchResult{}
	}

	best, bestIdx := -1.0, -1
	for i, c := range candidates {
		if s := Similarity(query, c); s > best {
			best, bestIdx = s, i
		}
	}

	res := model.MatchResult{Similarity: best}
	if best >= m.threshold {
		res.IsMatch = true
		res.MatchedName = candidates[bestIdx]
	}
	return res
}

// Similarity returns the Dice coefficient over character bigrams of a and b
// with whitespace removed. Identical strings score 1; strings shorter than
// two characters score 0 against anything else.
func Similarity(a, b string) float64 {
	ra, rb := compact(a), compact(b)
	if string(ra) == string(rb) {
		return 1
	}
	if len(ra) < 2 || len(rb) < 2 {
		return 0
	}

	counts := make(map[[2]rune]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		counts[[2]rune{ra[i], ra[i+1]}]++
	}

	shared := 0
	for i := 0; i < len(rb)-1; i++ {
		bg := [2]rune{rb[i], rb[i+1]}
		if counts[bg] > 0 {
			counts[bg]--
			shared++
		}
	}

	return 2 * float64(shared) / float64(len(ra)+len(rb)-2)
}

func compact(s string) []rune {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if !unicode.IsSpace(r) {
			out = append(out, r)
		}
	}
	return out
}
