// Package fuzzy picks the menu name closest to a misspelled fragment.
package fuzzy

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/sahilm/fuzzy"
)

// Matcher scores candidates by the better of two similarities: the
// Levenshtein ratio and the share of the candidate covered by the query
// as a subsequence. Both the whole query and every run of its words are
// tried, so "two piza please" still finds "pizza".
type Matcher struct{}

// New returns a Matcher.
func New() *Matcher {
	return &Matcher{}
}

// BestMatch returns the candidate with the highest similarity to query when
// it reaches cutoff. Ties go to the earlier candidate.
func (m *Matcher) BestMatch(query string, candidates []string, cutoff float64) (string, bool) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(candidates) == 0 {
		return "", false
	}
	windows := wordWindows(query)

	best, bestScore := "", -1.0
	for _, c := range candidates {
		cand := strings.ToLower(c)
		score := 0.0
		for _, w := range windows {
			if s := Similarity(w, cand); s > score {
				score = s
			}
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore < cutoff {
		return "", false
	}
	return best, true
}

// Similarity returns a score in [0, 1] for how close a is to b.
func Similarity(a, b string) float64 {
	return max(ratio(a, b), coverage(a, b))
}

func ratio(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// coverage is the fraction of b matched when a is a subsequence of b.
func coverage(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if len(fuzzy.Find(a, []string{b})) == 0 {
		return 0
	}
	return float64(utf8.RuneCountInString(a)) / float64(utf8.RuneCountInString(b))
}

// wordWindows returns the query plus every contiguous run of its words.
func wordWindows(query string) []string {
	words := strings.Fields(query)
	out := []string{strings.Join(words, " ")}
	for size := len(words) - 1; size >= 1; size-- {
		for i := 0; i+size <= len(words); i++ {
			out = append(out, strings.Join(words[i:i+size], " "))
		}
	}
	return out
}
