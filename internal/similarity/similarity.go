// Package similarity provides the deterministic string-similarity score the
// ranking primitives are built on. Scores are in [0,100]; ties between options
// are always broken by option order, so repeated runs over the same page rank
// identically.
package similarity

import (
	"regexp"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// Normalize lowercases, strips punctuation and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonWord.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Score returns a similarity score in [0,100] between two strings. The score
// is the better of a Jaro-Winkler comparison (good for short labels with
// shared prefixes) and a token-set Sorensen-Dice comparison (good for
// reordered multi-word labels), both over normalized text.
func Score(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}

	jw := strutil.Similarity(na, nb, metrics.NewJaroWinkler())

	dice := metrics.NewSorensenDice()
	dice.NgramSize = 2
	sd := strutil.Similarity(tokenSort(na), tokenSort(nb), dice)

	best := jw
	if sd > best {
		best = sd
	}
	return clamp(best * 100)
}

// BestScore aggregates the scores of several candidate answers against a
// single option label. useAverage=false takes the max over candidates
// (aggressive); true the arithmetic mean (stable).
func BestScore(candidates []string, option string, useAverage bool) float64 {
	if len(candidates) == 0 {
		return 0
	}
	var max, sum float64
	for _, c := range candidates {
		s := Score(c, option)
		sum += s
		if s > max {
			max = s
		}
	}
	if useAverage {
		return sum / float64(len(candidates))
	}
	return max
}

func tokenSort(s string) string {
	fields := strings.Fields(s)
	// Insertion sort keeps this allocation-light for short labels.
	for i := 1; i < len(fields); i++ {
		for j := i; j > 0 && fields[j] < fields[j-1]; j-- {
			fields[j], fields[j-1] = fields[j-1], fields[j]
		}
	}
	return strings.Join(fields, " ")
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
