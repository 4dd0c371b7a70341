package dom

import (
	"sort"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/similarity"
)

// RankedOption pairs an option with its aggregated similarity score.
type RankedOption struct {
	Option schemas.OptionInfo
	Index  int
	Score  float64
}

// RankOptions scores every option label against the candidate answers and
// returns the options ordered best-first. The sort is stable over the
// original option order, which is the tie-break guarantee: equal scores keep
// document order.
func RankOptions(options []schemas.OptionInfo, candidates []string, useAverage bool) []RankedOption {
	ranked := make([]RankedOption, len(options))
	for i, opt := range options {
		ranked[i] = RankedOption{
			Option: opt,
			Index:  i,
			Score:  similarity.BestScore(candidates, opt.Label, useAverage),
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// PickBest returns the top-ranked option meeting threshold. A nil threshold
// (signaled by a negative value) always selects the top-ranked option of a
// non-empty set. selectAtLeastOne forces the ranked best when nothing clears
// the threshold.
func PickBest(ranked []RankedOption, threshold float64, selectAtLeastOne bool) (RankedOption, bool) {
	if len(ranked) == 0 {
		return RankedOption{}, false
	}
	best := ranked[0]
	if threshold < 0 || best.Score >= threshold {
		return best, true
	}
	if selectAtLeastOne {
		return best, true
	}
	return RankedOption{}, false
}

// SelectTargets computes the option indices a semantic checkbox selection
// should end with, honoring exact/min/max constraints:
//  1. exactSelections, when set, takes the top-k outright,
//  2. otherwise options meeting threshold are taken,
//  3. minSelections promotes next-best candidates,
//  4. maxSelections trims from the bottom of the ranking.
func SelectTargets(ranked []RankedOption, threshold float64, minSel, maxSel, exactSel int) []RankedOption {
	if len(ranked) == 0 {
		return nil
	}

	if exactSel > 0 {
		if exactSel > len(ranked) {
			exactSel = len(ranked)
		}
		return append([]RankedOption(nil), ranked[:exactSel]...)
	}

	var chosen []RankedOption
	for _, r := range ranked {
		if threshold < 0 || r.Score >= threshold {
			chosen = append(chosen, r)
		}
	}

	for len(chosen) < minSel && len(chosen) < len(ranked) {
		chosen = append(chosen, ranked[len(chosen)])
	}

	if maxSel > 0 && len(chosen) > maxSel {
		chosen = chosen[:maxSel]
	}
	return chosen
}

// annotateScores copies ranked scores back onto option infos for inspect
// metadata.
func annotateScores(ranked []RankedOption) []schemas.OptionInfo {
	out := make([]schemas.OptionInfo, len(ranked))
	for i, r := range ranked {
		opt := r.Option
		opt.Score = r.Score
		out[i] = opt
	}
	return out
}
