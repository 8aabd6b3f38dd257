package judgequality

import (
	"math"
	"sort"

	"github.com/tommoa/writing-bench/internal/whr"
	"github.com/tommoa/writing-bench/pkg/types"
)

// qualityEntry is one judge's resolved vote within a judgment group (all
// judgments sharing a prompt, an unordered model pair, and a stage).
type qualityEntry struct {
	judge  string
	picked string
	modelA string
	modelB string
}

// QualityGames builds the pairwise games for the judge-quality WHR run:
// the players are judge models, and for every pair of judges who rated the
// same (promptId, unordered model pair, stage), a game is emitted whose
// result reflects which of the two judges' votes matched the quality
// signal selected by mode. Groups where the signal can't be resolved
// (no consensus majority, or missing/tied dimension ratings) contribute no
// games. dimensionRatings is only consulted in the writing/feedback/revised
// modes.
func QualityGames(judgments []types.Judgment, sampleToModel map[string]string, mode Mode, dimensionRatings map[string]whr.PlayerRating) []whr.Game {
	type groupKey struct {
		prompt string
		stage  string
		lo, hi string
	}
	groups := make(map[groupKey][]qualityEntry)
	var order []groupKey

	for _, j := range judgments {
		if j.Winner == types.WinnerTie {
			continue
		}
		modelA, okA := sampleToModel[j.SampleA]
		modelB, okB := sampleToModel[j.SampleB]
		if !okA || !okB || modelA == modelB {
			continue
		}
		picked := modelA
		if j.Winner == types.WinnerB {
			picked = modelB
		}
		lo, hi := types.SortedPair(modelA, modelB)
		key := groupKey{prompt: j.PromptID, stage: j.Stage, lo: lo, hi: hi}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], qualityEntry{judge: j.JudgeModel, picked: picked, modelA: modelA, modelB: modelB})
	}

	var games []whr.Game
	for _, key := range order {
		entries := groups[key]
		correct, ok := resolveCorrectness(entries, key.lo, key.hi, mode, dimensionRatings)
		if !ok {
			continue
		}

		sort.Slice(entries, func(i, j int) bool { return entries[i].judge < entries[j].judge })
		for i := 0; i < len(entries); i++ {
			for k := i + 1; k < len(entries); k++ {
				a, b := entries[i], entries[k]
				if a.judge == b.judge {
					continue
				}
				var result float64
				switch {
				case correct[i] == correct[k]:
					result = 0.5
				case correct[i]:
					result = 1.0
				default:
					result = 0.0
				}
				games = append(games, whr.Game{White: a.judge, Black: b.judge, Result: result})
			}
		}
	}
	return games
}

// resolveCorrectness decides, for every entry in a judgment group, whether
// its vote matched the quality signal. Returns ok=false when the group has
// no usable signal at all (no consensus majority, or missing/tied
// dimension ratings for the pair).
func resolveCorrectness(entries []qualityEntry, lo, hi string, mode Mode, dimensionRatings map[string]whr.PlayerRating) ([]bool, bool) {
	switch mode {
	case ModeWriting, ModeFeedback, ModeRevised:
		ra, okA := dimensionRatings[lo]
		rb, okB := dimensionRatings[hi]
		if !okA || !okB || ra.Elo == rb.Elo {
			return nil, false
		}
		favorite := lo
		if rb.Elo > ra.Elo {
			favorite = hi
		}
		out := make([]bool, len(entries))
		for i, e := range entries {
			out[i] = e.picked == favorite
		}
		return out, true

	default: // ModeConsensus
		votesFor := make(map[string]int)
		for _, e := range entries {
			votesFor[e.picked]++
		}
		loVotes, hiVotes := votesFor[lo], votesFor[hi]
		if loVotes == hiVotes {
			return nil, false
		}
		majority := lo
		if hiVotes > loVotes {
			majority = hi
		}
		out := make([]bool, len(entries))
		for i, e := range entries {
			out[i] = e.picked == majority
		}
		return out, true
	}
}

// JudgeWeights converts a judge-quality WHR result into a per-judge scalar
// weight: weight = exp(-judgeDecay * max(0, ratingGapFromTop)), floored at
// MinJudgeWeight. Judges absent from result (no quality judgments) are not
// present in the returned map -- callers treat an absent judge as weight
// 1.0, i.e. no evidence either way.
func JudgeWeights(result *whr.Result, judgeDecay float64) map[string]float64 {
	if result == nil || len(result.Ratings) == 0 {
		return map[string]float64{}
	}
	topElo := math.Inf(-1)
	for _, r := range result.Ratings {
		if r.Matches == 0 {
			continue
		}
		if float64(r.Elo) > topElo {
			topElo = float64(r.Elo)
		}
	}
	if math.IsInf(topElo, -1) {
		return map[string]float64{}
	}

	out := make(map[string]float64, len(result.Ratings))
	for judge, r := range result.Ratings {
		if r.Matches == 0 {
			continue
		}
		gap := topElo - float64(r.Elo)
		if gap < 0 {
			gap = 0
		}
		w := math.Exp(-judgeDecay * gap)
		if w < MinJudgeWeight {
			w = MinJudgeWeight
		}
		out[judge] = w
	}
	return out
}

// PrunedJudges returns the set of judges whose quality weight falls below
// threshold -- excluded from new need generation, though their existing
// judgments remain in the record (down-weighted, not deleted).
func PrunedJudges(judgeWeights map[string]float64, threshold float64) map[string]bool {
	out := make(map[string]bool)
	for judge, w := range judgeWeights {
		if w < threshold {
			out[judge] = true
		}
	}
	return out
}
