package whr

import (
	"sort"

	"github.com/tommoa/writing-bench/pkg/types"
)

// resultFor converts a judgment winner into a white-side score, given which
// side (A or B) is the "white" player in the emitted game.
func resultFor(winner, whiteSide string) float64 {
	switch winner {
	case types.WinnerTie:
		return 0.5
	case whiteSide:
		return 1.0
	default:
		return 0.0
	}
}

// JudgmentsToGames emits one game per judgment for the writing and revised
// dimensions: white is the model behind sample A, black the model behind
// sample B. Judgments naming an unknown sample, or where both samples
// belong to the same model, are skipped. judgeWeights, if non-nil, supplies
// a per-judge weight multiplier (see internal/judgequality); judges absent
// from the map use weight 1.0.
func JudgmentsToGames(judgments []types.Judgment, sampleToModel map[string]string, judgeWeights map[string]float64) []Game {
	games := make([]Game, 0, len(judgments))
	for _, j := range judgments {
		modelA, okA := sampleToModel[j.SampleA]
		modelB, okB := sampleToModel[j.SampleB]
		if !okA || !okB || modelA == modelB {
			continue
		}
		w := 1.0
		if judgeWeights != nil {
			if jw, ok := judgeWeights[j.JudgeModel]; ok {
				w = jw
			}
		}
		games = append(games, Game{
			White:  modelA,
			Black:  modelB,
			Result: resultFor(j.Winner, types.WinnerA),
			Weight: w,
		})
	}
	return games
}

// improvementGroupKey groups improvement judgments by (promptId, judgeModel,
// originalSampleId) -- the semantically-correct variant, since it compares
// feedback providers only on revisions of the exact same original text.
type improvementGroupKey struct {
	promptID   string
	judgeModel string
	originalID string
}

// improvementEntry is one feedback-provider's result within a group.
type improvementEntry struct {
	feedbackModel string
	winner        string // winner of (original, revision): "A" means original won (no improvement)
}

// ImprovementJudgmentsToGames implements the feedback-dimension derivation:
// group improvement judgments by (promptId, judgeModel, originalSampleId);
// within each group, for every unordered pair of feedback providers tested
// on the same original, emit a synthetic game whose result says whether A's
// revision improved on the original and B's did not (or vice versa), or a
// tie if both or neither improved. This guarantees feedback providers are
// only compared on identical base texts.
func ImprovementJudgmentsToGames(
	judgments []types.Judgment,
	sampleToModel map[string]string,
	sampleToOriginal map[string]string, // revised-sample-id -> original-sample-id
	sampleToFeedbackProvider map[string]string, // revised-sample-id -> feedback-provider model label
	judgeWeights map[string]float64,
) []Game {
	groups := make(map[improvementGroupKey][]improvementEntry)
	groupOrder := make([]improvementGroupKey, 0)

	for _, j := range judgments {
		if j.Stage != types.StageImprovement {
			continue
		}
		originalID := j.SampleA
		revisionID := j.SampleB
		feedbackModel, ok := sampleToFeedbackProvider[revisionID]
		if !ok {
			continue
		}
		// Sanity check: the original this judgment names must match the
		// revision's recorded origin, if known.
		if orig, ok := sampleToOriginal[revisionID]; ok && orig != originalID {
			continue
		}

		key := improvementGroupKey{promptID: j.PromptID, judgeModel: j.JudgeModel, originalID: originalID}
		if _, exists := groups[key]; !exists {
			groupOrder = append(groupOrder, key)
		}
		groups[key] = append(groups[key], improvementEntry{feedbackModel: feedbackModel, winner: j.Winner})
	}

	var games []Game
	for _, key := range groupOrder {
		entries := groups[key]
		sort.Slice(entries, func(i, j int) bool { return entries[i].feedbackModel < entries[j].feedbackModel })

		w := 1.0
		if judgeWeights != nil {
			if jw, ok := judgeWeights[key.judgeModel]; ok {
				w = jw
			}
		}

		for i := 0; i < len(entries); i++ {
			for k := i + 1; k < len(entries); k++ {
				a, b := entries[i], entries[k]
				if a.feedbackModel == b.feedbackModel {
					continue
				}
				aImproved := a.winner == types.WinnerB
				bImproved := b.winner == types.WinnerB

				var result float64
				switch {
				case aImproved == bImproved:
					result = 0.5
				case aImproved:
					result = 1.0
				default:
					result = 0.0
				}

				games = append(games, Game{White: a.feedbackModel, Black: b.feedbackModel, Result: result, Weight: w})
			}
		}
	}
	return games
}

// GamesToRecords aggregates a game multiset into pairwise records, keyed by
// sorted model-label pair.
func GamesToRecords(games []Game) []types.PairwiseRecord {
	type key struct{ a, b string }
	acc := make(map[key]*types.PairwiseRecord)
	order := make([]key, 0)

	for _, g := range games {
		if g.White == g.Black {
			continue
		}
		lo, hi := types.SortedPair(g.White, g.Black)
		k := key{lo, hi}
		rec, ok := acc[k]
		if !ok {
			rec = &types.PairwiseRecord{ModelA: lo, ModelB: hi}
			acc[k] = rec
			order = append(order, k)
		}
		// rec is keyed (lo, hi); orient this game's result onto that axis.
		whiteIsLo := g.White == lo
		switch g.Result {
		case 1.0:
			if whiteIsLo {
				rec.WinsA++
			} else {
				rec.WinsB++
			}
		case 0.0:
			if whiteIsLo {
				rec.WinsB++
			} else {
				rec.WinsA++
			}
		default:
			rec.Ties++
		}
	}

	out := make([]types.PairwiseRecord, 0, len(order))
	for _, k := range order {
		out = append(out, *acc[k])
	}
	return out
}

// RecordsToGames expands pairwise records directly into a game multiset
// (unweighted), suitable for feeding straight into Compute.
func RecordsToGames(records []types.PairwiseRecord) []Game {
	games := make([]Game, 0)
	for _, rec := range records {
		for i := 0; i < rec.WinsA; i++ {
			games = append(games, Game{White: rec.ModelA, Black: rec.ModelB, Result: 1.0, Weight: 1.0})
		}
		for i := 0; i < rec.WinsB; i++ {
			games = append(games, Game{White: rec.ModelA, Black: rec.ModelB, Result: 0.0, Weight: 1.0})
		}
		for i := 0; i < rec.Ties; i++ {
			games = append(games, Game{White: rec.ModelA, Black: rec.ModelB, Result: 0.5, Weight: 1.0})
		}
	}
	return games
}

// MergeRecords canonicalizes and sums two record sets by sorted model pair.
// Commutative and associative.
func MergeRecords(sets ...[]types.PairwiseRecord) []types.PairwiseRecord {
	type key struct{ a, b string }
	acc := make(map[key]*types.PairwiseRecord)
	order := make([]key, 0)

	for _, recs := range sets {
		for _, rec := range recs {
			lo, hi := types.SortedPair(rec.ModelA, rec.ModelB)
			k := key{lo, hi}
			dst, ok := acc[k]
			if !ok {
				dst = &types.PairwiseRecord{ModelA: lo, ModelB: hi}
				acc[k] = dst
				order = append(order, k)
			}
			if rec.ModelA == lo {
				dst.WinsA += rec.WinsA
				dst.WinsB += rec.WinsB
			} else {
				dst.WinsA += rec.WinsB
				dst.WinsB += rec.WinsA
			}
			dst.Ties += rec.Ties
		}
	}

	out := make([]types.PairwiseRecord, 0, len(order))
	for _, k := range order {
		out = append(out, *acc[k])
	}
	return out
}
