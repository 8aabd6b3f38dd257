package judgequality

import (
	"github.com/tommoa/writing-bench/internal/whr"
	"github.com/tommoa/writing-bench/pkg/types"
)

// GamesFromJudgments emits one whr.Game per judgment for a directly-mapped
// dimension (writing or revised): white is the model behind sample A,
// black the model behind sample B, weighted by that judgment's own
// finalWeight. This mirrors whr.JudgmentsToGames, but keys the weight
// lookup by judgment id instead of judge model, since bias correction
// (unlike judge-quality weight) varies judgment by judgment even for the
// same judge.
func GamesFromJudgments(judgments []types.Judgment, sampleToModel map[string]string, finalWeights map[string]float64) []whr.Game {
	games := make([]whr.Game, 0, len(judgments))
	for _, j := range judgments {
		modelA, okA := sampleToModel[j.SampleA]
		modelB, okB := sampleToModel[j.SampleB]
		if !okA || !okB || modelA == modelB {
			continue
		}
		w := 1.0
		if fw, ok := finalWeights[j.JudgmentID]; ok {
			w = fw
		}
		var result float64
		switch j.Winner {
		case types.WinnerTie:
			result = 0.5
		case types.WinnerA:
			result = 1.0
		default:
			result = 0.0
		}
		games = append(games, whr.Game{White: modelA, Black: modelB, Result: result, Weight: w})
	}
	return games
}

// AverageJudgeWeights collapses a per-judgment finalWeight map down to a
// per-judge mean, for callers (the feedback/improvement dimension) whose
// game derivation aggregates several judgments into one synthetic
// comparison and so can only apply a single weight per judge.
func AverageJudgeWeights(finalWeights map[string]float64, judgments []types.Judgment) map[string]float64 {
	sum := make(map[string]float64)
	count := make(map[string]int)
	for _, j := range judgments {
		w, ok := finalWeights[j.JudgmentID]
		if !ok {
			w = 1.0
		}
		sum[j.JudgeModel] += w
		count[j.JudgeModel]++
	}
	out := make(map[string]float64, len(sum))
	for judge, total := range sum {
		out[judge] = total / float64(count[judge])
	}
	return out
}
