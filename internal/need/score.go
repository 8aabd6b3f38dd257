package need

import (
	"math"

	"github.com/tommoa/writing-bench/internal/whr"
)

// eloScale is the same Elo-per-natural-log-unit constant the rating engine
// uses internally; duplicated here (rather than exported from internal/whr)
// because scoring is a need-identifier concern, not a rating-engine one.
const eloScale = 400.0 / math.Ln10

// variance converts a rating's Elo-scale CI95 back to log-strength
// variance. ci == +Inf (no matches yet) is treated as variance 100, a
// deliberately large but finite value so unseen models still score highly
// without producing NaNs downstream.
func variance(r whr.PlayerRating) float64 {
	if math.IsInf(r.CI95, 1) {
		return 100
	}
	ci95ToSigma := r.CI95 / (1.96 * eloScale)
	return ci95ToSigma * ci95ToSigma
}

// infoGain is g(a, b) = (sigma_a^2 + sigma_b^2) * p(1-p), the expected
// reduction in posterior variance from one more comparison between a and b.
func infoGain(a, b whr.PlayerRating) float64 {
	p := sigmoid(float64(a.Elo-b.Elo) / eloScale)
	return (variance(a) + variance(b)) * p * (1 - p)
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// depthPenalty enforces breadth-first exploration: every prompt at a given
// output index must be considered before any prompt at the next index.
func depthPenalty(oi, oj int) float64 {
	depth := oi
	if oj > depth {
		depth = oj
	}
	return 1.0 / (1.0 + float64(depth))
}

// ratingOrPrior returns the player's rating if known, or the WHR prior mean
// (elo 1500, infinite CI) if the model has not yet appeared in any game for
// this dimension.
func ratingOrPrior(ratings map[string]whr.PlayerRating, model string) whr.PlayerRating {
	if r, ok := ratings[model]; ok {
		return r
	}
	return whr.PlayerRating{Elo: 1500, CI95: math.Inf(1)}
}

// score computes the full candidate score: info gain, times the stage's
// dimension weight, times the breadth-first depth penalty.
func score(cfg Config, ratings map[string]whr.PlayerRating, stage, modelA, modelB string, oi, oj int) float64 {
	a := ratingOrPrior(ratings, modelA)
	b := ratingOrPrior(ratings, modelB)
	return infoGain(a, b) * cfg.dimensionWeight(stage) * depthPenalty(oi, oj)
}
