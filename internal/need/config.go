// Package need enumerates, scores, prunes, and diversifies the candidate
// judgments the pull loop should request next: given the current ratings
// and the set of work already completed, it picks a batch that makes
// progress on whichever model pairs are least distinguishable, while
// exploring breadth-first across output indices.
package need

import "github.com/tommoa/writing-bench/pkg/types"

// Config bounds and weights candidate scoring and convergence.
type Config struct {
	// CIThreshold is the Elo-point CI half-width below which a model is
	// considered settled even if it still overlaps a neighbor. 0 means
	// convergence is decided purely by overlap.
	CIThreshold float64
	// MinPairsPerModel is the match-count floor below which a model is
	// never considered converged.
	MinPairsPerModel int
	// MaxRounds caps pull-loop iterations.
	MaxRounds int

	// WritingWeight, FeedbackWeight, and RevisedWeight are per-dimension
	// score multipliers expressing relative cascade cost.
	WritingWeight  float64
	FeedbackWeight float64
	RevisedWeight  float64
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		CIThreshold:      0,
		MinPairsPerModel: 2,
		MaxRounds:        50,
		WritingWeight:    1.0,
		FeedbackWeight:   0.25,
		RevisedWeight:    0.4,
	}
}

// dimensionWeight returns the configured multiplier for stage.
func (c Config) dimensionWeight(stage string) float64 {
	switch stage {
	case types.StageInitial:
		return c.WritingWeight
	case types.StageImprovement:
		return c.FeedbackWeight
	case types.StageRevised:
		return c.RevisedWeight
	default:
		return 1.0
	}
}
