package judgequality

import (
	"github.com/tommoa/writing-bench/internal/whr"
	"github.com/tommoa/writing-bench/pkg/types"
)

// Config controls whether and how the judge-quality layer runs.
type Config struct {
	Enabled        bool
	Mode           Mode
	JudgeDecay     float64
	PruneThreshold float64
}

// DefaultConfig matches the convergence defaults: judge quality on,
// consensus mode, judgeDecay 0.03, judgePruneThreshold 0.5.
func DefaultConfig() Config {
	return Config{Enabled: true, Mode: ModeConsensus, JudgeDecay: 0.03, PruneThreshold: 0.5}
}

// Result bundles every statistic and weight the layer produces for one run.
type Result struct {
	SelfPreference map[string]SelfPreferenceBias
	PositionBias   PositionBias
	BiasCorrection map[string]float64 // judgmentId -> factor
	JudgeWeights   map[string]float64 // judgeModel -> quality weight
	PrunedJudges   map[string]bool
	FinalWeights   map[string]float64 // judgmentId -> finalWeight
}

// Compute runs the full judge-quality pipeline: self-preference and
// position-bias detection, per-judgment bias correction, the judge-quality
// WHR run, and composition into finalWeight. When cfg.Enabled is false,
// every judgment gets finalWeight 1.0 and no judge is pruned.
func Compute(cfg Config, judgments []types.Judgment, sampleToModel map[string]string, dimensionRatings map[string]whr.PlayerRating) (*Result, error) {
	if !cfg.Enabled {
		final := make(map[string]float64, len(judgments))
		for _, j := range judgments {
			final[j.JudgmentID] = 1.0
		}
		return &Result{FinalWeights: final}, nil
	}

	selfPref := ComputeSelfPreferenceBias(judgments, sampleToModel)
	posBias := ComputePositionBias(judgments)
	biasCorrection := BiasCorrection(judgments, sampleToModel, selfPref)

	games := QualityGames(judgments, sampleToModel, cfg.Mode, dimensionRatings)
	qualityResult, err := whr.Compute(games)
	if err != nil {
		return nil, err
	}
	judgeWeights := JudgeWeights(qualityResult, cfg.JudgeDecay)
	pruned := PrunedJudges(judgeWeights, cfg.PruneThreshold)

	final := FinalWeights(judgments, judgeWeights, biasCorrection)

	return &Result{
		SelfPreference: selfPref,
		PositionBias:   posBias,
		BiasCorrection: biasCorrection,
		JudgeWeights:   judgeWeights,
		PrunedJudges:   pruned,
		FinalWeights:   final,
	}, nil
}

// FinalWeights composes, for every judgment, finalWeight = max(MinJudgeWeight,
// judgeQualityWeight * biasCorrection). Judges or judgments absent from the
// corresponding map default to weight 1.0 for that factor.
func FinalWeights(judgments []types.Judgment, judgeWeights map[string]float64, biasCorrection map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(judgments))
	for _, j := range judgments {
		jq := 1.0
		if w, ok := judgeWeights[j.JudgeModel]; ok {
			jq = w
		}
		bc := 1.0
		if f, ok := biasCorrection[j.JudgmentID]; ok {
			bc = f
		}
		final := jq * bc
		if final < MinJudgeWeight {
			final = MinJudgeWeight
		}
		out[j.JudgmentID] = final
	}
	return out
}
