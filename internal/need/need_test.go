package need_test

import (
	"testing"

	"github.com/tommoa/writing-bench/internal/need"
	"github.com/tommoa/writing-bench/internal/whr"
	"github.com/tommoa/writing-bench/pkg/types"
)

func TestJudgmentKey_SymmetricStagesAreOrderIndependent(t *testing.T) {
	k1 := need.JudgmentKey(types.StageInitial, "a", "b", "prompt-1", "judge", 0, 1)
	k2 := need.JudgmentKey(types.StageInitial, "b", "a", "prompt-1", "judge", 1, 0)
	if k1 != k2 {
		t.Errorf("expected symmetric keys to match: %q != %q", k1, k2)
	}

	k3 := need.JudgmentKey(types.StageRevised, "a", "b", "prompt-1", "judge", 0, 1)
	k4 := need.JudgmentKey(types.StageRevised, "b", "a", "prompt-1", "judge", 1, 0)
	if k3 != k4 {
		t.Errorf("expected symmetric keys to match: %q != %q", k3, k4)
	}
}

func TestJudgmentKey_ImprovementIsAsymmetric(t *testing.T) {
	k1 := need.JudgmentKey(types.StageImprovement, "writer", "feedbacker", "prompt-1", "judge", 0, 0)
	k2 := need.JudgmentKey(types.StageImprovement, "feedbacker", "writer", "prompt-1", "judge", 0, 0)
	if k1 == k2 {
		t.Error("expected improvement-stage keys to be asymmetric (writer, feedbacker order matters)")
	}
}

// TestIdentify_BreadthFirstExploration: if every prompt has a sample at
// output-index 0 and none at 1, no need at index 1 should be selected
// before all index-0 needs are satisfied, at a batch size >= the number of
// prompts.
func TestIdentify_BreadthFirstExploration(t *testing.T) {
	cfg := need.DefaultConfig()
	work := need.NewCompletedWork()

	prompts := []string{"p1", "p2", "p3"}
	for _, p := range prompts {
		work.MarkMissingSample(p, "model-a", 1)
		work.MarkMissingSample(p, "model-b", 1)
	}

	in := need.Inputs{
		Models:          []string{"model-a", "model-b"},
		FeedbackModels:  []string{"model-a", "model-b"},
		Judges:          []string{"judge"},
		Prompts:         prompts,
		OutputsPerModel: 2,
		BatchSize:       len(prompts),
	}

	needs := need.Identify(cfg, work, in)
	if len(needs) != len(prompts) {
		t.Fatalf("expected %d needs (one per prompt at index 0), got %d", len(prompts), len(needs))
	}
	for _, n := range needs {
		if n.OutputIndexA != 0 || n.OutputIndexB != 0 {
			t.Errorf("expected only index-0 needs, got (%d, %d)", n.OutputIndexA, n.OutputIndexB)
		}
	}
}

// TestPairResolved_NonOverlapResolution is concrete scenario 6: two models
// with ratings (1800, 1200), each CI = 50, and ciThreshold = 0 resolves
// even though both individually exceed the (zero) threshold, because they
// no longer overlap.
func TestPairResolved_NonOverlapResolution(t *testing.T) {
	cfg := need.DefaultConfig()
	cfg.CIThreshold = 0
	cfg.MinPairsPerModel = 2

	a := whr.PlayerRating{Elo: 1800, CI95: 50, Matches: 10}
	b := whr.PlayerRating{Elo: 1200, CI95: 50, Matches: 10}

	writing := map[string]whr.PlayerRating{"a": a, "b": b}
	work := need.NewCompletedWork()
	in := need.Inputs{
		Writing:         writing,
		Models:          []string{"a", "b"},
		FeedbackModels:  []string{"a", "b"},
		Judges:          []string{"judge"},
		Prompts:         []string{"p1"},
		OutputsPerModel: 1,
		BatchSize:       10,
	}

	needs := need.Identify(cfg, work, in)
	for _, n := range needs {
		if n.Stage == types.StageInitial {
			t.Errorf("expected no initial-stage need for an already-resolved pair, got %+v", n)
		}
	}
}

func TestIsConverged_EmptyDimensionNeverConverges(t *testing.T) {
	cfg := need.DefaultConfig()
	if need.IsConverged(cfg, nil, nil, nil) {
		t.Error("expected empty dimensions to never report converged")
	}
}

func TestIsConverged_AllSeparatedConverges(t *testing.T) {
	cfg := need.DefaultConfig()
	cfg.MinPairsPerModel = 2
	ratings := map[string]whr.PlayerRating{
		"a": {Elo: 1800, CI95: 50, Matches: 10},
		"b": {Elo: 1200, CI95: 50, Matches: 10},
	}
	if !need.IsConverged(cfg, ratings, ratings, ratings) {
		t.Error("expected fully separated ratings with sufficient matches to converge")
	}
}
