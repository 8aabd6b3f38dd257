package judgequality_test

import (
	"testing"

	"github.com/tommoa/writing-bench/internal/judgequality"
	"github.com/tommoa/writing-bench/pkg/types"
)

func TestFinalWeights_DefaultsToOneWhenNoEvidence(t *testing.T) {
	judgments := []types.Judgment{{JudgmentID: "1", JudgeModel: "m"}}
	weights := judgequality.FinalWeights(judgments, nil, nil)
	if weights["1"] != 1.0 {
		t.Errorf("expected default weight 1.0, got %v", weights["1"])
	}
}

func TestFinalWeights_ComposesJudgeAndBiasFactors(t *testing.T) {
	judgments := []types.Judgment{{JudgmentID: "1", JudgeModel: "m"}}
	judgeWeights := map[string]float64{"m": 0.8}
	biasCorrection := map[string]float64{"1": 0.6}
	weights := judgequality.FinalWeights(judgments, judgeWeights, biasCorrection)
	want := 0.8 * 0.6
	if diff := weights["1"] - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected %v, got %v", want, weights["1"])
	}
}

func TestFinalWeights_FloorsAtMinJudgeWeight(t *testing.T) {
	judgments := []types.Judgment{{JudgmentID: "1", JudgeModel: "m"}}
	judgeWeights := map[string]float64{"m": 0.01}
	biasCorrection := map[string]float64{"1": 0.01}
	weights := judgequality.FinalWeights(judgments, judgeWeights, biasCorrection)
	if weights["1"] != judgequality.MinJudgeWeight {
		t.Errorf("expected floor at MinJudgeWeight, got %v", weights["1"])
	}
}

func TestCompute_DisabledGivesUnitWeights(t *testing.T) {
	judgments := []types.Judgment{
		{JudgmentID: "1", JudgeModel: "m"},
		{JudgmentID: "2", JudgeModel: "n"},
	}
	result, err := judgequality.Compute(judgequality.Config{Enabled: false}, judgments, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FinalWeights["1"] != 1.0 || result.FinalWeights["2"] != 1.0 {
		t.Errorf("expected unit weights when disabled, got %+v", result.FinalWeights)
	}
	if len(result.PrunedJudges) != 0 {
		t.Errorf("expected no pruned judges when disabled")
	}
}

func TestCompute_EnabledEndToEnd(t *testing.T) {
	sampleToModel := map[string]string{"a": "gpt-5", "b": "claude"}
	judgments := []types.Judgment{
		{JudgmentID: "1", PromptID: "p1", Stage: types.StageInitial, JudgeModel: "judge-1", SampleA: "a", SampleB: "b", Winner: types.WinnerA},
		{JudgmentID: "2", PromptID: "p1", Stage: types.StageInitial, JudgeModel: "judge-2", SampleA: "a", SampleB: "b", Winner: types.WinnerA},
	}
	cfg := judgequality.DefaultConfig()
	result, err := judgequality.Compute(cfg, judgments, sampleToModel, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.FinalWeights) != 2 {
		t.Fatalf("expected a finalWeight for every judgment, got %+v", result.FinalWeights)
	}
	for id, w := range result.FinalWeights {
		if w < judgequality.MinJudgeWeight || w > 1.0 {
			t.Errorf("finalWeight for %s out of expected range: %v", id, w)
		}
	}
}
