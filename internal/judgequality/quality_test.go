package judgequality_test

import (
	"math"
	"testing"

	"github.com/tommoa/writing-bench/internal/judgequality"
	"github.com/tommoa/writing-bench/internal/whr"
	"github.com/tommoa/writing-bench/pkg/types"
)

func TestQualityGames_ConsensusMode(t *testing.T) {
	sampleToModel := map[string]string{"a": "gpt-5", "b": "claude"}
	judgments := []types.Judgment{
		{JudgmentID: "1", PromptID: "p1", Stage: types.StageInitial, JudgeModel: "judge-1", SampleA: "a", SampleB: "b", Winner: types.WinnerA},
		{JudgmentID: "2", PromptID: "p1", Stage: types.StageInitial, JudgeModel: "judge-2", SampleA: "a", SampleB: "b", Winner: types.WinnerA},
		{JudgmentID: "3", PromptID: "p1", Stage: types.StageInitial, JudgeModel: "judge-3", SampleA: "a", SampleB: "b", Winner: types.WinnerB},
	}
	games := judgequality.QualityGames(judgments, sampleToModel, judgequality.ModeConsensus, nil)
	if len(games) != 3 {
		t.Fatalf("expected 3 pairwise games among 3 judges, got %d: %+v", len(games), games)
	}
	// judge-3 disagreed with the majority (A); any game involving judge-3
	// should have it losing to a judge who agreed.
	for _, g := range games {
		if g.White == "judge-3" && g.Black != "judge-3" {
			if g.Result != 0.0 {
				t.Errorf("expected judge-3 to lose to majority-agreeing judges, got %+v", g)
			}
		}
		if g.Black == "judge-3" && g.White != "judge-3" {
			if g.Result != 1.0 {
				t.Errorf("expected judge-3 to lose to majority-agreeing judges, got %+v", g)
			}
		}
	}
}

func TestQualityGames_ConsensusTieProducesNoGames(t *testing.T) {
	sampleToModel := map[string]string{"a": "gpt-5", "b": "claude"}
	judgments := []types.Judgment{
		{JudgmentID: "1", PromptID: "p1", Stage: types.StageInitial, JudgeModel: "judge-1", SampleA: "a", SampleB: "b", Winner: types.WinnerA},
		{JudgmentID: "2", PromptID: "p1", Stage: types.StageInitial, JudgeModel: "judge-2", SampleA: "a", SampleB: "b", Winner: types.WinnerB},
	}
	games := judgequality.QualityGames(judgments, sampleToModel, judgequality.ModeConsensus, nil)
	if len(games) != 0 {
		t.Errorf("expected no games when votes are evenly split, got %+v", games)
	}
}

func TestQualityGames_DimensionMode(t *testing.T) {
	sampleToModel := map[string]string{"a": "strong", "b": "weak"}
	judgments := []types.Judgment{
		{JudgmentID: "1", PromptID: "p1", Stage: types.StageInitial, JudgeModel: "judge-1", SampleA: "a", SampleB: "b", Winner: types.WinnerA},
		{JudgmentID: "2", PromptID: "p1", Stage: types.StageInitial, JudgeModel: "judge-2", SampleA: "a", SampleB: "b", Winner: types.WinnerB},
	}
	ratings := map[string]whr.PlayerRating{
		"strong": {Elo: 1700},
		"weak":   {Elo: 1300},
	}
	games := judgequality.QualityGames(judgments, sampleToModel, judgequality.ModeWriting, ratings)
	if len(games) != 1 {
		t.Fatalf("expected exactly 1 game between the 2 judges, got %d", len(games))
	}
	g := games[0]
	// judge-1 picked the stronger model (correct); judge-2 picked the
	// weaker one (incorrect) -- the correct judge should win the game.
	if g.White == "judge-1" && g.Result != 1.0 {
		t.Errorf("expected judge-1 to win, got %+v", g)
	}
	if g.White == "judge-2" && g.Result != 0.0 {
		t.Errorf("expected judge-2 to lose, got %+v", g)
	}
}

func TestJudgeWeights(t *testing.T) {
	result := &whr.Result{Ratings: map[string]whr.PlayerRating{
		"top":    {Elo: 1700, Matches: 10},
		"middle": {Elo: 1500, Matches: 10},
		"bottom": {Elo: 1300, Matches: 10},
		"absent": {Elo: 1500, Matches: 0},
	}}
	weights := judgequality.JudgeWeights(result, 0.003)
	if weights["top"] != 1.0 {
		t.Errorf("expected top-rated judge to get weight 1.0, got %v", weights["top"])
	}
	if weights["middle"] >= weights["top"] {
		t.Errorf("expected middle weight < top weight")
	}
	if weights["bottom"] >= weights["middle"] {
		t.Errorf("expected bottom weight < middle weight")
	}
	if _, ok := weights["absent"]; ok {
		t.Errorf("expected a judge with zero matches to be absent from the weight map")
	}
	expectedMiddle := math.Exp(-0.003 * 200)
	if diff := math.Abs(weights["middle"] - expectedMiddle); diff > 1e-9 {
		t.Errorf("expected middle weight %v, got %v", expectedMiddle, weights["middle"])
	}
}

func TestJudgeWeights_FloorsAtMinJudgeWeight(t *testing.T) {
	result := &whr.Result{Ratings: map[string]whr.PlayerRating{
		"top":    {Elo: 3000, Matches: 5},
		"bottom": {Elo: 0, Matches: 5},
	}}
	weights := judgequality.JudgeWeights(result, 1.0)
	if weights["bottom"] != judgequality.MinJudgeWeight {
		t.Errorf("expected floor at MinJudgeWeight, got %v", weights["bottom"])
	}
}

func TestPrunedJudges(t *testing.T) {
	weights := map[string]float64{"a": 0.9, "b": 0.3, "c": 0.5}
	pruned := judgequality.PrunedJudges(weights, 0.5)
	if pruned["a"] || pruned["c"] {
		t.Errorf("expected a and c (>= threshold) not pruned, got %+v", pruned)
	}
	if !pruned["b"] {
		t.Errorf("expected b (< threshold) pruned")
	}
}
