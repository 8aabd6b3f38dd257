package judgequality

import "github.com/tommoa/writing-bench/pkg/types"

// SelfPreferenceBias is one judge's self-preference statistic: how often it
// picks itself against another model, compared to how often other judges
// pick it in any decisive judgment where it is on trial.
type SelfPreferenceBias struct {
	Judge           string
	SelfWinRate     float64
	ExpectedWinRate float64
	BiasDelta       float64
	SelfJudgments   int
	CrossJudgments  int
	Sufficient      bool
}

// decisiveVote is a resolved, non-tie judgment: who judged, which two
// models were on trial, and which one the judge picked.
type decisiveVote struct {
	judge  string
	modelA string
	modelB string
	picked string // modelA or modelB
}

func decisiveVotes(judgments []types.Judgment, sampleToModel map[string]string) []decisiveVote {
	votes := make([]decisiveVote, 0, len(judgments))
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
		votes = append(votes, decisiveVote{judge: j.JudgeModel, modelA: modelA, modelB: modelB, picked: picked})
	}
	return votes
}

// ComputeSelfPreferenceBias computes, for every judge that also appears as
// a model on trial, how much more often it picks itself than other judges
// pick it. The expected rate pools every cross judgment in which the judge's
// model is on trial, against any opponent; it is not restricted to the
// opponents the judge's own self-judgments involved. sampleToModel resolves
// a sample id to the model that produced it.
func ComputeSelfPreferenceBias(judgments []types.Judgment, sampleToModel map[string]string) map[string]SelfPreferenceBias {
	votes := decisiveVotes(judgments, sampleToModel)

	selfTotal := make(map[string]int)
	selfWins := make(map[string]int)
	crossTotal := make(map[string]int)
	crossWinsForModel := make(map[string]int)

	for _, v := range votes {
		isSelfA := v.judge == v.modelA
		isSelfB := v.judge == v.modelB
		if isSelfA || isSelfB {
			selfTotal[v.judge]++
			if v.picked == v.judge {
				selfWins[v.judge]++
			}
			continue
		}
		// A cross judgment contributes to the "expected" rate for whichever
		// model on trial is also someone's judge identity.
		if v.modelA != v.modelB {
			crossTotal[v.modelA]++
			if v.picked == v.modelA {
				crossWinsForModel[v.modelA]++
			}
			crossTotal[v.modelB]++
			if v.picked == v.modelB {
				crossWinsForModel[v.modelB]++
			}
		}
	}

	out := make(map[string]SelfPreferenceBias, len(selfTotal))
	for judge, n := range selfTotal {
		selfWinRate := float64(selfWins[judge]) / float64(n)
		cross := crossTotal[judge]
		expectedWinRate := 0.0
		if cross > 0 {
			expectedWinRate = float64(crossWinsForModel[judge]) / float64(cross)
		}
		sufficient := n >= MinSelfJudgments && cross > 0
		out[judge] = SelfPreferenceBias{
			Judge:           judge,
			SelfWinRate:     selfWinRate,
			ExpectedWinRate: expectedWinRate,
			BiasDelta:       selfWinRate - expectedWinRate,
			SelfJudgments:   n,
			CrossJudgments:  cross,
			Sufficient:      sufficient,
		}
	}
	return out
}

// PositionBias is the run-wide statistic for whether judges systematically
// favor whichever sample is presented first.
type PositionBias struct {
	PresentedAWinRate float64
	BiasDelta         float64
	KnownPosition     int
	Sufficient        bool
}

// ComputePositionBias tallies, across every judgment with a known
// positionSwapped flag, how often the presented-first sample won -- after
// undoing the canonical-orientation correction the cache applies.
func ComputePositionBias(judgments []types.Judgment) PositionBias {
	known := 0
	presentedAWins := 0
	for _, j := range judgments {
		if j.PositionSwapped == nil || j.Winner == types.WinnerTie {
			continue
		}
		known++
		swapped := *j.PositionSwapped
		presentedAWon := (!swapped && j.Winner == types.WinnerA) || (swapped && j.Winner == types.WinnerB)
		if presentedAWon {
			presentedAWins++
		}
	}
	if known == 0 {
		return PositionBias{}
	}
	rate := float64(presentedAWins) / float64(known)
	return PositionBias{
		PresentedAWinRate: rate,
		BiasDelta:         rate - 0.5,
		KnownPosition:     known,
		Sufficient:        known >= MinPositionJudgments,
	}
}

// BiasCorrection derives a sparse per-judgment correction factor from
// selfPref: a judgment is only present in the returned map when its judge
// voted for itself, with a sufficient and above-dead-zone self-preference
// bias. Every other judgment is implicitly weight 1.0.
func BiasCorrection(judgments []types.Judgment, sampleToModel map[string]string, selfPref map[string]SelfPreferenceBias) map[string]float64 {
	out := make(map[string]float64)
	for _, j := range judgments {
		if j.Winner == types.WinnerTie {
			continue
		}
		modelA, okA := sampleToModel[j.SampleA]
		modelB, okB := sampleToModel[j.SampleB]
		if !okA || !okB || modelA == modelB {
			continue
		}
		var selfSide string
		switch j.JudgeModel {
		case modelA:
			selfSide = types.WinnerA
		case modelB:
			selfSide = types.WinnerB
		default:
			continue
		}
		if j.Winner != selfSide {
			continue
		}
		spb, ok := selfPref[j.JudgeModel]
		if !ok || !spb.Sufficient || spb.BiasDelta <= BiasDeadZone {
			continue
		}
		factor := 1 - spb.BiasDelta
		if factor < MinJudgeWeight {
			factor = MinJudgeWeight
		}
		out[j.JudgmentID] = factor
	}
	return out
}
