package need

import (
	"sort"

	"github.com/tommoa/writing-bench/internal/whr"
	"github.com/tommoa/writing-bench/pkg/types"
)

// Inputs bundles everything the need identifier enumerates over.
type Inputs struct {
	Writing  map[string]whr.PlayerRating
	Feedback map[string]whr.PlayerRating
	Revised  map[string]whr.PlayerRating

	Models          []string // writers
	FeedbackModels  []string // models that can give feedback; usually == Models
	Judges          []string // if empty, writers act as judges
	Prompts         []string
	OutputsPerModel int

	BatchSize int
}

func (in Inputs) judgesOrModels() []string {
	if len(in.Judges) > 0 {
		return in.Judges
	}
	return in.Models
}

// Identify enumerates, scores, prunes, and diversifies candidate needs,
// returning at most in.BatchSize, sorted by descending score with
// ties broken by enumeration order for determinism.
func Identify(cfg Config, work *CompletedWork, in Inputs) []Need {
	ratings := ratingsByDimension{writing: in.Writing, feedback: in.Feedback, revised: in.Revised}

	var candidates []Need
	candidates = append(candidates, initialCandidates(cfg, work, ratings, in)...)
	candidates = append(candidates, improvementCandidates(cfg, work, ratings, in)...)
	candidates = append(candidates, revisedCandidates(cfg, work, ratings, in)...)

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })

	return diversify(candidates, in.BatchSize, len(in.Models))
}

// initialCandidates enumerates writing-dimension comparisons: unordered
// model pairs, output-index pairs below outputsPerModel, every prompt,
// every judge.
func initialCandidates(cfg Config, work *CompletedWork, ratings ratingsByDimension, in Inputs) []Need {
	var out []Need
	writing := ratings.forStage(types.StageInitial)

	for ia := range in.Models {
		for ib := ia + 1; ib < len(in.Models); ib++ {
			modelA, modelB := in.Models[ia], in.Models[ib]
			ra := ratingOrPrior(writing, modelA)
			rb := ratingOrPrior(writing, modelB)
			if pairResolved(cfg, ra, rb) {
				continue
			}

			for _, promptID := range in.Prompts {
				for oi := 0; oi < in.OutputsPerModel; oi++ {
					for oj := 0; oj < in.OutputsPerModel; oj++ {
						if work.IsSampleMissing(promptID, modelA, oi) || work.IsSampleMissing(promptID, modelB, oj) {
							continue
						}
						for _, judge := range in.judgesOrModels() {
							if work.IsJudgmentMissing(types.StageInitial, modelA, modelB, promptID, oi, oj) {
								continue
							}
							if work.HasJudgment(types.StageInitial, modelA, modelB, promptID, judge, oi, oj) {
								continue
							}
							out = append(out, Need{
								Stage: types.StageInitial, PromptID: promptID, JudgeModel: judge,
								ModelA: modelA, ModelB: modelB, OutputIndexA: oi, OutputIndexB: oj,
								Score: score(cfg, writing, types.StageInitial, modelA, modelB, oi, oj),
							})
						}
					}
				}
			}
		}
	}
	return out
}

// sideBroken reports whether a writer/feedback-provider cascade side is
// known unproducible: the writer's sample, that side's feedback, or the
// writer's revision-with-that-feedback is known missing.
func sideBroken(work *CompletedWork, promptID, writerModel, feedbackModel string, idx int) bool {
	return work.IsSampleMissing(promptID, writerModel, idx) ||
		work.IsFeedbackMissing(promptID, writerModel, feedbackModel, idx) ||
		work.IsRevisionMissing(promptID, writerModel, feedbackModel, idx)
}

// improvementCandidates enumerates feedback-dimension comparisons: for
// each (writer, output-index, prompt, judge), an asymmetric pair of
// writer x feedback-provider, for every feedback provider whose side is
// not broken.
func improvementCandidates(cfg Config, work *CompletedWork, ratings ratingsByDimension, in Inputs) []Need {
	var out []Need
	feedback := ratings.forStage(types.StageImprovement)

	for _, writer := range in.Models {
		for oi := 0; oi < in.OutputsPerModel; oi++ {
			for _, promptID := range in.Prompts {
				if work.IsSampleMissing(promptID, writer, oi) {
					continue
				}
				for _, judge := range in.judgesOrModels() {
					for _, feedbackModel := range in.FeedbackModels {
						broken := sideBroken(work, promptID, writer, feedbackModel, oi) ||
							work.IsJudgmentMissing(types.StageImprovement, writer, feedbackModel, promptID, oi, oi)
						if broken {
							continue
						}
						if work.HasJudgment(types.StageImprovement, writer, feedbackModel, promptID, judge, oi, oi) {
							continue
						}
						ra := ratingOrPrior(feedback, writer)
						rb := ratingOrPrior(feedback, feedbackModel)
						if pairResolved(cfg, ra, rb) {
							continue
						}
						out = append(out, Need{
							Stage: types.StageImprovement, PromptID: promptID, JudgeModel: judge,
							ModelA: writer, ModelB: feedbackModel, OutputIndexA: oi, OutputIndexB: oi,
							Score: score(cfg, feedback, types.StageImprovement, writer, feedbackModel, oi, oi),
						})
					}
				}
			}
		}
	}
	return out
}

// revisedCandidates enumerates revised-dimension comparisons: output-index
// pairs, each side revised from a (possibly different) feedback source,
// per prompt and judge. The judgment key encodes feedbackModel into the
// promptId slot ("<prompt>:<feedbackModel>") so revisions fed by different
// feedback sources dedup independently.
func revisedCandidates(cfg Config, work *CompletedWork, ratings ratingsByDimension, in Inputs) []Need {
	var out []Need
	revised := ratings.forStage(types.StageRevised)

	for ia := range in.Models {
		for ib := ia + 1; ib < len(in.Models); ib++ {
			modelA, modelB := in.Models[ia], in.Models[ib]
			ra := ratingOrPrior(revised, modelA)
			rb := ratingOrPrior(revised, modelB)
			if pairResolved(cfg, ra, rb) {
				continue
			}

			for _, promptID := range in.Prompts {
				for oi := 0; oi < in.OutputsPerModel; oi++ {
					for oj := 0; oj < in.OutputsPerModel; oj++ {
						for _, feedbackModel := range in.FeedbackModels {
							if sideBroken(work, promptID, modelA, feedbackModel, oi) ||
								sideBroken(work, promptID, modelB, feedbackModel, oj) {
								continue
							}
							judgmentPromptID := promptID + ":" + feedbackModel
							if work.IsJudgmentMissing(types.StageRevised, modelA, modelB, judgmentPromptID, oi, oj) {
								continue
							}
							for _, judge := range in.judgesOrModels() {
								if work.HasJudgment(types.StageRevised, modelA, modelB, judgmentPromptID, judge, oi, oj) {
									continue
								}
								out = append(out, Need{
									Stage: types.StageRevised, PromptID: promptID, JudgeModel: judge,
									ModelA: modelA, ModelB: modelB, OutputIndexA: oi, OutputIndexB: oj,
									FeedbackModel: feedbackModel,
									Score:         score(cfg, revised, types.StageRevised, modelA, modelB, oi, oj),
								})
							}
						}
					}
				}
			}
		}
	}
	return out
}
