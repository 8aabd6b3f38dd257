package need

import "github.com/tommoa/writing-bench/internal/whr"

// Need is a single unit of scheduleable work: one candidate judgment plus
// everything required to identify its cascade.
type Need struct {
	Stage      string
	PromptID   string
	JudgeModel string

	// ModelA and ModelB carry different meanings by stage:
	//   initial/revised: the two writers being compared (unordered).
	//   improvement:      ModelA is the writer, ModelB the feedback provider.
	ModelA string
	ModelB string

	OutputIndexA int
	OutputIndexB int

	// FeedbackModel names the feedback source whose revision is under
	// judgment, for stage == revised.
	FeedbackModel string

	Score float64
}

// pairKey returns the canonical diversification key for a need: writing
// and revised dimensions key on the sorted model pair; improvement keys on
// writer + feedback provider (already asymmetric, no sort needed); revised
// also folds in the feedback provider so each feedback source's revisions
// diversify independently.
func (n Need) pairKey() string {
	switch n.Stage {
	case "improvement":
		return "improvement|" + n.ModelA + "|" + n.ModelB
	case "revised":
		lo, hi := n.ModelA, n.ModelB
		if hi < lo {
			lo, hi = hi, lo
		}
		return "revised|" + lo + "|" + hi + "|" + n.FeedbackModel
	default:
		lo, hi := n.ModelA, n.ModelB
		if hi < lo {
			lo, hi = hi, lo
		}
		return "initial|" + lo + "|" + hi
	}
}

// ratingsByDimension groups the three independent rating tables the need
// identifier scores candidates against.
type ratingsByDimension struct {
	writing  map[string]whr.PlayerRating
	feedback map[string]whr.PlayerRating
	revised  map[string]whr.PlayerRating
}

func (r ratingsByDimension) forStage(stage string) map[string]whr.PlayerRating {
	switch stage {
	case "improvement":
		return r.feedback
	case "revised":
		return r.revised
	default:
		return r.writing
	}
}
