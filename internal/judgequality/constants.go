// Package judgequality reweights raw pairwise judgments to down-weight
// biased or unreliable judges before they reach the rating engine: a
// self-preference detector, a position-bias detector, a per-judgment bias
// correction derived from the former, and a dedicated "judge quality" WHR
// run whose ratings convert into a per-judge scalar weight. The two feed a
// single per-judgment finalWeight consumed as the weight field on a
// whr.Game.
package judgequality

// MinSelfJudgments is the minimum number of decisive self-judgments a judge
// must have before its self-preference statistic is trusted.
const MinSelfJudgments = 10

// MinPositionJudgments is the minimum number of known-position judgments
// before the position-bias statistic is trusted.
const MinPositionJudgments = 20

// BiasDeadZone is the value biasDelta must exceed before a self-preference
// bias is strong enough to apply a correction; deltas at or below it
// (including every negative delta) are treated as noise rather than bias.
const BiasDeadZone = 0.05

// MinJudgeWeight floors every weight this package produces -- bias
// correction, judge-quality weight, and the composed finalWeight never go
// below it, so a judge is down-weighted but never fully silenced.
const MinJudgeWeight = 0.05

// Mode selects the quality signal the judge-quality WHR run scores votes
// against.
type Mode string

const (
	// ModeConsensus scores a judge's vote against the majority vote among
	// every judge who rated the same prompt/model-pair/stage.
	ModeConsensus Mode = "consensus"
	// ModeWriting scores a judge's vote against the writing dimension's
	// external Elo ratings for the two models being judged.
	ModeWriting Mode = "writing"
	// ModeFeedback scores against the feedback-giving dimension's ratings.
	ModeFeedback Mode = "feedback"
	// ModeRevised scores against the revised-writing dimension's ratings.
	ModeRevised Mode = "revised"
)
