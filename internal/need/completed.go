package need

import (
	"fmt"

	"github.com/tommoa/writing-bench/pkg/types"
)

// CompletedWork tracks what the pull loop has already resolved, so repeated
// need-identifier calls never re-propose the same judgment and never waste
// a candidate on a cascade that is already known to be unproducible.
type CompletedWork struct {
	Judgments        map[string]struct{}
	MissingSamples   map[string]struct{}
	MissingFeedback  map[string]struct{}
	MissingRevisions map[string]struct{}
	MissingJudgments map[string]struct{}
}

// NewCompletedWork returns an empty CompletedWork.
func NewCompletedWork() *CompletedWork {
	return &CompletedWork{
		Judgments:        make(map[string]struct{}),
		MissingSamples:   make(map[string]struct{}),
		MissingFeedback:  make(map[string]struct{}),
		MissingRevisions: make(map[string]struct{}),
		MissingJudgments: make(map[string]struct{}),
	}
}

// MarkJudgment records a completed judgment under its dedup key.
func (c *CompletedWork) MarkJudgment(stage, mA, mB, promptID, judgeLabel string, idxA, idxB int) {
	c.Judgments[JudgmentKey(stage, mA, mB, promptID, judgeLabel, idxA, idxB)] = struct{}{}
}

// HasJudgment reports whether a judgment under this key is already known.
func (c *CompletedWork) HasJudgment(stage, mA, mB, promptID, judgeLabel string, idxA, idxB int) bool {
	_, ok := c.Judgments[JudgmentKey(stage, mA, mB, promptID, judgeLabel, idxA, idxB)]
	return ok
}

// sampleKey, feedbackKey, and revisionKey are the keys used in the
// missing-artifact sets. They're keyed on (prompt, writer, ...model label,
// output index), not on cache id: at candidate-enumeration time no cache id
// exists yet for an unproduced artifact. The pull loop translates a cache
// miss that turns out to be unproducible (cacheOnly mode, or a prior
// failure) into one of these marks; providers are resolved one layer up.
func sampleKey(promptID, model string, idx int) string {
	return fmt.Sprintf("%s|%s|%d", promptID, model, idx)
}

func feedbackKey(promptID, writerModel, feedbackModel string, idx int) string {
	return fmt.Sprintf("%s|%s|%s|%d", promptID, writerModel, feedbackModel, idx)
}

func revisionKey(promptID, writerModel, feedbackModel string, idx int) string {
	return fmt.Sprintf("%s|%s|%s|%d", promptID, writerModel, feedbackModel, idx)
}

// MarkMissingSample, MarkMissingFeedback, and MarkMissingRevision record
// that an artifact does not exist and will not be producible this run.
func (c *CompletedWork) MarkMissingSample(promptID, model string, idx int) {
	c.MissingSamples[sampleKey(promptID, model, idx)] = struct{}{}
}

func (c *CompletedWork) MarkMissingFeedback(promptID, writerModel, feedbackModel string, idx int) {
	c.MissingFeedback[feedbackKey(promptID, writerModel, feedbackModel, idx)] = struct{}{}
}

func (c *CompletedWork) MarkMissingRevision(promptID, writerModel, feedbackModel string, idx int) {
	c.MissingRevisions[revisionKey(promptID, writerModel, feedbackModel, idx)] = struct{}{}
}

func (c *CompletedWork) IsSampleMissing(promptID, model string, idx int) bool {
	_, ok := c.MissingSamples[sampleKey(promptID, model, idx)]
	return ok
}

func (c *CompletedWork) IsFeedbackMissing(promptID, writerModel, feedbackModel string, idx int) bool {
	_, ok := c.MissingFeedback[feedbackKey(promptID, writerModel, feedbackModel, idx)]
	return ok
}

func (c *CompletedWork) IsRevisionMissing(promptID, writerModel, feedbackModel string, idx int) bool {
	_, ok := c.MissingRevisions[revisionKey(promptID, writerModel, feedbackModel, idx)]
	return ok
}

// unorderedPairKey is the key shape for missingJudgments: a pair is
// suppressed once every judge has failed to produce a result for it.
func unorderedPairKey(stage, mA, mB, promptID string, idxA, idxB int) string {
	lo, loIdx, hi, hiIdx := mA, idxA, mB, idxB
	if mB < mA {
		lo, loIdx, hi, hiIdx = mB, idxB, mA, idxA
	}
	return fmt.Sprintf("%s|%s:%d|%s:%d|%s", stage, lo, loIdx, hi, hiIdx, promptID)
}

// MarkMissingJudgment records that every judge has failed to produce a
// result for this unordered pair; further candidates are suppressed.
func (c *CompletedWork) MarkMissingJudgment(stage, mA, mB, promptID string, idxA, idxB int) {
	c.MissingJudgments[unorderedPairKey(stage, mA, mB, promptID, idxA, idxB)] = struct{}{}
}

func (c *CompletedWork) IsJudgmentMissing(stage, mA, mB, promptID string, idxA, idxB int) bool {
	_, ok := c.MissingJudgments[unorderedPairKey(stage, mA, mB, promptID, idxA, idxB)]
	return ok
}

// JudgmentKey builds the dedup key for one judgment. For initial and
// revised (symmetric stages), models are sorted and their indices swapped
// to match, so judgmentKey(stage, a, b, p, j, ia, ib) ==
// judgmentKey(stage, b, a, p, j, ib, ia). For improvement (asymmetric:
// modelA is the writer, modelB the feedback provider), models are left in
// call order and only idxA is meaningful.
func JudgmentKey(stage, mA, mB, promptID, judgeLabel string, idxA, idxB int) string {
	if stage == types.StageImprovement {
		return fmt.Sprintf("%s|%s|%s|%s|%s|%d", stage, mA, mB, promptID, judgeLabel, idxA)
	}
	a, ia, b, ib := mA, idxA, mB, idxB
	if mB < mA {
		a, ia, b, ib = mB, idxB, mA, idxA
	}
	return fmt.Sprintf("%s|%s:%d|%s:%d|%s|%s", stage, a, ia, b, ib, promptID, judgeLabel)
}
