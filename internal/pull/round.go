package pull

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tommoa/writing-bench/internal/bench"
	"github.com/tommoa/writing-bench/internal/cache"
	"github.com/tommoa/writing-bench/internal/need"
	"github.com/tommoa/writing-bench/internal/retryclass"
	"github.com/tommoa/writing-bench/internal/whr"
	"github.com/tommoa/writing-bench/pkg/types"
)

// RoundStats summarizes one round's batch execution, returned in Report for
// callers building progress output.
type RoundStats struct {
	Round           int
	BatchSize       int
	Succeeded       int
	Failed          int
	OutputsPerModel int
}

// Report is Run's final result: the terminal reason the loop stopped, the
// per-round history, and the completed-work bookkeeping a caller can
// inspect or persist.
type Report struct {
	Rounds        []RoundStats
	StopReason    string
	Converged     bool
	CompletedWork *need.CompletedWork
	Writing       *whr.Result
	Feedback      *whr.Result
	Revised       *whr.Result
}

const (
	stopConverged   = "converged"
	stopMaxRounds   = "max_rounds"
	stopEmptyBatch  = "empty_batch"
	stopStalled     = "stalled"
	stopInterrupted = "interrupted"
)

// Interrupt requests the loop stop at the next opportunity between tasks;
// in-flight tasks still complete, but no new round begins.
func (l *Loop) Interrupt() {
	l.mu.Lock()
	l.interrupted = true
	l.mu.Unlock()
}

func (l *Loop) isInterrupted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.interrupted
}

// seed walks the cache graph for every configured writer, feedback model,
// and judge, pre-populating the loop's in-memory bookkeeping (completed
// judgments, sample/revision provenance) from artifacts a prior run already
// produced, so the first round does not waste candidates re-requesting
// work that is already cached.
func (l *Loop) seed() {
	for _, writer := range l.cfg.Writers {
		for _, prompt := range l.cfg.Prompts {
			promptHash := cache.PromptContentHash(prompt.Text)
			for _, idx := range l.cache.ListSampleIndices(promptHash, writer.Provider, writer.Model) {
				if s, ok := l.cache.GetSample(promptHash, writer.Provider, writer.Model, idx); ok {
					l.recordSample(s, writer.Label)
				}
			}
		}
	}

	for _, feedbackSpec := range l.cfg.feedbackModels() {
		for _, sourceCacheID := range l.cache.ListFeedbackTargets(feedbackSpec.Provider, feedbackSpec.Model) {
			fb, ok := l.cache.GetFeedback(sourceCacheID, feedbackSpec.Provider, feedbackSpec.Model)
			if !ok {
				continue
			}
			for _, writer := range l.cfg.Writers {
				rev, ok := l.cache.GetRevision(fb.CacheID, writer.Provider, writer.Model)
				if !ok {
					continue
				}
				l.recordRevision(rev, writer.Label, sourceCacheID, feedbackSpec.Label)
			}
		}
	}

	for _, judge := range l.cfg.judges() {
		for _, j := range l.cache.ListJudgments(judge.Provider, judge.Model) {
			l.recordJudgment(j)
			key := l.judgmentWorkPromptID(j.Stage, j.PromptID)
			modelA, modelB := l.sampleToModel[j.SampleA], l.sampleToModel[j.SampleB]
			if modelA == "" || modelB == "" {
				continue
			}
			l.work.MarkJudgment(j.Stage, modelA, modelB, key, j.JudgeModel, 0, 0)
		}
	}
}

// judgmentWorkPromptID returns the promptID key used by need.CompletedWork's
// judgment dedup maps: revised-stage keys fold the feedback provider into
// the promptId since revisedCandidates does the same, but a seeded
// cache.Store judgment record doesn't retain which feedback model it used
// once it's just a Stage+PromptID+samples tuple, so revised-stage seeding
// only has the plain promptID to key on. This under-seeds (a resumed run
// may re-propose a handful of already-answered revised judgments once) but
// never over-suppresses, which is the safe direction to err in.
func (l *Loop) judgmentWorkPromptID(stage, promptID string) string {
	return promptID
}

// needWorkPromptID mirrors revisedCandidates' judgmentPromptID construction
// for Need values produced by need.Identify, so MarkJudgment/MarkMissingJudgment
// calls made after a live ensureJudgment stay keyed the same way the need
// identifier itself looks them up.
func needWorkPromptID(n need.Need) string {
	if n.Stage == types.StageRevised {
		return n.PromptID + ":" + n.FeedbackModel
	}
	return n.PromptID
}

// computeOutputsPerModel implements the adaptive outputs-per-model rule:
// min(cap, max(round, 1 + the highest output index observed so far for any
// writer on any prompt)). The round term drives steady growth -- each round
// unlocks one more output index to sample at, so pairs that stay
// unresolved keep getting fresh material -- while the observed-index term
// lets a resumed run pick up past a prior run's depth immediately instead
// of re-growing from 1. A cap of 0 means uncapped.
func (l *Loop) computeOutputsPerModel(round int) int {
	maxIdx := -1
	for _, writer := range l.cfg.Writers {
		for _, prompt := range l.cfg.Prompts {
			promptHash := cache.PromptContentHash(prompt.Text)
			for _, idx := range l.cache.ListSampleIndices(promptHash, writer.Provider, writer.Model) {
				if idx > maxIdx {
					maxIdx = idx
				}
			}
		}
	}
	n := maxIdx + 1
	if round > n {
		n = round
	}
	if l.cfg.OutputsPerModelCap > 0 && n > l.cfg.OutputsPerModelCap {
		n = l.cfg.OutputsPerModelCap
	}
	if n < 1 {
		n = 1
	}
	return n
}

func labels(specs []ModelSpec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.Label
	}
	return out
}

func promptIDs(prompts []types.Prompt) []string {
	out := make([]string, len(prompts))
	for i, p := range prompts {
		out[i] = p.ID
	}
	return out
}

// Run executes rounds until the rating dimensions converge, maxRounds is
// reached, a round proposes an empty batch, growth stalls (a round adds no
// new judgment despite a non-empty batch, meaning every candidate failed),
// or Interrupt is called.
func (l *Loop) Run(ctx context.Context) (*Report, error) {
	if !l.cfg.SkipSeeding {
		l.seed()
	}

	report := &Report{CompletedWork: l.work}
	maxRounds := l.cfg.NeedConfig.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 50
	}

	for round := 1; round <= maxRounds; round++ {
		if l.isInterrupted() {
			report.StopReason = stopInterrupted
			break
		}

		writing, feedback, revised, _, err := l.Ratings()
		if err != nil {
			return report, err
		}
		report.Writing, report.Feedback, report.Revised = writing, feedback, revised

		if need.IsConverged(l.cfg.NeedConfig, writing.Ratings, feedback.Ratings, revised.Ratings) {
			report.Converged = true
			report.StopReason = stopConverged
			break
		}

		outputsPerModel := l.computeOutputsPerModel(round)
		batch := need.Identify(l.cfg.NeedConfig, l.work, need.Inputs{
			Writing:         writing.Ratings,
			Feedback:        feedback.Ratings,
			Revised:         revised.Ratings,
			Models:          labels(l.cfg.Writers),
			FeedbackModels:  labels(l.cfg.feedbackModels()),
			Judges:          labels(l.cfg.Judges),
			Prompts:         promptIDs(l.cfg.Prompts),
			OutputsPerModel: outputsPerModel,
			BatchSize:       l.batchSize(),
		})

		if len(batch) == 0 {
			report.StopReason = stopEmptyBatch
			break
		}

		before := len(l.Judgments())
		succeeded, failed := l.runBatch(ctx, batch)
		after := len(l.Judgments())

		report.Rounds = append(report.Rounds, RoundStats{
			Round: round, BatchSize: len(batch), Succeeded: succeeded, Failed: failed, OutputsPerModel: outputsPerModel,
		})

		if l.logger != nil {
			l.logger.Info("pull round complete", "round", round, "batch_size", len(batch), "succeeded", succeeded, "failed", failed)
		}

		if after == before {
			report.StopReason = stopStalled
			break
		}
	}

	if report.StopReason == "" {
		report.StopReason = stopMaxRounds
	}
	return report, nil
}

func (l *Loop) batchSize() int {
	if l.cfg.BatchSize > 0 {
		return l.cfg.BatchSize
	}
	return 32
}

// runBatch dispatches batch with bounded concurrency, tripping the circuit
// breaker per-model on provider error and recording which candidates in
// the batch failed so stall detection and judgment-missing propagation can
// see them.
func (l *Loop) runBatch(ctx context.Context, batch []need.Need) (succeeded, failed int) {
	l.breaker.ResetBatch()

	concurrency := l.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	var mu sync.Mutex
	var okCount, failCount int
	pairFailures := make(map[string]map[string]bool)
	pairSucceeded := make(map[string]bool)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, n := range batch {
		n := n
		g.Go(func() error {
			if l.isInterrupted() {
				return nil
			}
			if !l.breaker.Allowed(n.ModelA) || !l.breaker.Allowed(n.ModelB) || !l.breaker.Allowed(n.JudgeModel) {
				mu.Lock()
				failCount++
				mu.Unlock()
				return nil
			}

			prompt, ok := l.promptByID[n.PromptID]
			if !ok {
				mu.Lock()
				failCount++
				mu.Unlock()
				return nil
			}

			shape := needShape{
				Stage: n.Stage, Prompt: prompt, ModelA: n.ModelA, ModelB: n.ModelB,
				OutputIndexA: n.OutputIndexA, OutputIndexB: n.OutputIndexB, FeedbackModel: n.FeedbackModel,
			}

			err := l.ensureJudgment(gctx, n.JudgeModel, shape)

			pairKey := n.Stage + "|" + n.ModelA + "|" + n.ModelB + "|" + n.PromptID
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failCount++
				var pe *bench.ErrProvider
				if errors.As(err, &pe) {
					l.breaker.Trip(pe.Model)
				}
				if pairFailures[pairKey] == nil {
					pairFailures[pairKey] = make(map[string]bool)
				}
				pairFailures[pairKey][n.JudgeModel] = true
				return nil
			}
			okCount++
			pairSucceeded[pairKey] = true
			l.work.MarkJudgment(n.Stage, n.ModelA, n.ModelB, needWorkPromptID(n), n.JudgeModel, n.OutputIndexA, n.OutputIndexB)
			return nil
		})
	}
	_ = g.Wait()

	judges := l.cfg.judges()
	for _, n := range batch {
		pairKey := n.Stage + "|" + n.ModelA + "|" + n.ModelB + "|" + n.PromptID
		if pairSucceeded[pairKey] {
			continue
		}
		failedJudges := pairFailures[pairKey]
		if len(failedJudges) < len(judges) {
			continue
		}
		allFailed := true
		for _, j := range judges {
			if !failedJudges[j.Label] {
				allFailed = false
				break
			}
		}
		if allFailed {
			l.work.MarkMissingJudgment(n.Stage, n.ModelA, n.ModelB, needWorkPromptID(n), n.OutputIndexA, n.OutputIndexB)
		}
	}

	return okCount, failCount
}

// Retrier returns the retrier every ensure* call in the loop runs its
// provider calls through.
func (l *Loop) Retrier() *retryclass.Retrier { return l.retrier }
