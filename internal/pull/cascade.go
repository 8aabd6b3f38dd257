package pull

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/tommoa/writing-bench/internal/bench"
	"github.com/tommoa/writing-bench/internal/cache"
	"github.com/tommoa/writing-bench/internal/llm"
	"github.com/tommoa/writing-bench/pkg/types"
)

func sampleSchedKey(promptID, label string, idx int) string {
	return fmt.Sprintf("sample|%s|%s|%d", promptID, label, idx)
}

func feedbackSchedKey(promptID, writerLabel, feedbackLabel string, idx int) string {
	return fmt.Sprintf("feedback|%s|%s|%s|%d", promptID, writerLabel, feedbackLabel, idx)
}

func revisionSchedKey(promptID, writerLabel, feedbackLabel string, idx int) string {
	return fmt.Sprintf("revision|%s|%s|%s|%d", promptID, writerLabel, feedbackLabel, idx)
}

func (l *Loop) resolveProvider(spec ModelSpec) (llm.Provider, error) {
	p, ok := l.providers[spec.Provider]
	if !ok {
		return nil, &bench.ErrMissingPrerequisite{Kind: "provider", Key: spec.Provider}
	}
	return p, nil
}

// ensureSample returns the cached or freshly-produced initial sample for
// (spec, prompt, idx). On a cache miss in cache-only mode, it marks the
// sample permanently missing and returns ErrMissingPrerequisite so callers
// higher in the cascade know not to retry this side.
func (l *Loop) ensureSample(ctx context.Context, spec ModelSpec, prompt types.Prompt, idx int) (types.Sample, error) {
	promptHash := cache.PromptContentHash(prompt.Text)

	if !l.cfg.NoCache {
		if s, ok := l.cache.GetSample(promptHash, spec.Provider, spec.Model, idx); ok {
			l.recordSample(s, spec.Label)
			return s, nil
		}
	}

	if l.cfg.CacheOnly {
		l.work.MarkMissingSample(prompt.ID, spec.Label, idx)
		return types.Sample{}, &bench.ErrMissingPrerequisite{Kind: "sample", Key: sampleSchedKey(prompt.ID, spec.Label, idx)}
	}

	key := sampleSchedKey(prompt.ID, spec.Label, idx)
	v, err, _ := l.sf.Do(key, func() (any, error) {
		provider, err := l.resolveProvider(spec)
		if err != nil {
			return nil, err
		}
		res, err := l.retrier.Do(ctx, func(ctx context.Context) (any, error) {
			return provider.ProduceSample(ctx, spec.Model, prompt)
		})
		if err != nil {
			return nil, err
		}
		c := res.(llm.Completion)
		sample := types.Sample{
			Model: spec.Label, PromptID: prompt.ID, OutputIndex: idx, Stage: types.StageInitial,
			Text: c.Text, Usage: c.Usage, LatencyMS: c.LatencyMS,
		}
		return l.cache.PutSample(promptHash, spec.Provider, spec.Model, idx, sample)
	})
	if err != nil {
		if !l.cfg.CacheOnly {
			l.work.MarkMissingSample(prompt.ID, spec.Label, idx)
		}
		return types.Sample{}, err
	}
	sample := v.(types.Sample)
	l.recordSample(sample, spec.Label)
	return sample, nil
}

// ensureFeedback returns the cached or freshly-produced feedback that
// feedbackSpec gives on a sample written by writerSpec, ensuring the
// sample itself first.
func (l *Loop) ensureFeedback(ctx context.Context, writerSpec, feedbackSpec ModelSpec, prompt types.Prompt, idx int) (types.Sample, types.Feedback, error) {
	original, err := l.ensureSample(ctx, writerSpec, prompt, idx)
	if err != nil {
		return types.Sample{}, types.Feedback{}, err
	}

	if !l.cfg.NoCache {
		if fb, ok := l.cache.GetFeedback(original.CacheID, feedbackSpec.Provider, feedbackSpec.Model); ok {
			return original, fb, nil
		}
	}

	if l.cfg.CacheOnly {
		l.work.MarkMissingFeedback(prompt.ID, writerSpec.Label, feedbackSpec.Label, idx)
		return types.Sample{}, types.Feedback{}, &bench.ErrMissingPrerequisite{Kind: "feedback", Key: feedbackSchedKey(prompt.ID, writerSpec.Label, feedbackSpec.Label, idx)}
	}

	key := feedbackSchedKey(prompt.ID, writerSpec.Label, feedbackSpec.Label, idx)
	v, err, _ := l.sf.Do(key, func() (any, error) {
		provider, err := l.resolveProvider(feedbackSpec)
		if err != nil {
			return nil, err
		}
		res, err := l.retrier.Do(ctx, func(ctx context.Context) (any, error) {
			return provider.ProduceFeedback(ctx, feedbackSpec.Model, prompt, original.Text)
		})
		if err != nil {
			return nil, err
		}
		c := res.(llm.Completion)
		fb := types.Feedback{Text: c.Text, Usage: c.Usage, LatencyMS: c.LatencyMS}
		return l.cache.PutFeedback(original.CacheID, feedbackSpec.Provider, feedbackSpec.Model, fb)
	})
	if err != nil {
		if !l.cfg.CacheOnly {
			l.work.MarkMissingFeedback(prompt.ID, writerSpec.Label, feedbackSpec.Label, idx)
		}
		return types.Sample{}, types.Feedback{}, err
	}
	return original, v.(types.Feedback), nil
}

// ensureRevision returns the cached or freshly-produced revision writerSpec
// makes of its own sample after reading feedbackSpec's critique, ensuring
// the sample and feedback first.
func (l *Loop) ensureRevision(ctx context.Context, writerSpec, feedbackSpec ModelSpec, prompt types.Prompt, idx int) (types.Sample, types.Sample, error) {
	original, fb, err := l.ensureFeedback(ctx, writerSpec, feedbackSpec, prompt, idx)
	if err != nil {
		return types.Sample{}, types.Sample{}, err
	}

	if !l.cfg.NoCache {
		if rev, ok := l.cache.GetRevision(fb.CacheID, writerSpec.Provider, writerSpec.Model); ok {
			l.recordRevision(rev, writerSpec.Label, original.CacheID, feedbackSpec.Label)
			return original, rev, nil
		}
	}

	if l.cfg.CacheOnly {
		l.work.MarkMissingRevision(prompt.ID, writerSpec.Label, feedbackSpec.Label, idx)
		return types.Sample{}, types.Sample{}, &bench.ErrMissingPrerequisite{Kind: "revision", Key: revisionSchedKey(prompt.ID, writerSpec.Label, feedbackSpec.Label, idx)}
	}

	key := revisionSchedKey(prompt.ID, writerSpec.Label, feedbackSpec.Label, idx)
	v, err, _ := l.sf.Do(key, func() (any, error) {
		provider, err := l.resolveProvider(writerSpec)
		if err != nil {
			return nil, err
		}
		res, err := l.retrier.Do(ctx, func(ctx context.Context) (any, error) {
			return provider.ProduceRevision(ctx, writerSpec.Model, prompt, original.Text, fb.Text)
		})
		if err != nil {
			return nil, err
		}
		c := res.(llm.Completion)
		rev := types.Sample{Text: c.Text, Usage: c.Usage, LatencyMS: c.LatencyMS}
		return l.cache.PutRevision(original.CacheID, fb.CacheID, writerSpec.Provider, writerSpec.Model, rev)
	})
	if err != nil {
		if !l.cfg.CacheOnly {
			l.work.MarkMissingRevision(prompt.ID, writerSpec.Label, feedbackSpec.Label, idx)
		}
		return types.Sample{}, types.Sample{}, err
	}
	rev := v.(types.Sample)
	l.recordRevision(rev, writerSpec.Label, original.CacheID, feedbackSpec.Label)
	return original, rev, nil
}

// cascadeSides resolves the two samples a judgment compares, per stage,
// returning both their cache ids (for cache lookup/storage) and their text
// (for presentation to the judge).
func (l *Loop) cascadeSides(ctx context.Context, n needShape) (cidA, textA, cidB, textB string, err error) {
	switch n.Stage {
	case types.StageInitial:
		specA, specB := l.specByLabel[n.ModelA], l.specByLabel[n.ModelB]
		sa, err := l.ensureSample(ctx, specA, n.Prompt, n.OutputIndexA)
		if err != nil {
			return "", "", "", "", err
		}
		sb, err := l.ensureSample(ctx, specB, n.Prompt, n.OutputIndexB)
		if err != nil {
			return "", "", "", "", err
		}
		return sa.CacheID, sa.Text, sb.CacheID, sb.Text, nil

	case types.StageImprovement:
		writer, feedbackModel := l.specByLabel[n.ModelA], l.specByLabel[n.ModelB]
		original, revision, err := l.ensureRevision(ctx, writer, feedbackModel, n.Prompt, n.OutputIndexA)
		if err != nil {
			return "", "", "", "", err
		}
		return original.CacheID, original.Text, revision.CacheID, revision.Text, nil

	case types.StageRevised:
		specA, specB := l.specByLabel[n.ModelA], l.specByLabel[n.ModelB]
		feedbackSpec := l.specByLabel[n.FeedbackModel]
		_, revA, err := l.ensureRevision(ctx, specA, feedbackSpec, n.Prompt, n.OutputIndexA)
		if err != nil {
			return "", "", "", "", err
		}
		_, revB, err := l.ensureRevision(ctx, specB, feedbackSpec, n.Prompt, n.OutputIndexB)
		if err != nil {
			return "", "", "", "", err
		}
		return revA.CacheID, revA.Text, revB.CacheID, revB.Text, nil

	default:
		return "", "", "", "", &bench.ErrInternal{Detail: "unknown stage " + n.Stage}
	}
}

// needShape is the subset of need.Need the cascade needs, plus the
// resolved prompt -- kept separate from need.Need so this package does not
// need to import it just to shuttle a prompt alongside a stage.
type needShape struct {
	Stage         string
	Prompt        types.Prompt
	ModelA        string
	ModelB        string
	OutputIndexA  int
	OutputIndexB  int
	FeedbackModel string
}

// ensureJudgment produces or retrieves the judgment for n, randomizing
// presentation order to combat position bias and correcting the winner
// back to canonical A/B orientation before storing and recording it.
func (l *Loop) ensureJudgment(ctx context.Context, judgeLabel string, n needShape) error {
	cidA, textA, cidB, textB, err := l.cascadeSides(ctx, n)
	if err != nil {
		return err
	}

	judgeSpec := l.specByLabel[judgeLabel]

	if !l.cfg.NoCache {
		if j, ok := l.cache.GetJudgment(judgeSpec.Provider, judgeSpec.Model, n.Stage, cidA, cidB); ok {
			l.recordJudgment(j)
			return nil
		}
	}

	if l.cfg.CacheOnly {
		return &bench.ErrMissingPrerequisite{Kind: "judgment", Key: n.Stage + "|" + cidA + "|" + cidB + "|" + judgeLabel}
	}

	flip := rand.IntN(2) == 1
	presentedA, presentedB := textA, textB
	if flip {
		presentedA, presentedB = textB, textA
	}

	res, err := l.retrier.Do(ctx, func(ctx context.Context) (any, error) {
		provider, err := l.resolveProvider(judgeSpec)
		if err != nil {
			return nil, err
		}
		completion, err := provider.ProduceJudgment(ctx, judgeSpec.Model, n.Prompt, presentedA, presentedB)
		if err != nil {
			return nil, err
		}
		if completion.Winner != types.WinnerA && completion.Winner != types.WinnerB && completion.Winner != types.WinnerTie {
			return nil, &bench.ErrMalformedOutput{Model: judgeSpec.Model, Cause: fmt.Errorf("unrecognized winner %q", completion.Winner)}
		}
		return completion, nil
	})
	if err != nil {
		return err
	}
	completion := res.(llm.JudgmentCompletion)

	winner := completion.Winner
	if flip {
		switch winner {
		case types.WinnerA:
			winner = types.WinnerB
		case types.WinnerB:
			winner = types.WinnerA
		}
	}

	j := types.Judgment{
		JudgmentID:      cache.NewCacheID(),
		JudgeModel:      judgeLabel,
		PromptID:        n.Prompt.ID,
		SampleA:         cidA,
		SampleB:         cidB,
		Winner:          winner,
		Rationale:       completion.Rationale,
		Stage:           n.Stage,
		PositionSwapped: &flip,
		Usage:           completion.Usage,
		LatencyMS:       completion.LatencyMS,
	}

	stored, err := l.cache.PutJudgment(judgeSpec.Provider, judgeSpec.Model, n.Stage, cidA, cidB, j)
	if err != nil {
		return err
	}
	l.recordJudgment(stored)
	return nil
}
