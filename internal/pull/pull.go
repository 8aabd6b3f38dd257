// Package pull drives the cascade that turns a batch of candidate needs
// (from internal/need) into cached judgments: producing whatever samples,
// feedback, and revisions a judgment depends on, calling out to providers
// only on a cache miss, deduplicating in-flight work across concurrent
// tasks, tripping a per-model circuit breaker on provider failure, and
// feeding the resulting judgments back through internal/judgequality and
// internal/whr to decide what to pull next.
package pull

import (
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/tommoa/writing-bench/internal/cache"
	"github.com/tommoa/writing-bench/internal/judgequality"
	"github.com/tommoa/writing-bench/internal/llm"
	"github.com/tommoa/writing-bench/internal/need"
	"github.com/tommoa/writing-bench/internal/retryclass"
	"github.com/tommoa/writing-bench/internal/whr"
	"github.com/tommoa/writing-bench/pkg/types"
)

// ModelSpec names one rating participant: Label is the identity it is
// scored under (what shows up in whr games and need candidates); Provider
// and Model address the llm.Provider registry entry that serves it.
type ModelSpec struct {
	Label    string
	Provider string
	Model    string
}

// RunConfig bundles everything one convergence run needs: who writes,
// gives feedback, and judges, the prompt set, and the knobs controlling
// cascade behavior.
type RunConfig struct {
	Writers        []ModelSpec
	FeedbackModels []ModelSpec // defaults to Writers when empty
	Judges         []ModelSpec // defaults to Writers when empty

	Prompts []types.Prompt

	NeedConfig    need.Config
	QualityConfig judgequality.Config

	// Concurrency bounds simultaneous in-flight tasks per batch.
	Concurrency int
	// BatchSize bounds how many candidates need.Identify returns per
	// round; 0 defaults to 32.
	BatchSize int
	// OutputsPerModelCap bounds how far the adaptive outputs-per-model
	// count can grow; 0 means uncapped.
	OutputsPerModelCap int

	// CacheOnly forbids any provider call: a cache miss is recorded as
	// permanently missing instead of being produced.
	CacheOnly bool
	// NoCache forces every ensure* call to bypass the cache read (writes
	// still land, so reruns with NoCache off see them).
	NoCache bool
	// SkipSeeding skips the initial cache-graph walk that pre-populates
	// CompletedWork from artifacts already on disk.
	SkipSeeding bool
}

func (c RunConfig) feedbackModels() []ModelSpec {
	if len(c.FeedbackModels) > 0 {
		return c.FeedbackModels
	}
	return c.Writers
}

func (c RunConfig) judges() []ModelSpec {
	if len(c.Judges) > 0 {
		return c.Judges
	}
	return c.Writers
}

// Loop is one convergence run: it owns the cache, the provider registry,
// and the accumulated judgment history that ratings are computed from.
type Loop struct {
	cache     *cache.Store
	providers map[string]llm.Provider
	retrier   *retryclass.Retrier
	breaker   *CircuitBreaker
	logger    *slog.Logger
	cfg       RunConfig

	sf singleflight.Group

	specByLabel map[string]ModelSpec
	promptByID  map[string]types.Prompt

	mu                       sync.Mutex
	work                     *need.CompletedWork
	judgments                []types.Judgment
	sampleToModel            map[string]string
	sampleToOriginal         map[string]string
	sampleToFeedbackProvider map[string]string
	interrupted              bool
}

// NewLoop constructs a Loop ready to Run. providers is keyed by
// ModelSpec.Provider; every ModelSpec in cfg must resolve to an entry in it
// or ensure* calls fail with ErrMissingPrerequisite.
func NewLoop(store *cache.Store, providers map[string]llm.Provider, cfg RunConfig, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	specByLabel := make(map[string]ModelSpec)
	for _, s := range cfg.Writers {
		specByLabel[s.Label] = s
	}
	for _, s := range cfg.feedbackModels() {
		specByLabel[s.Label] = s
	}
	for _, s := range cfg.judges() {
		specByLabel[s.Label] = s
	}
	promptByID := make(map[string]types.Prompt, len(cfg.Prompts))
	for _, p := range cfg.Prompts {
		promptByID[p.ID] = p
	}
	return &Loop{
		cache:                    store,
		providers:                providers,
		retrier:                  retryclass.NewRetrier(),
		breaker:                  NewCircuitBreaker(),
		logger:                   logger,
		cfg:                      cfg,
		specByLabel:              specByLabel,
		promptByID:               promptByID,
		work:                     need.NewCompletedWork(),
		sampleToModel:            make(map[string]string),
		sampleToOriginal:         make(map[string]string),
		sampleToFeedbackProvider: make(map[string]string),
	}
}

func (l *Loop) recordSample(s types.Sample, label string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sampleToModel[s.CacheID] = label
}

func (l *Loop) recordRevision(rev types.Sample, writerLabel, originalCacheID, feedbackModelLabel string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sampleToModel[rev.CacheID] = writerLabel
	l.sampleToOriginal[rev.CacheID] = originalCacheID
	l.sampleToFeedbackProvider[rev.CacheID] = feedbackModelLabel
}

func (l *Loop) recordJudgment(j types.Judgment) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.judgments {
		if j.JudgmentID != "" && existing.JudgmentID == j.JudgmentID {
			return
		}
	}
	l.judgments = append(l.judgments, j)
}

// Judgments returns every judgment accumulated so far (seeded plus pulled).
func (l *Loop) Judgments() []types.Judgment {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]types.Judgment(nil), l.judgments...)
}

// sampleToModelSnapshot returns a copy of the cacheId -> model label map
// built up by every ensure* call so far, for feeding whr.JudgmentsToGames.
func (l *Loop) sampleToModelSnapshot() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]string, len(l.sampleToModel))
	for k, v := range l.sampleToModel {
		out[k] = v
	}
	return out
}

// Ratings recomputes the three rating dimensions from every judgment
// accumulated so far, running the judge-quality layer first to derive
// per-judgment weights.
func (l *Loop) Ratings() (writing, feedback, revised *whr.Result, jq *judgequality.Result, err error) {
	judgments := l.Judgments()
	sampleToModel := l.sampleToModelSnapshot()

	writingGames := whr.JudgmentsToGames(filterStage(judgments, types.StageInitial), sampleToModel, nil)
	writingResult, err := whr.Compute(writingGames)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	dimensionRatings := map[string]whr.PlayerRating{}
	if writingResult != nil {
		dimensionRatings = writingResult.Ratings
	}

	jq, err = judgequality.Compute(l.cfg.QualityConfig, judgments, sampleToModel, dimensionRatings)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	writingGames = judgequality.GamesFromJudgments(filterStage(judgments, types.StageInitial), sampleToModel, jq.FinalWeights)
	writingResult, err = whr.Compute(writingGames)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	revisedGames := judgequality.GamesFromJudgments(filterStage(judgments, types.StageRevised), sampleToModel, jq.FinalWeights)
	revisedResult, err := whr.Compute(revisedGames)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	l.mu.Lock()
	sampleToOriginal := copyStrMap(l.sampleToOriginal)
	sampleToFeedbackProvider := copyStrMap(l.sampleToFeedbackProvider)
	l.mu.Unlock()

	judgeWeights := judgequality.AverageJudgeWeights(jq.FinalWeights, judgments)
	feedbackGames := whr.ImprovementJudgmentsToGames(
		filterStage(judgments, types.StageImprovement),
		sampleToModel, sampleToOriginal, sampleToFeedbackProvider,
		judgeWeights,
	)
	feedbackResult, err := whr.Compute(feedbackGames)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return writingResult, feedbackResult, revisedResult, jq, nil
}

// WritingRecords and FeedbackRecords expose the accumulated judgments as
// PairwiseRecord sets, for a caller merging them into internal/store's
// cumulative cross-run history. The games are built with the same
// judge-quality weights Ratings uses, but whr.GamesToRecords counts each
// game once, so the records carry unweighted win/loss/tie counts.
func (l *Loop) WritingRecords() []types.PairwiseRecord {
	judgments := l.Judgments()
	sampleToModel := l.sampleToModelSnapshot()
	jq, err := judgequality.Compute(l.cfg.QualityConfig, judgments, sampleToModel, nil)
	if err != nil {
		return nil
	}
	games := judgequality.GamesFromJudgments(filterStage(judgments, types.StageInitial), sampleToModel, jq.FinalWeights)
	return whr.GamesToRecords(games)
}

func (l *Loop) FeedbackRecords() []types.PairwiseRecord {
	judgments := l.Judgments()
	sampleToModel := l.sampleToModelSnapshot()
	l.mu.Lock()
	sampleToOriginal := copyStrMap(l.sampleToOriginal)
	sampleToFeedbackProvider := copyStrMap(l.sampleToFeedbackProvider)
	l.mu.Unlock()

	jq, err := judgequality.Compute(l.cfg.QualityConfig, judgments, sampleToModel, nil)
	if err != nil {
		return nil
	}
	judgeWeights := judgequality.AverageJudgeWeights(jq.FinalWeights, judgments)
	games := whr.ImprovementJudgmentsToGames(
		filterStage(judgments, types.StageImprovement),
		sampleToModel, sampleToOriginal, sampleToFeedbackProvider,
		judgeWeights,
	)
	return whr.GamesToRecords(games)
}

// WritingRecordsByTag splits WritingRecords' same bias-weighted games by
// every tag on the prompt each judgment belongs to, for internal/store's
// per-tag rating slices. A prompt with no tags contributes to no tag
// bucket; a prompt with several tags contributes to each.
func (l *Loop) WritingRecordsByTag() map[string][]types.PairwiseRecord {
	judgments := l.Judgments()
	sampleToModel := l.sampleToModelSnapshot()
	jq, err := judgequality.Compute(l.cfg.QualityConfig, judgments, sampleToModel, nil)
	if err != nil {
		return nil
	}

	byTag := make(map[string][]types.Judgment)
	for _, j := range filterStage(judgments, types.StageInitial) {
		prompt, ok := l.promptByID[j.PromptID]
		if !ok {
			continue
		}
		for _, tag := range prompt.Tags {
			byTag[tag] = append(byTag[tag], j)
		}
	}

	out := make(map[string][]types.PairwiseRecord, len(byTag))
	for tag, tagJudgments := range byTag {
		games := judgequality.GamesFromJudgments(tagJudgments, sampleToModel, jq.FinalWeights)
		out[tag] = whr.GamesToRecords(games)
	}
	return out
}

func filterStage(judgments []types.Judgment, stage string) []types.Judgment {
	out := make([]types.Judgment, 0, len(judgments))
	for _, j := range judgments {
		if j.Stage == stage {
			out = append(out, j)
		}
	}
	return out
}

func copyStrMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
