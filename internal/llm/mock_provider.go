package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tommoa/writing-bench/pkg/types"
)

// call records one invocation for history/matching, tagged by which of the
// four produce methods made it.
type call struct {
	Kind       string // "sample", "feedback", "revision", "judgment"
	Model      string
	Prompt     types.Prompt
	SampleText string
	Feedback   string
	TextA      string
	TextB      string
}

// MockProvider implements Provider with configurable, scriptable responses
// for testing. Responses cycle by default; NewReplayJudgeProvider consumes
// judgments exactly once.
type MockProvider struct {
	mu sync.Mutex

	Samples   []Completion
	Feedbacks []Completion
	Revisions []Completion
	Judgments []JudgmentCompletion
	Errors    []error

	CallCount      int
	LastCall       *call
	RequestHistory []call

	ReplayMode       bool
	SimulatedLatency time.Duration

	// MatchJudgment, if set, takes priority over index-based selection for
	// ProduceJudgment calls -- returning nil falls through to the default.
	MatchJudgment func(prompt types.Prompt, textA, textB string) *JudgmentCompletion
}

// NewMockProvider creates a MockProvider cycling through the given
// per-stage responses and errors (errors apply to every call kind, indexed
// by overall call count).
func NewMockProvider(samples, feedbacks, revisions []Completion, judgments []JudgmentCompletion, errs []error) *MockProvider {
	return &MockProvider{Samples: samples, Feedbacks: feedbacks, Revisions: revisions, Judgments: judgments, Errors: errs}
}

// NewReplayJudgeProvider creates a MockProvider whose judgments are consumed
// exactly once in order -- useful for asserting an ensure-cascade issues the
// expected number of judge calls.
func NewReplayJudgeProvider(judgments []JudgmentCompletion) *MockProvider {
	return &MockProvider{Judgments: judgments, ReplayMode: true}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) sleep(ctx context.Context) error {
	m.mu.Lock()
	latency := m.SimulatedLatency
	m.mu.Unlock()
	if latency <= 0 {
		return nil
	}
	select {
	case <-time.After(latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockProvider) record(c call) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.CallCount
	m.CallCount++
	m.LastCall = &c
	m.RequestHistory = append(m.RequestHistory, c)
	if idx < len(m.Errors) && m.Errors[idx] != nil {
		return idx, m.Errors[idx]
	}
	return idx, nil
}

func (m *MockProvider) ProduceSample(ctx context.Context, model string, prompt types.Prompt) (Completion, error) {
	if err := m.sleep(ctx); err != nil {
		return Completion{}, err
	}
	idx, err := m.record(call{Kind: "sample", Model: model, Prompt: prompt})
	if err != nil {
		return Completion{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Samples) == 0 {
		return Completion{Text: fmt.Sprintf("mock sample for %s/%s", model, prompt.ID)}, nil
	}
	return m.Samples[idx%len(m.Samples)], nil
}

func (m *MockProvider) ProduceFeedback(ctx context.Context, model string, prompt types.Prompt, sampleText string) (Completion, error) {
	if err := m.sleep(ctx); err != nil {
		return Completion{}, err
	}
	idx, err := m.record(call{Kind: "feedback", Model: model, Prompt: prompt, SampleText: sampleText})
	if err != nil {
		return Completion{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Feedbacks) == 0 {
		return Completion{Text: fmt.Sprintf("mock feedback for %s/%s", model, prompt.ID)}, nil
	}
	return m.Feedbacks[idx%len(m.Feedbacks)], nil
}

func (m *MockProvider) ProduceRevision(ctx context.Context, model string, prompt types.Prompt, sampleText, feedbackText string) (Completion, error) {
	if err := m.sleep(ctx); err != nil {
		return Completion{}, err
	}
	idx, err := m.record(call{Kind: "revision", Model: model, Prompt: prompt, SampleText: sampleText, Feedback: feedbackText})
	if err != nil {
		return Completion{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Revisions) == 0 {
		return Completion{Text: fmt.Sprintf("mock revision for %s/%s", model, prompt.ID)}, nil
	}
	return m.Revisions[idx%len(m.Revisions)], nil
}

func (m *MockProvider) ProduceJudgment(ctx context.Context, model string, prompt types.Prompt, textA, textB string) (JudgmentCompletion, error) {
	if err := m.sleep(ctx); err != nil {
		return JudgmentCompletion{}, err
	}

	if m.MatchJudgment != nil {
		if resp := m.MatchJudgment(prompt, textA, textB); resp != nil {
			if _, err := m.record(call{Kind: "judgment", Model: model, Prompt: prompt, TextA: textA, TextB: textB}); err != nil {
				return JudgmentCompletion{}, err
			}
			return *resp, nil
		}
	}

	idx, err := m.record(call{Kind: "judgment", Model: model, Prompt: prompt, TextA: textA, TextB: textB})
	if err != nil {
		return JudgmentCompletion{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReplayMode {
		if idx >= len(m.Judgments) {
			return JudgmentCompletion{}, fmt.Errorf("mock provider: all %d judgments exhausted at call %d", len(m.Judgments), idx)
		}
		return m.Judgments[idx], nil
	}

	if len(m.Judgments) > 0 {
		return m.Judgments[idx%len(m.Judgments)], nil
	}
	return JudgmentCompletion{Winner: types.WinnerTie, Rationale: "default mock tie"}, nil
}

// GetCallCount returns the number of produce-* calls made so far, across all
// four kinds.
func (m *MockProvider) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// GetRequestHistory returns a copy of every recorded call.
func (m *MockProvider) GetRequestHistory() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]call(nil), m.RequestHistory...)
}
