package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tommoa/writing-bench/pkg/types"
)

func TestMockProviderCyclesSamples(t *testing.T) {
	samples := []Completion{{Text: "resp-0"}, {Text: "resp-1"}}
	p := NewMockProvider(samples, nil, nil, nil, nil)
	ctx := context.Background()
	prompt := types.Prompt{ID: "p1"}

	r0, err := p.ProduceSample(ctx, "mock-model", prompt)
	if err != nil {
		t.Fatalf("call 0: unexpected error: %v", err)
	}
	if r0.Text != "resp-0" {
		t.Errorf("call 0: got content %q, want %q", r0.Text, "resp-0")
	}

	r1, err := p.ProduceSample(ctx, "mock-model", prompt)
	if err != nil {
		t.Fatalf("call 1: unexpected error: %v", err)
	}
	if r1.Text != "resp-1" {
		t.Errorf("call 1: got content %q, want %q", r1.Text, "resp-1")
	}

	r2, err := p.ProduceSample(ctx, "mock-model", prompt)
	if err != nil {
		t.Fatalf("call 2: unexpected error: %v", err)
	}
	if r2.Text != "resp-0" {
		t.Errorf("call 2 (cycling): got content %q, want %q", r2.Text, "resp-0")
	}

	if p.GetCallCount() != 3 {
		t.Errorf("call count: got %d, want 3", p.GetCallCount())
	}
}

func TestMockProviderReplayJudgmentsExhaust(t *testing.T) {
	judgments := []JudgmentCompletion{
		{Winner: types.WinnerA, Rationale: "first"},
		{Winner: types.WinnerB, Rationale: "second"},
	}
	p := NewReplayJudgeProvider(judgments)
	ctx := context.Background()
	prompt := types.Prompt{ID: "p1"}

	r0, err := p.ProduceJudgment(ctx, "judge", prompt, "a", "b")
	if err != nil {
		t.Fatalf("call 0: unexpected error: %v", err)
	}
	if r0.Winner != types.WinnerA {
		t.Errorf("call 0: got %q, want %q", r0.Winner, types.WinnerA)
	}

	r1, err := p.ProduceJudgment(ctx, "judge", prompt, "a", "b")
	if err != nil {
		t.Fatalf("call 1: unexpected error: %v", err)
	}
	if r1.Winner != types.WinnerB {
		t.Errorf("call 1: got %q, want %q", r1.Winner, types.WinnerB)
	}

	if _, err := p.ProduceJudgment(ctx, "judge", prompt, "a", "b"); err == nil {
		t.Fatal("call 2: expected exhaustion error, got nil")
	}
}

func TestMockProviderRequestHistory(t *testing.T) {
	p := NewMockProvider(nil, nil, nil, nil, nil)
	ctx := context.Background()

	if _, err := p.ProduceSample(ctx, "model-a", types.Prompt{ID: "p0"}); err != nil {
		t.Fatalf("call 0: %v", err)
	}
	if _, err := p.ProduceSample(ctx, "model-b", types.Prompt{ID: "p1"}); err != nil {
		t.Fatalf("call 1: %v", err)
	}

	history := p.GetRequestHistory()
	if len(history) != 2 {
		t.Fatalf("history length: got %d, want 2", len(history))
	}
	if history[0].Model != "model-a" || history[0].Prompt.ID != "p0" {
		t.Errorf("history[0]: got %+v", history[0])
	}
	if history[1].Model != "model-b" || history[1].Prompt.ID != "p1" {
		t.Errorf("history[1]: got %+v", history[1])
	}

	// Verify it's a copy -- mutation does not affect internal state.
	history[0].Model = "mutated"
	fresh := p.GetRequestHistory()
	if fresh[0].Model != "model-a" {
		t.Errorf("GetRequestHistory returned reference, not copy")
	}
}

func TestMockProviderMatchJudgment(t *testing.T) {
	matched := JudgmentCompletion{Winner: types.WinnerB, Rationale: "matched"}
	p := NewMockProvider(nil, nil, nil, []JudgmentCompletion{{Winner: types.WinnerA, Rationale: "default"}}, nil)
	p.MatchJudgment = func(prompt types.Prompt, textA, textB string) *JudgmentCompletion {
		if textA == "trigger" {
			return &matched
		}
		return nil
	}

	ctx := context.Background()
	prompt := types.Prompt{ID: "p1"}

	r0, err := p.ProduceJudgment(ctx, "judge", prompt, "other", "b")
	if err != nil {
		t.Fatalf("call 0: %v", err)
	}
	if r0.Rationale != "default" {
		t.Errorf("call 0: got %q, want %q", r0.Rationale, "default")
	}

	r1, err := p.ProduceJudgment(ctx, "judge", prompt, "trigger", "b")
	if err != nil {
		t.Fatalf("call 1: %v", err)
	}
	if r1.Rationale != "matched" {
		t.Errorf("call 1: got %q, want %q", r1.Rationale, "matched")
	}
}

func TestMockProviderErrorPrecedesMatch(t *testing.T) {
	matched := JudgmentCompletion{Winner: types.WinnerB}
	expectedErr := errors.New("injected error")

	p := NewMockProvider(nil, nil, nil, nil, []error{expectedErr})
	p.MatchJudgment = func(_ types.Prompt, _, _ string) *JudgmentCompletion { return &matched }

	_, err := p.ProduceJudgment(context.Background(), "judge", types.Prompt{}, "a", "b")
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected injected error, got %v", err)
	}
}

func TestMockProviderSimulatedLatency(t *testing.T) {
	latency := 50 * time.Millisecond
	p := NewMockProvider(nil, nil, nil, nil, nil)
	p.SimulatedLatency = latency

	ctx := context.Background()
	start := time.Now()
	if _, err := p.ProduceSample(ctx, "mock-model", types.Prompt{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < latency {
		t.Errorf("elapsed %v < simulated latency %v", elapsed, latency)
	}
}

func TestMockProviderSimulatedLatencyContextCancel(t *testing.T) {
	p := NewMockProvider(nil, nil, nil, nil, nil)
	p.SimulatedLatency = 5 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.ProduceSample(ctx, "mock-model", types.Prompt{})
	if err == nil {
		t.Fatal("expected context cancellation error, got nil")
	}
}
