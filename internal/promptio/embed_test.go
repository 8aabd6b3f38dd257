package promptio_test

import (
	"context"
	"testing"

	"github.com/tommoa/writing-bench/internal/promptio"
	"github.com/tommoa/writing-bench/pkg/types"
)

type fakeEmbedder struct {
	vecs map[string][]float32
}

func (f *fakeEmbedder) Model() string { return "fake" }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return f.vecs[text], nil
}

func TestCosineSimilarity(t *testing.T) {
	sim, err := promptio.CosineSimilarity([]float32{1, 0}, []float32{1, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sim < 0.999 {
		t.Errorf("expected ~1.0 for identical vectors, got %v", sim)
	}

	sim, err = promptio.CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sim > 0.001 {
		t.Errorf("expected ~0.0 for orthogonal vectors, got %v", sim)
	}
}

func TestCosineSimilarity_LengthMismatch(t *testing.T) {
	if _, err := promptio.CosineSimilarity([]float32{1}, []float32{1, 0}); err != promptio.ErrLengthMismatch {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestDetectNearDuplicates(t *testing.T) {
	prompts := []types.Prompt{
		{ID: "a", Text: "write a poem about the sea"},
		{ID: "b", Text: "write a poem about the ocean"},
		{ID: "c", Text: "summarize this legal contract"},
	}
	e := &fakeEmbedder{vecs: map[string][]float32{
		"write a poem about the sea":    {1, 0, 0},
		"write a poem about the ocean":  {0.999, 0.01, 0},
		"summarize this legal contract": {0, 0, 1},
	}}

	pairs, err := promptio.DetectNearDuplicates(context.Background(), e, prompts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 near-duplicate pair, got %d: %+v", len(pairs), pairs)
	}
	if pairs[0].IDA != "a" || pairs[0].IDB != "b" {
		t.Errorf("got pair %+v, want a/b", pairs[0])
	}
}

func TestDetectNearDuplicates_NoFalsePositives(t *testing.T) {
	prompts := []types.Prompt{
		{ID: "a", Text: "x"},
		{ID: "b", Text: "y"},
	}
	e := &fakeEmbedder{vecs: map[string][]float32{
		"x": {1, 0},
		"y": {0, 1},
	}}
	pairs, err := promptio.DetectNearDuplicates(context.Background(), e, prompts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pairs) != 0 {
		t.Errorf("expected no pairs, got %+v", pairs)
	}
}
