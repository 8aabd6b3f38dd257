package pull_test

import (
	"testing"

	"github.com/tommoa/writing-bench/internal/pull"
)

func TestCircuitBreaker_AllowsUntilTripped(t *testing.T) {
	b := pull.NewCircuitBreaker()
	if !b.Allowed("model-a") {
		t.Fatalf("expected model-a allowed before any trip")
	}
	b.Trip("model-a")
	if b.Allowed("model-a") {
		t.Errorf("expected model-a blocked after trip")
	}
	if !b.Allowed("model-b") {
		t.Errorf("expected model-b unaffected by model-a's trip")
	}
}

func TestCircuitBreaker_ResetBatchClearsTrips(t *testing.T) {
	b := pull.NewCircuitBreaker()
	b.Trip("model-a")
	if !b.Tripped("model-a") {
		t.Fatalf("expected model-a tripped")
	}
	b.ResetBatch()
	if b.Tripped("model-a") {
		t.Errorf("expected trip cleared after ResetBatch")
	}
	if !b.Allowed("model-a") {
		t.Errorf("expected model-a allowed again after reset")
	}
}
