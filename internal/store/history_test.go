package store_test

import (
	"path/filepath"
	"testing"

	"github.com/tommoa/writing-bench/internal/store"
)

func TestHistory_RecordAndWinRate(t *testing.T) {
	h, err := store.OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer h.Close()

	if err := h.Record("j1", "judge-x", "p1", "model-a", "model-b", "A", "initial"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := h.Record("j2", "judge-x", "p1", "model-b", "model-a", "B", "initial"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := h.Record("j3", "judge-x", "p1", "model-a", "model-c", "tie", "initial"); err != nil {
		t.Fatalf("record: %v", err)
	}

	wins, total, err := h.JudgeWinRate("judge-x", "model-a", 0)
	if err != nil {
		t.Fatalf("win rate: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 judgments involving model-a, got %d", total)
	}
	if wins != 2 {
		t.Errorf("expected 2 wins for model-a, got %d", wins)
	}
}

func TestHistory_Prune(t *testing.T) {
	h, err := store.OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer h.Close()
	h.SetPruneConfig(2, 365)

	for i := 0; i < 5; i++ {
		if err := h.Record("j", "judge-x", "p", "a", "b", "A", "initial"); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	if err := h.Prune(2, 365); err != nil {
		t.Fatalf("prune: %v", err)
	}

	_, total, err := h.JudgeWinRate("judge-x", "a", 0)
	if err != nil {
		t.Fatalf("win rate: %v", err)
	}
	if total != 2 {
		t.Errorf("expected prune to leave 2 rows, got %d", total)
	}
}
