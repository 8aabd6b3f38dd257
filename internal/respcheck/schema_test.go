package respcheck_test

import (
	"testing"

	"github.com/tommoa/writing-bench/internal/respcheck"
)

func TestValidateJudgment_Valid(t *testing.T) {
	j, err := respcheck.ValidateJudgment([]byte(`{"winner": "A", "rationale": "clearer structure"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.Winner != "A" || j.Rationale != "clearer structure" {
		t.Errorf("got %+v", j)
	}
}

func TestValidateJudgment_RejectsBadWinner(t *testing.T) {
	if _, err := respcheck.ValidateJudgment([]byte(`{"winner": "C", "rationale": "x"}`)); err == nil {
		t.Fatal("expected schema violation for winner=C, got nil")
	}
}

func TestValidateJudgment_RejectsMissingRationale(t *testing.T) {
	if _, err := respcheck.ValidateJudgment([]byte(`{"winner": "tie"}`)); err == nil {
		t.Fatal("expected schema violation for missing rationale, got nil")
	}
}

func TestValidateJudgment_RejectsMalformedJSON(t *testing.T) {
	if _, err := respcheck.ValidateJudgment([]byte(`not json`)); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestValidateJudgment_RejectsEmptyRationale(t *testing.T) {
	if _, err := respcheck.ValidateJudgment([]byte(`{"winner": "tie", "rationale": ""}`)); err == nil {
		t.Fatal("expected schema violation for empty rationale, got nil")
	}
}
