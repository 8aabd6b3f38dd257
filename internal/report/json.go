package report

import (
	"fmt"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/tommoa/writing-bench/internal/whr"
)

// JSONReport is the structured shape of one convergence run's final
// ratings, across every dimension the pull loop computes.
type JSONReport struct {
	Version    string               `json:"version"`
	Timestamp  string               `json:"timestamp"`
	StopReason string               `json:"stop_reason"`
	Converged  bool                 `json:"converged"`
	Rounds     int                  `json:"rounds"`
	Writing    map[string]PlayerRow `json:"writing"`
	Feedback   map[string]PlayerRow `json:"feedback_giving"`
	Revised    map[string]PlayerRow `json:"revised"`
}

// PlayerRow is one model's rating row in the report.
type PlayerRow struct {
	Elo     int     `json:"elo"`
	CI95    float64 `json:"ci95"`
	Matches int     `json:"matches"`
	Wins    float64 `json:"wins"`
	Losses  float64 `json:"losses"`
	Ties    float64 `json:"ties"`
}

// RunSummary is the subset of a pull run's result the report cares about.
type RunSummary struct {
	StopReason string
	Converged  bool
	Rounds     int
	Writing    *whr.Result
	Feedback   *whr.Result
	Revised    *whr.Result
}

func rows(r *whr.Result) map[string]PlayerRow {
	if r == nil {
		return nil
	}
	out := make(map[string]PlayerRow, len(r.Ratings))
	for model, pr := range r.Ratings {
		out[model] = PlayerRow{
			Elo: pr.Elo, CI95: pr.CI95, Matches: pr.Matches,
			Wins: pr.Wins, Losses: pr.Losses, Ties: pr.Ties,
		}
	}
	return out
}

// GenerateJSONReport renders run's final ratings as an indented JSON
// document.
func GenerateJSONReport(run RunSummary) ([]byte, error) {
	report := JSONReport{
		Version:    "1.0",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		StopReason: run.StopReason,
		Converged:  run.Converged,
		Rounds:     run.Rounds,
		Writing:    rows(run.Writing),
		Feedback:   rows(run.Feedback),
		Revised:    rows(run.Revised),
	}

	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("report: marshal json: %w", err)
	}
	return output, nil
}
