package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
)

// MarkdownReport holds data for a Markdown leaderboard report over one
// convergence run's final ratings.
type MarkdownReport struct {
	Title string
	RunAt time.Time
	Run   RunSummary
}

// GenerateMarkdown writes a Markdown-formatted leaderboard report to w, one
// table per non-empty rating dimension, models sorted by Elo descending.
func GenerateMarkdown(w io.Writer, r *MarkdownReport) error {
	title := r.Title
	if title == "" {
		title = "Writing Bench Report"
	}

	if _, err := fmt.Fprintf(w, "## %s\n\n", title); err != nil {
		return err
	}

	if !r.RunAt.IsZero() {
		if _, err := fmt.Fprintf(w, "**Run at:** %s\n\n", r.RunAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "**Stop reason:** %s", r.Run.StopReason); err != nil {
		return err
	}
	if r.Run.Converged {
		if _, err := fmt.Fprint(w, " (converged)"); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, " after %d round(s)\n\n", r.Run.Rounds); err != nil {
		return err
	}

	if err := leaderboard(w, "Writing", rows(r.Run.Writing)); err != nil {
		return err
	}
	if err := leaderboard(w, "Feedback Giving", rows(r.Run.Feedback)); err != nil {
		return err
	}
	if err := leaderboard(w, "Revised", rows(r.Run.Revised)); err != nil {
		return err
	}

	return nil
}

func leaderboard(w io.Writer, heading string, rowsByModel map[string]PlayerRow) error {
	if len(rowsByModel) == 0 {
		return nil
	}

	models := make([]string, 0, len(rowsByModel))
	for m := range rowsByModel {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool {
		return rowsByModel[models[i]].Elo > rowsByModel[models[j]].Elo
	})

	if _, err := fmt.Fprintf(w, "### %s\n\n", heading); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "| Model | Elo | 95% CI | Matches | W | L | T |"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "|-------|-----|--------|---------|---|---|---|"); err != nil {
		return err
	}

	for _, m := range models {
		row := rowsByModel[m]
		if _, err := fmt.Fprintf(w, "| `%s` | %d | ±%.0f | %s | %.1f | %.1f | %.1f |\n",
			m, row.Elo, row.CI95, humanize.Comma(int64(row.Matches)), row.Wins, row.Losses, row.Ties); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return nil
}
