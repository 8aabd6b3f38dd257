package store

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// History is a SQLite-backed append-only audit log of every judgment this
// tool has recorded, independent of the cumulative ratings.json store --
// it exists so a run can be reconstructed or audited after the fact, not
// to feed the rating computation itself.
type History struct {
	db           *sql.DB
	insertCount  atomic.Int64
	pruneMaxRows int
	pruneMaxDays int
}

const (
	defaultHistoryMaxRows    = 50000
	defaultHistoryMaxAgeDays = 90
)

// OpenHistory opens (creating if needed) a SQLite database at path and
// ensures the judgment_history table and its index exist.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open history db: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS judgment_history (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			judgment_id TEXT    NOT NULL,
			judge_model TEXT    NOT NULL,
			prompt_id   TEXT    NOT NULL,
			model_a     TEXT    NOT NULL,
			model_b     TEXT    NOT NULL,
			winner      TEXT    NOT NULL,
			stage       TEXT    NOT NULL,
			created_at  INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create judgment_history table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_judgment_history_judge_ts
		ON judgment_history (judge_model, created_at)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create judgment_history index: %w", err)
	}

	return &History{
		db:           db,
		pruneMaxRows: defaultHistoryMaxRows,
		pruneMaxDays: defaultHistoryMaxAgeDays,
	}, nil
}

// SetPruneConfig overrides the pruning parameters. Call before the first
// Record to take effect.
func (h *History) SetPruneConfig(maxRows, maxAgeDays int) {
	h.pruneMaxRows = maxRows
	h.pruneMaxDays = maxAgeDays
}

// Close closes the underlying database handle.
func (h *History) Close() error { return h.db.Close() }

// Record appends one judgment to the audit log, with modelA/modelB being
// the models behind sample A and sample B respectively. Every 100th insert
// triggers a prune using the configured limits.
func (h *History) Record(judgmentID, judgeModel, promptID, modelA, modelB, winner, stage string) error {
	_, err := h.db.Exec(
		`INSERT INTO judgment_history (judgment_id, judge_model, prompt_id, model_a, model_b, winner, stage, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		judgmentID, judgeModel, promptID, modelA, modelB, winner, stage, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("store: record judgment history: %w", err)
	}

	n := h.insertCount.Add(1)
	if n%100 == 0 {
		_ = h.Prune(h.pruneMaxRows, h.pruneMaxDays)
	}
	return nil
}

// Prune deletes rows older than maxAgeDays, then, per judge_model, keeps
// only the maxRows most recent rows.
func (h *History) Prune(maxRows, maxAgeDays int) error {
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays).UnixNano()
	if _, err := h.db.Exec(`DELETE FROM judgment_history WHERE created_at < ?`, cutoff); err != nil {
		return fmt.Errorf("store: prune by age: %w", err)
	}

	if _, err := h.db.Exec(
		`DELETE FROM judgment_history
		 WHERE id NOT IN (
		   SELECT id FROM judgment_history j2
		   WHERE j2.judge_model = judgment_history.judge_model
		   ORDER BY j2.created_at DESC
		   LIMIT ?
		 )`,
		maxRows,
	); err != nil {
		return fmt.Errorf("store: prune by row count: %w", err)
	}
	return nil
}

// JudgeWinRate returns how often judgeModel's judgments since the given
// Unix-nano cutoff named subjectModel as the winner, out of every judgment
// involving subjectModel. It is a query over the audit log only; nothing in
// the rating or judge-quality computation calls it.
func (h *History) JudgeWinRate(judgeModel, subjectModel string, since int64) (wins, total int, err error) {
	row := h.db.QueryRow(
		`SELECT
		   COUNT(*) FILTER (WHERE
		     (model_a = ? AND winner = 'A') OR (model_b = ? AND winner = 'B')
		   ),
		   COUNT(*)
		 FROM judgment_history
		 WHERE judge_model = ? AND (model_a = ? OR model_b = ?) AND created_at >= ?`,
		subjectModel, subjectModel, judgeModel, subjectModel, subjectModel, since,
	)
	if err := row.Scan(&wins, &total); err != nil {
		return 0, 0, fmt.Errorf("store: judge win rate query: %w", err)
	}
	return wins, total, nil
}
