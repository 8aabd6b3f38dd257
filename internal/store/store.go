// Package store is the cumulative rating store: a single JSON file holding
// every pairwise record this tool has ever accumulated, across runs, for
// each of the three rating dimensions (writing, feedback-giving, and
// writing broken out by prompt tag). Ratings themselves are never stored
// directly -- only the raw win/loss/tie records, recomputed into Elo
// ratings via internal/whr on every read, so a change to the rating
// algorithm applies retroactively to old data without a migration.
package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/segmentio/encoding/json"

	"github.com/tommoa/writing-bench/internal/whr"
	"github.com/tommoa/writing-bench/pkg/types"
)

// Snapshot is the on-disk shape of the cumulative store.
type Snapshot struct {
	Writing        []types.PairwiseRecord            `json:"writing"`
	FeedbackGiving []types.PairwiseRecord            `json:"feedback_giving"`
	WritingByTag   map[string][]types.PairwiseRecord `json:"writing_by_tag,omitempty"`
}

// Store is a file-backed, in-process-synchronized holder of a Snapshot. It
// assumes single-process ownership of its path for the duration of a run.
type Store struct {
	path string

	mu   sync.Mutex
	snap Snapshot
}

// Open loads path if it exists, or starts from an empty Snapshot if it
// doesn't. A corrupt file is treated the same as a missing one -- the
// store's only source of truth is what it itself writes.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return s, nil
	}
	s.snap = snap
	return s, nil
}

// Merge folds newWriting/newFeedback records, and per-tag writing records,
// into the cumulative totals and persists the result atomically.
func (s *Store) Merge(newWriting, newFeedback []types.PairwiseRecord, newByTag map[string][]types.PairwiseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Writing = whr.MergeRecords(s.snap.Writing, newWriting)
	s.snap.FeedbackGiving = whr.MergeRecords(s.snap.FeedbackGiving, newFeedback)

	if len(newByTag) > 0 {
		if s.snap.WritingByTag == nil {
			s.snap.WritingByTag = make(map[string][]types.PairwiseRecord, len(newByTag))
		}
		for tag, recs := range newByTag {
			s.snap.WritingByTag[tag] = whr.MergeRecords(s.snap.WritingByTag[tag], recs)
		}
	}

	return s.persist()
}

// Ratings recomputes and returns Elo ratings for all three dimensions from
// the current cumulative records.
func (s *Store) Ratings() (writing, feedback *whr.Result, byTag map[string]*whr.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	writing, err = whr.Compute(whr.RecordsToGames(s.snap.Writing))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("store: compute writing ratings: %w", err)
	}
	feedback, err = whr.Compute(whr.RecordsToGames(s.snap.FeedbackGiving))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("store: compute feedback ratings: %w", err)
	}
	if len(s.snap.WritingByTag) > 0 {
		byTag = make(map[string]*whr.Result, len(s.snap.WritingByTag))
		for tag, recs := range s.snap.WritingByTag {
			r, err := whr.Compute(whr.RecordsToGames(recs))
			if err != nil {
				return nil, nil, nil, fmt.Errorf("store: compute %q tag ratings: %w", tag, err)
			}
			byTag[tag] = r
		}
	}
	return writing, feedback, byTag, nil
}

// Snapshot returns a copy of the raw cumulative records.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Writing:        append([]types.PairwiseRecord(nil), s.snap.Writing...),
		FeedbackGiving: append([]types.PairwiseRecord(nil), s.snap.FeedbackGiving...),
		WritingByTag:   s.snap.WritingByTag,
	}
}

// persist writes the current snapshot to s.path atomically (temp file in
// the same directory, then rename).
func (s *Store) persist() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create dir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(s.snap, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal snapshot: %w", err)
	}

	var suffix [8]byte
	_, _ = rand.Read(suffix[:])
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(s.path), hex.EncodeToString(suffix[:])))

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write temp file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("store: rename %s to %s: %w", tmp, s.path, err)
	}
	return nil
}
