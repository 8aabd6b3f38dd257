package cache

import (
	"path/filepath"

	"github.com/tommoa/writing-bench/pkg/types"
)

// judgmentPath returns judgments/<judgeProvider>_<judgeModel>/<hash>.json,
// where hash = sha256_16(stage ":" cidLo ":" cidHi). Stage is folded into
// the hash, not the path, so a judge's directory is flat -- this is what
// lets trim's cascade scan a judge directory by basename alone without
// knowing which stage a stale id belonged to.
func (s *Store) judgmentPath(judgeProvider, judgeModel, stage, cidA, cidB string) string {
	return filepath.Join(s.dir, dirJudgments, modelDir(judgeProvider, judgeModel), JudgmentPairHash(stage, cidA, cidB)+".json")
}

// GetJudgment looks up the judgment (judgeProvider, judgeModel) rendered for
// the (stage, cidA, cidB) pair. The result is always expressed in terms of
// the caller's own (cidA, cidB) order: if the judgment was stored under the
// opposite order, Winner and PositionSwapped are flipped back before
// returning.
func (s *Store) GetJudgment(judgeProvider, judgeModel, stage, cidA, cidB string) (types.Judgment, bool) {
	var j types.Judgment
	ok, _ := readJSON(s.judgmentPath(judgeProvider, judgeModel, stage, cidA, cidB), &j)
	if !ok || j.CacheID == "" {
		return types.Judgment{}, false
	}
	if j.SampleA != cidA {
		j = flipJudgment(j, cidA, cidB)
	}
	return j, true
}

// PutJudgment persists j as (judgeProvider, judgeModel)'s verdict on (cidA,
// cidB) for the given stage. j is normalized to the canonical sorted (lo,
// hi) order before writing: if the caller's (cidA, cidB) is not already
// sorted, Winner and PositionSwapped are flipped so the pair's on-disk
// judgment is always expressed in terms of (lo, hi), regardless of which
// order callers happen to ask in. If j.CacheID is empty, a fresh id is
// assigned.
func (s *Store) PutJudgment(judgeProvider, judgeModel, stage, cidA, cidB string, j types.Judgment) (types.Judgment, error) {
	if j.CacheID == "" {
		j.CacheID = NewCacheID()
	}
	j.JudgeModel = judgeModel
	j.Stage = stage
	j.SampleA = cidA
	j.SampleB = cidB

	lo, hi := types.SortedPair(cidA, cidB)
	canonical := j
	if lo != cidA {
		canonical = flipJudgment(j, lo, hi)
	}

	path := s.judgmentPath(judgeProvider, judgeModel, stage, cidA, cidB)
	if err := writeJSONAtomic(path, canonical); err != nil {
		return types.Judgment{}, err
	}
	// Return the judgment in the caller's requested orientation, not the
	// canonical one that was written to disk.
	return j, nil
}

// flipJudgment returns a copy of j re-expressed with SampleA = wantA and
// SampleB = wantB, the opposite of j's current orientation: Winner A/B is
// swapped (ties are unaffected), and PositionSwapped, if set, is inverted.
func flipJudgment(j types.Judgment, wantA, wantB string) types.Judgment {
	flipped := j
	flipped.SampleA = wantA
	flipped.SampleB = wantB
	switch j.Winner {
	case types.WinnerA:
		flipped.Winner = types.WinnerB
	case types.WinnerB:
		flipped.Winner = types.WinnerA
	}
	if j.PositionSwapped != nil {
		inverted := !*j.PositionSwapped
		flipped.PositionSwapped = &inverted
	}
	return flipped
}

// judgeDir returns the directory holding every judgment (across every
// stage and pair) rendered by (judgeProvider, judgeModel).
func (s *Store) judgeDir(judgeProvider, judgeModel string) string {
	return filepath.Join(s.dir, dirJudgments, modelDir(judgeProvider, judgeModel))
}

// judgeDirs returns the directories of every judge that has ever rendered a
// judgment in this cache.
func (s *Store) judgeDirs() []string {
	base := filepath.Join(s.dir, dirJudgments)
	entries, err := readDirNames(base)
	if err != nil {
		return nil
	}
	dirs := make([]string, 0, len(entries))
	for _, name := range entries {
		dirs = append(dirs, filepath.Join(base, name))
	}
	return dirs
}

// ListJudgments returns every judgment (judgeProvider, judgeModel) has ever
// rendered, in arbitrary order. Unparseable files are skipped rather than
// failing the whole listing. The pull loop's seeding pass uses this to
// pre-populate CompletedWork from a prior run without re-requesting
// judgments already on disk.
func (s *Store) ListJudgments(judgeProvider, judgeModel string) []types.Judgment {
	dir := s.judgeDir(judgeProvider, judgeModel)
	names, err := readDirNames(dir)
	if err != nil {
		return nil
	}
	judgments := make([]types.Judgment, 0, len(names))
	for _, name := range names {
		var j types.Judgment
		ok, _ := readJSON(filepath.Join(dir, name), &j)
		if !ok || j.CacheID == "" {
			continue
		}
		judgments = append(judgments, j)
	}
	return judgments
}
