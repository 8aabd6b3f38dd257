package cache

import (
	"path/filepath"
	"strings"

	"github.com/tommoa/writing-bench/pkg/types"
)

// feedbackPath returns feedback/<provider>_<model>/<sourceCacheID>.json: the
// feedback that (provider, model) gave on the sample identified by
// sourceCacheID. A given (sample, feedback-model) pair produces at most one
// cached feedback text, since feedback prompting is not sampled at multiple
// indices.
func (s *Store) feedbackPath(sourceCacheID, provider, model string) string {
	return filepath.Join(s.dir, dirFeedback, modelDir(provider, model), sourceCacheID+".json")
}

// feedbackModelDir returns feedback/<provider>_<model>/, the directory
// holding every feedback artifact (provider, model) has produced.
func (s *Store) feedbackModelDir(provider, model string) string {
	return filepath.Join(s.dir, dirFeedback, modelDir(provider, model))
}

// GetFeedback looks up feedback given by (provider, model) on the sample
// with cache id sourceCacheID.
func (s *Store) GetFeedback(sourceCacheID, provider, model string) (types.Feedback, bool) {
	var fb types.Feedback
	ok, _ := readJSON(s.feedbackPath(sourceCacheID, provider, model), &fb)
	if !ok || fb.CacheID == "" {
		return types.Feedback{}, false
	}
	return fb, true
}

// PutFeedback persists fb as the feedback (provider, model) gave on
// sourceCacheID. If fb.CacheID is empty, a fresh id is assigned.
func (s *Store) PutFeedback(sourceCacheID, provider, model string, fb types.Feedback) (types.Feedback, error) {
	if fb.CacheID == "" {
		fb.CacheID = NewCacheID()
	}
	fb.SourceModel = model
	fb.TargetSample = sourceCacheID
	path := s.feedbackPath(sourceCacheID, provider, model)
	if err := writeJSONAtomic(path, fb); err != nil {
		return types.Feedback{}, err
	}
	return fb, nil
}

// ListFeedbackTargets returns the sourceCacheIDs (write cache ids) that
// (provider, model) has already produced feedback for, used by the pull
// loop's cache-walk seeding phase.
func (s *Store) ListFeedbackTargets(provider, model string) []string {
	names, err := readDirNames(s.feedbackModelDir(provider, model))
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(names))
	for _, n := range names {
		if trimmed, ok := strings.CutSuffix(n, ".json"); ok {
			ids = append(ids, trimmed)
		}
	}
	return ids
}
