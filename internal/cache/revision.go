package cache

import (
	"path/filepath"
	"strings"

	"github.com/tommoa/writing-bench/pkg/types"
)

// revisionPath returns revisions/<provider>_<model>/<feedbackCacheID>.json:
// the revision (provider, model) produced from the feedback identified by
// feedbackCacheID. The key is feedbackCacheID alone -- not the original
// sample's id -- since the feedback artifact already pins down which
// original it targets.
func (s *Store) revisionPath(feedbackCacheID, provider, model string) string {
	return filepath.Join(s.dir, dirRevisions, modelDir(provider, model), feedbackCacheID+".json")
}

// revisionModelDir returns revisions/<provider>_<model>/, the directory
// holding every revision (provider, model) has produced.
func (s *Store) revisionModelDir(provider, model string) string {
	return filepath.Join(s.dir, dirRevisions, modelDir(provider, model))
}

// GetRevision looks up the revision (provider, model) produced from the
// feedback identified by feedbackCacheID.
func (s *Store) GetRevision(feedbackCacheID, provider, model string) (types.Sample, bool) {
	var rev types.Sample
	ok, _ := readJSON(s.revisionPath(feedbackCacheID, provider, model), &rev)
	if !ok || rev.CacheID == "" {
		return types.Sample{}, false
	}
	rev.CacheHit = true
	return rev, true
}

// PutRevision persists rev as the revision (provider, model) produced from
// the feedback feedbackCacheID, targeting originalCacheID. If rev.CacheID
// is empty, a fresh id is assigned; OriginalID and FeedbackFrom are stamped
// from the key.
func (s *Store) PutRevision(originalCacheID, feedbackCacheID, provider, model string, rev types.Sample) (types.Sample, error) {
	if rev.CacheID == "" {
		rev.CacheID = NewCacheID()
	}
	rev.Model = model
	rev.Stage = types.StageRevised
	rev.OriginalID = originalCacheID
	rev.FeedbackFrom = feedbackCacheID
	path := s.revisionPath(feedbackCacheID, provider, model)
	if err := writeJSONAtomic(path, rev); err != nil {
		return types.Sample{}, err
	}
	return rev, nil
}

// ListRevisionSources returns the feedbackCacheIDs that (provider, model)
// has already produced a revision for, used by the pull loop's cache-walk
// seeding phase.
func (s *Store) ListRevisionSources(provider, model string) []string {
	names, err := readDirNames(s.revisionModelDir(provider, model))
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
