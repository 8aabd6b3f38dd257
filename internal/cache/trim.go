package cache

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/encoding/json"
	"github.com/tommoa/writing-bench/pkg/types"
)

// TrimStats reports what a TrimModelOutputs call deleted.
type TrimStats struct {
	DeletedSamples   int
	DeletedFeedback  int
	DeletedRevisions int
	DeletedJudgments int
}

// TrimModelOutputs reduces (provider, model)'s per-prompt writes to at most
// maxOutputs, deleting every output index >= maxOutputs, then cascades the
// deletion through feedback, revisions, and judgments: every artifact that
// referenced a deleted cache id, directly or transitively, is removed too.
// Judgment files are named only by a hash of (stage, pair), so the cascade
// recomputes the hash of every (deleted id, surviving id) pair across all
// three stages and deletes any judge file matching it -- there is no
// reverse index to consult instead.
func (s *Store) TrimModelOutputs(provider, model string, maxOutputs int) (TrimStats, error) {
	var stats TrimStats

	deletedWriteIDs, err := s.trimWrites(provider, model, maxOutputs)
	if err != nil {
		return stats, err
	}
	stats.DeletedSamples = len(deletedWriteIDs)

	deletedFeedbackIDs, err := s.cascadeDeleteFeedback(deletedWriteIDs)
	if err != nil {
		return stats, err
	}
	stats.DeletedFeedback = len(deletedFeedbackIDs)

	deletedRevisionIDs, err := s.cascadeDeleteRevisions(deletedFeedbackIDs)
	if err != nil {
		return stats, err
	}
	stats.DeletedRevisions = len(deletedRevisionIDs)

	deletedIDs := make([]string, 0, len(deletedWriteIDs)+len(deletedFeedbackIDs)+len(deletedRevisionIDs))
	deletedIDs = append(deletedIDs, deletedWriteIDs...)
	deletedIDs = append(deletedIDs, deletedFeedbackIDs...)
	deletedIDs = append(deletedIDs, deletedRevisionIDs...)

	survivingIDs, err := s.allCacheIDs()
	if err != nil {
		return stats, err
	}

	n, err := s.deleteStaleJudgments(deletedIDs, survivingIDs)
	if err != nil {
		return stats, err
	}
	stats.DeletedJudgments = n

	s.removeEmptyDirsUnder(filepath.Join(s.dir, dirWrites))
	s.removeEmptyDirsUnder(filepath.Join(s.dir, dirFeedback))
	s.removeEmptyDirsUnder(filepath.Join(s.dir, dirRevisions))
	s.removeEmptyDirsUnder(filepath.Join(s.dir, dirJudgments))

	return stats, nil
}

// trimWrites deletes every output index >= maxOutputs for (provider, model)
// across every prompt hash directory, returning the cache ids deleted.
func (s *Store) trimWrites(provider, model string, maxOutputs int) ([]string, error) {
	base := filepath.Join(s.dir, dirWrites, modelDir(provider, model))
	promptHashes, err := readDirNames(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var deleted []string
	for _, promptHash := range promptHashes {
		dir := s.sampleDir(promptHash, provider, model)
		for _, idx := range listNumberedJSONFiles(dir) {
			if idx < maxOutputs {
				continue
			}
			path := filepath.Join(dir, sampleFileName(idx))
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			var sample types.Sample
			if hasCacheID(data) {
				_ = unmarshalLenient(data, &sample)
				deleted = append(deleted, sample.CacheID)
			}
			_ = os.Remove(path)
		}
	}
	return deleted, nil
}

// deletedIDSet builds a membership set from a slice of cache ids.
func deletedIDSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// cascadeDeleteFeedback deletes every feedback file, across every source
// model's feedback directory, whose basename (the target write's cache id)
// is in writeCacheIDs. Returns the feedback cache ids deleted.
func (s *Store) cascadeDeleteFeedback(writeCacheIDs []string) ([]string, error) {
	targets := deletedIDSet(writeCacheIDs)
	if len(targets) == 0 {
		return nil, nil
	}

	base := filepath.Join(s.dir, dirFeedback)
	modelDirs, err := readDirNames(base)
	if err != nil {
		return nil, nil
	}

	var deleted []string
	for _, md := range modelDirs {
		dir := filepath.Join(base, md)
		names, err := readDirNames(dir)
		if err != nil {
			continue
		}
		for _, name := range names {
			writeID := strings.TrimSuffix(name, ".json")
			if _, stale := targets[writeID]; !stale {
				continue
			}
			path := filepath.Join(dir, name)
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			var fb types.Feedback
			if hasCacheID(data) {
				_ = unmarshalLenient(data, &fb)
				deleted = append(deleted, fb.CacheID)
			}
			_ = os.Remove(path)
		}
	}
	return deleted, nil
}

// cascadeDeleteRevisions deletes every revision file, across every writer
// model's revision directory, whose basename (the source feedback's cache
// id) is in feedbackCacheIDs. Returns the revision cache ids deleted.
func (s *Store) cascadeDeleteRevisions(feedbackCacheIDs []string) ([]string, error) {
	targets := deletedIDSet(feedbackCacheIDs)
	if len(targets) == 0 {
		return nil, nil
	}

	base := filepath.Join(s.dir, dirRevisions)
	modelDirs, err := readDirNames(base)
	if err != nil {
		return nil, nil
	}

	var deleted []string
	for _, md := range modelDirs {
		dir := filepath.Join(base, md)
		names, err := readDirNames(dir)
		if err != nil {
			continue
		}
		for _, name := range names {
			feedbackID := strings.TrimSuffix(name, ".json")
			if _, stale := targets[feedbackID]; !stale {
				continue
			}
			path := filepath.Join(dir, name)
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			var rev types.Sample
			if hasCacheID(data) {
				_ = unmarshalLenient(data, &rev)
				deleted = append(deleted, rev.CacheID)
			}
			_ = os.Remove(path)
		}
	}
	return deleted, nil
}

// allCacheIDs walks writes/, feedback/, and revisions/ and returns every
// cache id still present, for the post-cascade stale-judgment sweep.
func (s *Store) allCacheIDs() ([]string, error) {
	var ids []string
	collect := func(root string) {
		_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			data, readErr := os.ReadFile(path)
			if readErr != nil || !hasCacheID(data) {
				return nil
			}
			var probe struct {
				CacheID string `json:"cache_id"`
			}
			if unmarshalLenient(data, &probe) == nil && probe.CacheID != "" {
				ids = append(ids, probe.CacheID)
			}
			return nil
		})
	}
	collect(filepath.Join(s.dir, dirWrites))
	collect(filepath.Join(s.dir, dirFeedback))
	collect(filepath.Join(s.dir, dirRevisions))
	return ids, nil
}

// deleteStaleJudgments computes sha256_16(stage ":" lo ":" hi) for every
// (deletedID, survivingID) pair across all three judgment stages, then
// deletes any file with a matching basename under any judge directory.
func (s *Store) deleteStaleJudgments(deletedIDs, survivingIDs []string) (int, error) {
	if len(deletedIDs) == 0 {
		return 0, nil
	}

	stages := []string{types.StageInitial, types.StageImprovement, types.StageRevised}
	stale := make(map[string]struct{}, len(deletedIDs)*len(survivingIDs)*len(stages))
	for _, d := range deletedIDs {
		for _, sv := range survivingIDs {
			for _, stage := range stages {
				stale[JudgmentPairHash(stage, d, sv)+".json"] = struct{}{}
			}
		}
		// A pair of two deleted ids can also have been judged; cover that too.
		for _, d2 := range deletedIDs {
			for _, stage := range stages {
				stale[JudgmentPairHash(stage, d, d2)+".json"] = struct{}{}
			}
		}
	}

	deleted := 0
	for _, judgeDir := range s.judgeDirs() {
		names, err := readDirNames(judgeDir)
		if err != nil {
			continue
		}
		for _, name := range names {
			if _, ok := stale[name]; !ok {
				continue
			}
			if err := os.Remove(filepath.Join(judgeDir, name)); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}

// removeEmptyDirsUnder removes every directory beneath root that is empty
// after the cascade's file deletions, working bottom-up so parents empty
// out after their children are removed. root itself is kept even if empty.
func (s *Store) removeEmptyDirsUnder(root string) {
	var dirs []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		dirs = append(dirs, path)
		return nil
	})
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err != nil || len(entries) > 0 {
			continue
		}
		if dirs[i] == root {
			continue
		}
		_ = os.Remove(dirs[i])
	}
}

// unmarshalLenient parses data into v, reusing the cache's JSON codec.
func unmarshalLenient(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
