// Package cache is the content-addressed, file-backed store for every
// artifact the pipeline produces: writing samples, feedback, revisions, and
// pairwise judgments. Lookups are by logical key, never by file path;
// writes are atomic (temp file + rename); judgment storage is
// ordering-symmetric so a swapped-argument lookup returns a logically
// swapped judgment with no extra storage.
package cache

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
)

const (
	dirWrites    = "writes"
	dirFeedback  = "feedback"
	dirRevisions = "revisions"
	dirJudgments = "judgments"
)

// Store is a filesystem-backed, content-addressed cache rooted at a single
// directory. It assumes single-process ownership of that directory for the
// duration of a run; concurrent writers for the same key are tolerated
// (last-writer-wins) because artifacts for a given key are idempotent.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir. The directory is created lazily on
// first write, not here.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the cache root directory.
func (s *Store) Dir() string { return s.dir }

// NewCacheID returns a fresh opaque cache id, as a random UUIDv4. This is
// the id assigned to an artifact the first time it is produced; reuse of an
// existing cached artifact must keep its existing id rather than calling
// this again.
func NewCacheID() string {
	return uuid.NewString()
}

// readJSON loads and parses path into v. It returns (false, nil) for any
// absence or corruption -- missing file, unreadable file, or JSON that
// fails to parse -- since the cache treats all of those as "not present".
// It returns (false, err) only for errors the caller cannot treat as a
// simple cache miss (none currently; reserved for future I/O
// classification).
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, nil
	}
	return true, nil
}

// hasCacheID reports whether raw JSON contains a non-empty top-level
// "cache_id" field, the presence test the spec uses to decide an artifact
// is "really there" versus truncated or corrupt.
func hasCacheID(data []byte) bool {
	var probe struct {
		CacheID string `json:"cache_id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	return probe.CacheID != ""
}

// writeJSONAtomic serializes v and writes it to path by creating a
// uniquely-named temp file in the same directory, then renaming it into
// place. The rename is atomic within a filesystem, so a reader never
// observes a partially-written file.
func writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", dir, err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	var suffix [8]byte
	_, _ = rand.Read(suffix[:])
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), hex.EncodeToString(suffix[:])))

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp cache file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s to %s: %w", tmp, path, err)
	}
	return nil
}
