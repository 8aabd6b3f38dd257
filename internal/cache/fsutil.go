package cache

import (
	"os"
	"sort"
	"strconv"
	"strings"
)

// readDirNames returns the names of entries directly under dir.
func readDirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// listNumberedJSONFiles returns the sorted set of integers n such that
// "sample_<n>.json" exists directly under dir. A missing directory yields
// an empty slice, not an error.
func listNumberedJSONFiles(dir string) []int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "sample_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		trimmed := strings.TrimSuffix(strings.TrimPrefix(name, "sample_"), ".json")
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
