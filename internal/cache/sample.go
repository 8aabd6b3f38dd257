package cache

import (
	"path/filepath"
	"strconv"

	"github.com/tommoa/writing-bench/pkg/types"
)

// sampleDir returns writes/<provider>_<model>/<promptHash>/.
func (s *Store) sampleDir(promptHash, provider, model string) string {
	return filepath.Join(s.dir, dirWrites, modelDir(provider, model), promptHash)
}

// samplePath returns the path of the file holding the outputIndex'th sample
// for (promptHash, provider, model).
func (s *Store) samplePath(promptHash, provider, model string, outputIndex int) string {
	return filepath.Join(s.sampleDir(promptHash, provider, model), sampleFileName(outputIndex))
}

func sampleFileName(outputIndex int) string {
	return "sample_" + strconv.Itoa(outputIndex) + ".json"
}

// GetSample looks up the outputIndex'th sample produced by (provider, model)
// for the prompt with the given content hash. Missing or unparseable files
// are reported as absent, not as an error.
func (s *Store) GetSample(promptHash, provider, model string, outputIndex int) (types.Sample, bool) {
	var sample types.Sample
	ok, _ := readJSON(s.samplePath(promptHash, provider, model, outputIndex), &sample)
	if !ok || sample.CacheID == "" {
		return types.Sample{}, false
	}
	sample.CacheHit = true
	return sample, true
}

// PutSample persists sample under (promptHash, provider, model, outputIndex).
// If sample.CacheID is empty, a fresh id is assigned before writing.
func (s *Store) PutSample(promptHash, provider, model string, outputIndex int, sample types.Sample) (types.Sample, error) {
	if sample.CacheID == "" {
		sample.CacheID = NewCacheID()
	}
	sample.Model = model
	sample.OutputIndex = outputIndex
	path := s.samplePath(promptHash, provider, model, outputIndex)
	if err := writeJSONAtomic(path, sample); err != nil {
		return types.Sample{}, err
	}
	return sample, nil
}

// ListSampleIndices returns every outputIndex cached for (promptHash,
// provider, model), in ascending order.
func (s *Store) ListSampleIndices(promptHash, provider, model string) []int {
	return listNumberedJSONFiles(s.sampleDir(promptHash, provider, model))
}
