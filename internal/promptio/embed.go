package promptio

import (
	"context"
	"errors"
	"math"
)

// Embedder produces a vector embedding for a prompt's text, used only to
// flag near-duplicate prompts before a run starts -- never in the scoring
// path itself.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// EmbedderConfig configures the embedder a loader uses for duplicate
// detection. ModelDir is only consulted by the ONNX build.
type EmbedderConfig struct {
	ModelDir string
}

// ErrLengthMismatch is returned when two embeddings have different lengths.
var ErrLengthMismatch = errors.New("promptio: embeddings must have the same length")

// ErrZeroMagnitude is returned when an embedding has zero magnitude.
var ErrZeroMagnitude = errors.New("promptio: embedding has zero magnitude")

// CosineSimilarity computes cosine similarity in [-1, 1].
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrLengthMismatch
	}
	var dot, magA, magB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		magA += av * av
		magB += bv * bv
	}
	magA, magB = math.Sqrt(magA), math.Sqrt(magB)
	if magA == 0 || magB == 0 {
		return 0, ErrZeroMagnitude
	}
	return dot / (magA * magB), nil
}

// DuplicatePair identifies two prompts whose embeddings are suspiciously
// close.
type DuplicatePair struct {
	IDA, IDB   string
	Similarity float64
}

// NearDuplicateThreshold above which two prompts are reported as likely
// duplicates.
const NearDuplicateThreshold = 0.97

// DetectNearDuplicates embeds every prompt and reports all pairs whose
// cosine similarity exceeds NearDuplicateThreshold. It is O(n^2) in the
// number of prompts, which is fine for the prompt-set sizes this tool
// targets (tens to low hundreds).
func DetectNearDuplicates(ctx context.Context, e Embedder, prompts []Prompt) ([]DuplicatePair, error) {
	vecs := make([][]float32, len(prompts))
	for i, p := range prompts {
		v, err := e.Embed(ctx, p.Text)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}

	var pairs []DuplicatePair
	for i := 0; i < len(prompts); i++ {
		for j := i + 1; j < len(prompts); j++ {
			sim, err := CosineSimilarity(vecs[i], vecs[j])
			if errors.Is(err, ErrZeroMagnitude) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if sim > NearDuplicateThreshold {
				pairs = append(pairs, DuplicatePair{IDA: prompts[i].ID, IDB: prompts[j].ID, Similarity: sim})
			}
		}
	}
	return pairs, nil
}
