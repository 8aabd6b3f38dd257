//go:build onnx

package promptio

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	onnxModelName    = "all-MiniLM-L6-v2"
	onnxEmbeddingDim = 384
	onnxMaxTokenLen  = 128
)

// ONNXAvailable indicates that the ONNX-backed embedder was compiled in.
const ONNXAvailable = true

var onnxInitOnce sync.Once

// onnxEmbedder embeds prompt text with a local all-MiniLM-L6-v2 ONNX model,
// mean-pooling token states and L2-normalizing the result. It is only used
// to flag near-duplicate prompts at load time.
type onnxEmbedder struct {
	mu        sync.Mutex
	modelPath string
}

// NewONNXEmbedder loads the ONNX runtime shared library and the MiniLM
// model from cfg.ModelDir (defaulting to $HOME/.writebench/models).
func NewONNXEmbedder(cfg EmbedderConfig) (Embedder, error) {
	modelDir := cfg.ModelDir
	if modelDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("onnx embedder: %w", err)
		}
		modelDir = filepath.Join(home, ".writebench", "models")
	}
	var initErr error
	onnxInitOnce.Do(func() { initErr = ort.InitializeEnvironment() })
	if initErr != nil {
		return nil, fmt.Errorf("onnx embedder: initialize environment: %w", initErr)
	}
	modelPath := filepath.Join(modelDir, onnxModelName+".onnx")
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("onnx embedder: model not found at %s (download it first): %w", modelPath, err)
	}
	return &onnxEmbedder{modelPath: modelPath}, nil
}

func (e *onnxEmbedder) Model() string { return onnxModelName }

func (e *onnxEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids, mask := hashTokenize(text, onnxMaxTokenLen)
	typeIDs := make([]int64, onnxMaxTokenLen)

	shape := ort.NewShape(1, int64(onnxMaxTokenLen))
	outShape := ort.NewShape(1, int64(onnxMaxTokenLen), int64(onnxEmbeddingDim))

	inputTensor, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("onnx embed: input_ids tensor: %w", err)
	}
	defer inputTensor.Destroy()

	maskTensor, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("onnx embed: attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	typeTensor, err := ort.NewTensor(shape, typeIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx embed: token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outputData := make([]float32, onnxMaxTokenLen*onnxEmbeddingDim)
	outputTensor, err := ort.NewTensor(outShape, outputData)
	if err != nil {
		return nil, fmt.Errorf("onnx embed: output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	session, err := ort.NewAdvancedSession(
		e.modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		[]ort.Value{inputTensor, maskTensor, typeTensor},
		[]ort.Value{outputTensor},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx embed: create session: %w", err)
	}
	defer session.Destroy()

	if err := session.Run(); err != nil {
		return nil, fmt.Errorf("onnx embed: run inference: %w", err)
	}

	return meanPoolNormalize(outputTensor.GetData(), mask, onnxMaxTokenLen, onnxEmbeddingDim), nil
}

// hashTokenize is a deliberately simple stand-in for a real WordPiece
// tokenizer: it maps whitespace-split words to stable hashed ids. It is
// sufficient for near-duplicate detection, which only needs embeddings to
// be stable and text-sensitive, not linguistically precise.
func hashTokenize(text string, maxLen int) (ids, mask []int64) {
	ids = make([]int64, maxLen)
	mask = make([]int64, maxLen)
	words := splitWords(text)
	n := 0
	for _, w := range words {
		if n >= maxLen {
			break
		}
		ids[n] = hashWord(w)
		mask[n] = 1
		n++
	}
	return ids, mask
}

func splitWords(text string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			flush()
			continue
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

func hashWord(w string) int64 {
	var h uint32 = 2166136261
	for i := 0; i < len(w); i++ {
		h ^= uint32(w[i])
		h *= 16777619
	}
	return int64(h % 29999)
}

func meanPoolNormalize(output []float32, mask []int64, seqLen, dim int) []float32 {
	result := make([]float32, dim)
	var count float32
	for i := 0; i < seqLen; i++ {
		if mask[i] == 0 {
			continue
		}
		count++
		offset := i * dim
		for j := 0; j < dim; j++ {
			result[j] += output[offset+j]
		}
	}
	if count > 0 {
		for j := range result {
			result[j] /= count
		}
	}
	var sumSq float64
	for _, v := range result {
		sumSq += float64(v) * float64(v)
	}
	if sumSq > 0 {
		norm := float32(math.Sqrt(sumSq))
		for i := range result {
			result[i] /= norm
		}
	}
	return result
}
