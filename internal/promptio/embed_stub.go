//go:build !onnx

package promptio

import "errors"

// ONNXAvailable indicates that the ONNX-backed embedder was compiled in.
const ONNXAvailable = false

var errONNXNotAvailable = errors.New("promptio: built without the onnx tag, near-duplicate detection is unavailable")

// NewONNXEmbedder returns an error unless the binary was built with -tags onnx.
func NewONNXEmbedder(_ EmbedderConfig) (Embedder, error) {
	return nil, errONNXNotAvailable
}
