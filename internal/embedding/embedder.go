// Package embedding turns listing text into vectors, via ONNX when available
// and a deterministic hash embedder otherwise.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations return unit
// length vectors so inner product search equals cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
