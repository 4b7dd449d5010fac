// Package embedder defines the embedding capability consumed by the
// causal engine and the recall store.
//
// Implementations are selected once at construction and injected into
// every component that needs one; there is no process-wide singleton
// and no runtime presence probing.
//
// Implementations: mock (deterministic, for tests and offline use),
// onnx (local all-MiniLM-L6-v2, behind the onnx build tag).
package embedder

import (
	"context"
	"errors"
)

// ErrUnavailable reports that the underlying model cannot be loaded or
// the request timed out. Callers degrade (store an unlinked event, return
// a sentinel narrative) rather than fail.
var ErrUnavailable = errors.New("embedding service unavailable")

// Embedder converts text to fixed-length vector embeddings.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
