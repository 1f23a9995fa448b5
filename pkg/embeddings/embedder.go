// Package embeddings provides interfaces and implementations for turning
// text into fixed-dimension vector embeddings via remote providers.
package embeddings

import "context"

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts a single text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts texts into vector embeddings, one per input, in
	// the same order as the input. An empty input returns an empty result
	// without any network call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the vector dimension produced by this embedder,
	// or 0 when the provider does not declare one.
	Dimensions() uint

	// Close releases any resources held by the embedder.
	Close() error
}
