// Package embedding wraps the external embedding model for image and text inputs.
package embedding

import "context"

// Provider produces vector embeddings for image references and free text.
// Both calls block for the duration of the external model call; latency is
// unbounded and failures surface immediately (no internal retries).
type Provider interface {
	EmbedImage(ctx context.Context, url string) ([]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}
