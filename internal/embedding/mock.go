package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"sync/atomic"
)

// MockProvider is a deterministic provider for tests. It derives a
// fixed-dimension unit vector from the input hash so that the same input
// always gets the same embedding. Call counters allow tests to assert that
// cached paths skip the external capability.
type MockProvider struct {
	dimensions int
	imageCalls atomic.Int64
	textCalls  atomic.Int64

	// Err, when set, is returned by every call.
	Err error
	// Override, when set, is returned instead of the derived vector
	// (e.g. to simulate a wrong-dimension model response).
	Override []float32
}

// NewMockProvider returns a provider producing deterministic embeddings of the given dimensions.
func NewMockProvider(dimensions int) *MockProvider {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &MockProvider{dimensions: dimensions}
}

// EmbedImage returns a deterministic embedding derived from the url.
func (p *MockProvider) EmbedImage(ctx context.Context, url string) ([]float32, error) {
	p.imageCalls.Add(1)
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Override != nil {
		return p.Override, nil
	}
	return p.derive("image:" + url), nil
}

// EmbedText returns a deterministic embedding derived from the text.
func (p *MockProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	p.textCalls.Add(1)
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Override != nil {
		return p.Override, nil
	}
	return p.derive("text:" + text), nil
}

// Dimensions returns the embedding dimension.
func (p *MockProvider) Dimensions() int {
	return p.dimensions
}

// Close is a no-op for MockProvider.
func (p *MockProvider) Close() error {
	return nil
}

// ImageCalls returns how many times EmbedImage was invoked.
func (p *MockProvider) ImageCalls() int64 { return p.imageCalls.Load() }

// TextCalls returns how many times EmbedText was invoked.
func (p *MockProvider) TextCalls() int64 { return p.textCalls.Load() }

func (p *MockProvider) derive(seed string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	base := h.Sum64()
	emb := make([]float32, p.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(float64(base%1000)*float64(i+1))*0.1 + 0.01)
	}
	// Normalize to unit length for cosine similarity
	var sum float64
	for _, v := range emb {
		sum += float64(v) * float64(v)
	}
	if sum > 0 {
		norm := 1.0 / math.Sqrt(sum)
		for i := range emb {
			emb[i] *= float32(norm)
		}
	}
	return emb
}
