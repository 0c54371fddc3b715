package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hyperjump/miru/internal/apperr"
	"github.com/hyperjump/miru/internal/vector"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPProvider calls an external prediction API (Replicate-style) for embeddings.
// Requests are paced with a client-side rate limiter; the API is asked to block
// until the prediction completes ("Prefer: wait").
type HTTPProvider struct {
	endpoint string
	token    string
	model    string
	dims     int
	client   *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// HTTPProviderOption configures an HTTPProvider.
type HTTPProviderOption func(*HTTPProvider)

// WithHTTPClient sets the HTTP client (e.g. with a caller-side timeout).
func WithHTTPClient(c *http.Client) HTTPProviderOption {
	return func(p *HTTPProvider) { p.client = c }
}

// WithRateLimit paces outgoing calls at rps requests per second.
func WithRateLimit(rps float64) HTTPProviderOption {
	return func(p *HTTPProvider) {
		if rps > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) HTTPProviderOption {
	return func(p *HTTPProvider) { p.logger = l }
}

// NewHTTPProvider creates a provider for the given prediction endpoint, model
// identifier, and expected embedding dimensionality.
func NewHTTPProvider(endpoint, token, model string, dims int, opts ...HTTPProviderOption) (*HTTPProvider, error) {
	if endpoint == "" || model == "" {
		return nil, fmt.Errorf("endpoint and model are required")
	}
	if dims <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	p := &HTTPProvider{
		endpoint: endpoint,
		token:    token,
		model:    model,
		dims:     dims,
		client:   &http.Client{Timeout: 120 * time.Second},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// EmbedImage returns the embedding for the image at url.
func (p *HTTPProvider) EmbedImage(ctx context.Context, url string) ([]float32, error) {
	return p.predict(ctx, map[string]string{"image": url})
}

// EmbedText returns the embedding for the given text.
func (p *HTTPProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return p.predict(ctx, map[string]string{"text": text})
}

// Dimensions returns the expected embedding dimensionality.
func (p *HTTPProvider) Dimensions() int {
	return p.dims
}

// Close is a no-op for HTTPProvider.
func (p *HTTPProvider) Close() error {
	return nil
}

type predictionRequest struct {
	Version string            `json:"version"`
	Input   map[string]string `json:"input"`
}

type predictionResponse struct {
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

func (p *HTTPProvider) predict(ctx context.Context, input map[string]string) ([]float32, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrProvider, err)
		}
	}

	body, err := json.Marshal(predictionRequest{Version: p.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", apperr.ErrProvider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrProvider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrProvider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", apperr.ErrProvider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: model returned %d: %s", apperr.ErrProvider, resp.StatusCode, truncateBody(raw))
	}

	var pr predictionResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnexpectedResponseFormat, err)
	}
	if pr.Error != "" {
		return nil, fmt.Errorf("%w: model error: %s", apperr.ErrProvider, pr.Error)
	}

	vec, err := extractVector(pr.Output)
	if err != nil {
		return nil, err
	}
	if err := vector.ValidateDimension(vec, p.dims); err != nil {
		return nil, err
	}
	p.logger.Debug("embedding generated",
		zap.Int("dimensions", len(vec)),
		zap.Duration("latency", time.Since(start)),
	)
	return vec, nil
}

// extractVector normalizes the model's output into a flat vector. The model
// has been observed to return three shapes: an array wrapping an object with
// an "embedding" field, a bare object with that field, or a bare numeric
// array. Anything else fails with ErrUnexpectedResponseFormat.
func extractVector(output json.RawMessage) ([]float32, error) {
	if len(output) == 0 {
		return nil, fmt.Errorf("%w: empty output", apperr.ErrUnexpectedResponseFormat)
	}

	var wrapped []struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(output, &wrapped); err == nil && len(wrapped) > 0 && wrapped[0].Embedding != nil {
		return wrapped[0].Embedding, nil
	}

	var obj struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(output, &obj); err == nil && obj.Embedding != nil {
		return obj.Embedding, nil
	}

	var flat []float32
	if err := json.Unmarshal(output, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}

	return nil, fmt.Errorf("%w: output is not an embedding envelope", apperr.ErrUnexpectedResponseFormat)
}

func truncateBody(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
