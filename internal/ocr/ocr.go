// Package ocr provides best-effort text extraction from images via an external model.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/miru/internal/apperr"
)

// Extractor extracts text from the image at url. Callers treat any error as
// non-fatal: ingestion maps failures to empty text and continues.
type Extractor interface {
	ExtractText(ctx context.Context, url string) (string, error)
	Close() error
}

// HTTPExtractor calls an external prediction API (Replicate-style) for OCR.
type HTTPExtractor struct {
	endpoint string
	token    string
	model    string
	client   *http.Client
}

// NewHTTPExtractor creates an extractor for the given prediction endpoint and model.
func NewHTTPExtractor(endpoint, token, model string) (*HTTPExtractor, error) {
	if endpoint == "" || model == "" {
		return nil, fmt.Errorf("endpoint and model are required")
	}
	return &HTTPExtractor{
		endpoint: endpoint,
		token:    token,
		model:    model,
		client:   &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// ExtractText runs the OCR model on the image at url.
func (e *HTTPExtractor) ExtractText(ctx context.Context, url string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"version": e.model,
		"input":   map[string]string{"image": url},
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", apperr.ErrProvider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/predictions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrProvider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrProvider, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", apperr.ErrProvider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: model returned %d", apperr.ErrProvider, resp.StatusCode)
	}

	var pr struct {
		Output json.RawMessage `json:"output"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &pr); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrUnexpectedResponseFormat, err)
	}
	if pr.Error != "" {
		return "", fmt.Errorf("%w: model error: %s", apperr.ErrProvider, pr.Error)
	}
	return extractText(pr.Output)
}

// Close is a no-op for HTTPExtractor.
func (e *HTTPExtractor) Close() error {
	return nil
}

// extractText normalizes the OCR output: a bare string or an object with a
// "text" field. Anything else fails with ErrUnexpectedResponseFormat.
func extractText(output json.RawMessage) (string, error) {
	if len(output) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(output, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(output, &obj); err == nil && obj.Text != "" {
		return strings.TrimSpace(obj.Text), nil
	}
	return "", fmt.Errorf("%w: OCR output is neither string nor text object", apperr.ErrUnexpectedResponseFormat)
}

// MockExtractor is a deterministic extractor for tests.
type MockExtractor struct {
	// Text is returned for every call.
	Text string
	// Err, when set, is returned instead.
	Err   error
	calls int
}

// ExtractText returns the configured text or error.
func (m *MockExtractor) ExtractText(ctx context.Context, url string) (string, error) {
	m.calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}

// Close is a no-op for MockExtractor.
func (m *MockExtractor) Close() error { return nil }

// Calls returns how many times ExtractText was invoked.
func (m *MockExtractor) Calls() int { return m.calls }
