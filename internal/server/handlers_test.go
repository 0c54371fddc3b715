package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/apperr"
	"github.com/hyperjump/miru/internal/config"
	"github.com/hyperjump/miru/internal/embedding"
	"github.com/hyperjump/miru/internal/ingest"
	"github.com/hyperjump/miru/internal/keyword"
	"github.com/hyperjump/miru/internal/models"
	"github.com/hyperjump/miru/internal/ocr"
	"github.com/hyperjump/miru/internal/search"
	"github.com/hyperjump/miru/internal/storage"
)

const testDims = 8

func newTestServer(t *testing.T) (*Server, *embedding.MockProvider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	idx, err := keyword.NewBleveIndex(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	provider := embedding.NewMockProvider(testDims)
	engine := search.NewEngine(store, provider, &cfg.Search,
		search.WithKeywordIndex(idx),
		search.WithQueryCache(embedding.NewCache(100)),
	)
	ingestor := ingest.NewIngestor(store, provider,
		ingest.WithOCR(&ocr.MockExtractor{Text: "BEACH RULES"}),
		ingest.WithKeywordIndex(idx),
	)
	return NewServer(engine, ingestor, store, &cfg.Server, zap.NewNop(), cfg), provider
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleUpload_ThenCached(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	body := map[string]any{"image_url": "https://x/a.png", "tags": []string{"dog", "beach"}}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/upload", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var first models.IngestResult
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatal(err)
	}
	if first.Cached || first.EmbeddingDimensions != testDims {
		t.Errorf("unexpected first result %+v", first)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/upload", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for cached, got %d", rec.Code)
	}
	var second models.IngestResult
	_ = json.Unmarshal(rec.Body.Bytes(), &second)
	if !second.Cached || second.ImageHash != first.ImageHash {
		t.Errorf("expected cached repeat with same hash, got %+v", second)
	}
}

func TestHandleUpload_MissingURL(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/upload", map[string]any{"tags": []string{"x"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSearch_TextFindsIngested(t *testing.T) {
	srv, provider := newTestServer(t)
	router := srv.Router()

	doJSON(t, router, http.MethodPost, "/api/v1/upload", map[string]any{"image_url": "https://x/a.png"})

	// Identical embedding for query and image: similarity 1, above threshold.
	vec, _ := provider.EmbedImage(context.Background(), "https://x/a.png")
	provider.Override = vec
	rec := doJSON(t, router, http.MethodPost, "/api/v1/search", map[string]any{
		"query_type": "text", "input": "a dog on a beach", "threshold": 0.1, "limit": 10,
	})
	provider.Override = nil
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.MatchCount != 1 {
		t.Fatalf("expected 1 match, got %d", resp.MatchCount)
	}
	if resp.Results[0].Similarity <= 0.1 {
		t.Errorf("similarity %f not above threshold", resp.Results[0].Similarity)
	}
}

func TestHandleSearch_InvalidQueryType(t *testing.T) {
	srv, provider := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/search", map[string]any{
		"query_type": "bogus", "input": "x",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if provider.TextCalls() != 0 && provider.ImageCalls() != 0 {
		t.Error("invalid query type must not reach the provider")
	}
}

func TestHandleSearch_ProviderFailure(t *testing.T) {
	srv, provider := newTestServer(t)
	provider.Err = apperr.ErrProvider
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/search", map[string]any{
		"query_type": "text", "input": "x",
	})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
}

func TestHandleKeywordSearch(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()
	doJSON(t, router, http.MethodPost, "/api/v1/upload", map[string]any{
		"image_url": "https://x/a.png", "tags": []string{"dog"},
	})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/keyword-search", map[string]any{"query": "beach"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.KeywordResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.MatchCount != 1 {
		t.Errorf("expected OCR text match, got %+v", resp)
	}
}

func TestHandleGetImage(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/upload", map[string]any{"image_url": "https://x/a.png"})
	var res models.IngestResult
	_ = json.Unmarshal(rec.Body.Bytes(), &res)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/images/"+res.ImageHash, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/v1/images/doesnotexist", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()
	doJSON(t, router, http.MethodPost, "/api/v1/upload", map[string]any{"image_url": "https://x/a.png"})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["images"].(float64) != 1 {
		t.Errorf("expected 1 image, got %v", resp["images"])
	}
	if _, ok := resp["config"]; !ok {
		t.Error("expected config echo in status")
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
