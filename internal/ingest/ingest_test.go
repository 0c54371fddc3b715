package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hyperjump/miru/internal/apperr"
	"github.com/hyperjump/miru/internal/embedding"
	"github.com/hyperjump/miru/internal/imagehash"
	"github.com/hyperjump/miru/internal/keyword"
	"github.com/hyperjump/miru/internal/models"
	"github.com/hyperjump/miru/internal/ocr"
	"github.com/hyperjump/miru/internal/storage"
)

const testDims = 8

func newTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestIngestor_NewImage(t *testing.T) {
	store := newTestStore(t)
	provider := embedding.NewMockProvider(testDims)
	extractor := &ocr.MockExtractor{Text: "NO DOGS ALLOWED"}
	ing := NewIngestor(store, provider, WithOCR(extractor))

	res, err := ing.Ingest(context.Background(), &models.IngestInput{
		ImageURL: "https://x/a.png",
		Tags:     []string{"dog", "beach"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Cached {
		t.Error("first ingestion should not be cached")
	}
	if res.ImageHash != imagehash.Sum("https://x/a.png") {
		t.Errorf("unexpected hash %s", res.ImageHash)
	}
	if res.EmbeddingDimensions != testDims {
		t.Errorf("expected %d dimensions, got %d", testDims, res.EmbeddingDimensions)
	}
	if res.ExtractedText != "NO DOGS ALLOWED" {
		t.Errorf("expected OCR text, got %q", res.ExtractedText)
	}

	rec, err := store.FindImageByHash(context.Background(), res.ImageHash)
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil {
		t.Fatal("record not persisted")
	}
	if len(rec.Tags) != 2 || rec.Tags[1] != "beach" {
		t.Errorf("tags not persisted: %v", rec.Tags)
	}
}

func TestIngestor_RepeatIsCached(t *testing.T) {
	store := newTestStore(t)
	provider := embedding.NewMockProvider(testDims)
	ing := NewIngestor(store, provider)
	ctx := context.Background()
	input := &models.IngestInput{ImageURL: "https://x/a.png", Tags: []string{"dog", "beach"}}

	first, err := ing.Ingest(ctx, input)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ing.Ingest(ctx, input)
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached || !second.Cached {
		t.Errorf("expected cached=false then true, got %v then %v", first.Cached, second.Cached)
	}
	if first.ImageHash != second.ImageHash {
		t.Error("hash must be stable across ingestions")
	}
	if provider.ImageCalls() != 1 {
		t.Errorf("repeat ingestion must not re-embed, calls=%d", provider.ImageCalls())
	}

	count, _ := store.CountImages(ctx)
	if count != 1 {
		t.Errorf("expected exactly one record, got %d", count)
	}
}

func TestIngestor_ConcurrentSameURL(t *testing.T) {
	store := newTestStore(t)
	provider := embedding.NewMockProvider(testDims)
	ing := NewIngestor(store, provider)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*models.IngestResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := ing.Ingest(ctx, &models.IngestInput{ImageURL: "https://x/contended.png"})
			if err != nil {
				t.Errorf("concurrent ingest failed: %v", err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	count, err := store.CountImages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected exactly one record after race, got %d", count)
	}
	var fresh int
	for _, res := range results {
		if res != nil && !res.Cached {
			fresh++
		}
	}
	if fresh > 1 {
		t.Errorf("at most one caller should observe cached=false, got %d", fresh)
	}
}

func TestIngestor_MissingURL(t *testing.T) {
	ing := NewIngestor(newTestStore(t), embedding.NewMockProvider(testDims))
	_, err := ing.Ingest(context.Background(), &models.IngestInput{})
	if !errors.Is(err, apperr.ErrMissingInput) {
		t.Errorf("expected ErrMissingInput, got %v", err)
	}
}

func TestIngestor_ProviderFailureNoPartialWrite(t *testing.T) {
	store := newTestStore(t)
	provider := embedding.NewMockProvider(testDims)
	provider.Err = apperr.ErrProvider
	ing := NewIngestor(store, provider)
	ctx := context.Background()

	_, err := ing.Ingest(ctx, &models.IngestInput{ImageURL: "https://x/a.png"})
	if !errors.Is(err, apperr.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
	count, _ := store.CountImages(ctx)
	if count != 0 {
		t.Errorf("failed embedding must leave no partial write, got %d rows", count)
	}
}

func TestIngestor_WrongDimensionNoPartialWrite(t *testing.T) {
	store := newTestStore(t)
	provider := embedding.NewMockProvider(768)
	provider.Override = make([]float32, 512)
	ing := NewIngestor(store, provider)
	ctx := context.Background()

	_, err := ing.Ingest(ctx, &models.IngestInput{ImageURL: "https://x/a.png"})
	if !errors.Is(err, apperr.ErrDimension) {
		t.Fatalf("expected ErrDimension, got %v", err)
	}
	count, _ := store.CountImages(ctx)
	if count != 0 {
		t.Errorf("dimension mismatch must leave no partial write, got %d rows", count)
	}
}

func TestIngestor_OCRFailureDegradesToEmptyText(t *testing.T) {
	store := newTestStore(t)
	extractor := &ocr.MockExtractor{Err: apperr.ErrProvider}
	ing := NewIngestor(store, embedding.NewMockProvider(testDims), WithOCR(extractor))

	res, err := ing.Ingest(context.Background(), &models.IngestInput{ImageURL: "https://x/a.png"})
	if err != nil {
		t.Fatalf("OCR failure must not block ingestion: %v", err)
	}
	if res.ExtractedText != "" {
		t.Errorf("expected empty text after OCR failure, got %q", res.ExtractedText)
	}
	if res.Cached {
		t.Error("record should still be newly persisted")
	}
}

func TestIngestor_IndexesKeywords(t *testing.T) {
	store := newTestStore(t)
	idx, err := keyword.NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	extractor := &ocr.MockExtractor{Text: "BEACH RULES"}
	ing := NewIngestor(store, embedding.NewMockProvider(testDims), WithOCR(extractor), WithKeywordIndex(idx))
	ctx := context.Background()

	res, err := ing.Ingest(ctx, &models.IngestInput{ImageURL: "https://x/a.png", Tags: []string{"dog"}})
	if err != nil {
		t.Fatal(err)
	}
	hits, err := idx.Search(ctx, "beach", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Hash != res.ImageHash {
		t.Errorf("expected keyword hit for OCR text, got %+v", hits)
	}
}
