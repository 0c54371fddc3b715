package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/miru/internal/apperr"
	"github.com/hyperjump/miru/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(id, hash string) *models.ImageRecord {
	return &models.ImageRecord{
		ID:            id,
		URL:           "https://x/" + id + ".png",
		ImageHash:     hash,
		Embedding:     []float32{0.1, 0.2, 0.3},
		Tags:          []string{"dog", "beach"},
		ExtractedText: "BEACH RULES",
	}
}

func TestSQLiteStore_InsertAndFind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("r1", "hash1")
	if err := store.InsertImage(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set on insert")
	}

	got, err := store.FindImageByHash(ctx, "hash1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected record")
	}
	if got.URL != rec.URL || got.ImageHash != "hash1" || got.ExtractedText != "BEACH RULES" {
		t.Errorf("got %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "dog" {
		t.Errorf("tags not round-tripped: %v", got.Tags)
	}
	if len(got.Embedding) != 3 || got.Embedding[1] != 0.2 {
		t.Errorf("embedding not round-tripped: %v", got.Embedding)
	}
}

func TestSQLiteStore_FindAbsent(t *testing.T) {
	store := newTestStore(t)
	got, err := store.FindImageByHash(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected nil for absent hash, got %+v", got)
	}
}

func TestSQLiteStore_FindImagesByHashes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.InsertImage(ctx, testRecord(id, "hash-"+id)); err != nil {
			t.Fatal(err)
		}
	}

	// Results follow the requested order, not insertion order; unknown hashes are skipped.
	recs, err := store.FindImagesByHashes(ctx, []string{"hash-c", "hash-missing", "hash-a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].ID != "c" || recs[1].ID != "a" {
		t.Errorf("expected order [c a], got [%s %s]", recs[0].ID, recs[1].ID)
	}

	empty, err := store.FindImagesByHashes(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no records for empty input, got %d", len(empty))
	}
}

func TestSQLiteStore_DuplicateHash(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.InsertImage(ctx, testRecord("r1", "same")); err != nil {
		t.Fatal(err)
	}
	err := store.InsertImage(ctx, testRecord("r2", "same"))
	if !errors.Is(err, apperr.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	count, err := store.CountImages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected exactly one record, got %d", count)
	}
}

func TestSQLiteStore_ConcurrentDuplicateInserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := testRecord("r"+string(rune('a'+i)), "contended")
			errs[i] = store.InsertImage(ctx, rec)
		}(i)
	}
	wg.Wait()

	var wins, dups int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, apperr.ErrDuplicateKey):
			dups++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d (dups %d)", wins, dups)
	}
	count, _ := store.CountImages(ctx)
	if count != 1 {
		t.Errorf("expected one row after race, got %d", count)
	}
}

func TestSQLiteStore_ListEmbeddedOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, hash := range []string{"h1", "h2", "h3"} {
		rec := testRecord("r"+hash, hash)
		rec.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := store.InsertImage(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	noEmbed := testRecord("r4", "h4")
	noEmbed.Embedding = nil
	if err := store.InsertImage(ctx, noEmbed); err != nil {
		t.Fatal(err)
	}

	recs, err := store.ListEmbedded(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 embedded records, got %d", len(recs))
	}
	for i, want := range []string{"h1", "h2", "h3"} {
		if recs[i].ImageHash != want {
			t.Errorf("position %d: expected %s, got %s", i, want, recs[i].ImageHash)
		}
	}
}

func TestSQLiteStore_TextQueryCache(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	got, err := store.LookupTextQuery(ctx, "a dog on a beach")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("expected miss on empty cache")
	}

	vec := []float32{0.5, -0.25, 0.125}
	if err := store.StoreTextQueryIfAbsent(ctx, "a dog on a beach", vec); err != nil {
		t.Fatal(err)
	}
	got, err = store.LookupTextQuery(ctx, "a dog on a beach")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != 0.5 {
		t.Errorf("cached vector not round-tripped: %v", got)
	}

	// Exact match only: different whitespace is a different key.
	got, _ = store.LookupTextQuery(ctx, "a dog on a beach ")
	if got != nil {
		t.Error("lookup must be exact-match")
	}
}

func TestSQLiteStore_StoreTextQueryIfAbsent_KeepsFirstWriter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := []float32{1, 0}
	second := []float32{0, 1}
	if err := store.StoreTextQueryIfAbsent(ctx, "q", first); err != nil {
		t.Fatal(err)
	}
	// Losing the race is not an error, and does not overwrite.
	if err := store.StoreTextQueryIfAbsent(ctx, "q", second); err != nil {
		t.Fatal(err)
	}
	got, err := store.LookupTextQuery(ctx, "q")
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 1 || got[1] != 0 {
		t.Errorf("first writer's row should win, got %v", got)
	}

	count, _ := store.CountTextQueries(ctx)
	if count != 1 {
		t.Errorf("expected one cache row, got %d", count)
	}
}

func TestSQLiteStore_ConcurrentTextQueryWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.StoreTextQueryIfAbsent(ctx, "contended", []float32{float32(i)}); err != nil {
				t.Errorf("concurrent write failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	count, err := store.CountTextQueries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected exactly one row per query, got %d", count)
	}
}
