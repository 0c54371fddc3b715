// Package search provides the similarity search engine and its query-embedding paths.
package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/miru/internal/config"
	"github.com/hyperjump/miru/internal/embedding"
	"github.com/hyperjump/miru/internal/keyword"
	"github.com/hyperjump/miru/internal/models"
	"github.com/hyperjump/miru/internal/storage"
	"github.com/hyperjump/miru/internal/vector"
)

// Engine ranks stored image records against a query embedding.
//
// The text path goes through two cache layers: an in-process LRU and the
// persisted text-query cache. Concurrent misses for the same query are
// collapsed with singleflight so one external call serves all racers; the
// store's insert-if-absent remains the authoritative dedup boundary.
type Engine struct {
	store    storage.Store
	provider embedding.Provider
	keyword  keyword.Index
	l1       *embedding.Cache
	group    singleflight.Group
	config   *config.SearchConfig
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithKeywordIndex enables the lexical search leg.
func WithKeywordIndex(idx keyword.Index) EngineOption {
	return func(e *Engine) { e.keyword = idx }
}

// WithQueryCache sets the in-process LRU in front of the persisted text-query cache.
func WithQueryCache(c *embedding.Cache) EngineOption {
	return func(e *Engine) { e.l1 = c }
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(store storage.Store, provider embedding.Provider, cfg *config.SearchConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		provider: provider,
		config:   cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search validates the query, resolves its embedding (image path direct,
// text path through the caches), and returns ranked matches.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := query.Validate(e.config.DefaultThreshold, e.config.DefaultLimit, e.config.MaxLimit); err != nil {
		return nil, err
	}

	var (
		queryVec []float32
		cacheHit bool
		err      error
	)
	switch query.QueryType {
	case models.QueryTypeImage:
		queryVec, err = e.provider.EmbedImage(ctx, query.Input)
	case models.QueryTypeText:
		queryVec, cacheHit, err = e.textQueryVector(ctx, query.Input)
	}
	if err != nil {
		return nil, err
	}
	// Cached vectors are re-validated too: wrong length is rejected regardless of source.
	if err := vector.ValidateDimension(queryVec, e.provider.Dimensions()); err != nil {
		return nil, err
	}

	results, err := e.rank(ctx, queryVec, *query.Threshold, query.Limit)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("similarity search",
		zap.String("query_type", query.QueryType),
		zap.Bool("cache_hit", cacheHit),
		zap.Int("matches", len(results)),
	)
	return &models.SearchResponse{
		Results:    results,
		QueryType:  query.QueryType,
		MatchCount: len(results),
		CacheHit:   cacheHit,
		QueryTime:  time.Since(start).Milliseconds(),
	}, nil
}

// textQueryVector resolves the embedding for a text query: in-process LRU,
// then the persisted cache, then one collapsed call to the external model.
// The second return is true when the embedding came from one of the cache
// layers; callers that joined a flight which called the model report false.
func (e *Engine) textQueryVector(ctx context.Context, text string) ([]float32, bool, error) {
	if e.l1 != nil {
		if vec, ok := e.l1.Get(text); ok {
			return vec, true, nil
		}
	}

	vec, err := e.store.LookupTextQuery(ctx, text)
	if err != nil {
		return nil, false, err
	}
	if vec != nil {
		if e.l1 != nil {
			e.l1.Set(text, vec)
		}
		return vec, true, nil
	}

	type flight struct {
		vec       []float32
		fromCache bool
	}
	v, err, _ := e.group.Do(text, func() (any, error) {
		// Another flight may have persisted the embedding between our miss and now.
		if cached, err := e.store.LookupTextQuery(ctx, text); err == nil && cached != nil {
			return flight{vec: cached, fromCache: true}, nil
		}
		fresh, err := e.provider.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		if err := vector.ValidateDimension(fresh, e.provider.Dimensions()); err != nil {
			return nil, err
		}
		// Cache write failure is not fatal to the search; the embedding is in hand.
		if err := e.store.StoreTextQueryIfAbsent(ctx, text, fresh); err != nil {
			e.logger.Warn("failed to cache text embedding", zap.Error(err))
		}
		return flight{vec: fresh}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(flight)
	if e.l1 != nil {
		e.l1.Set(text, res.vec)
	}
	return res.vec, res.fromCache, nil
}

// rank scores every stored record with a non-null embedding against queryVec.
// Records with cosine distance < 1 - threshold are kept (similarity above
// threshold), ordered by distance ascending with creation order as the
// tiebreak, and truncated to limit. Zero matches is a valid outcome.
func (e *Engine) rank(ctx context.Context, queryVec []float32, threshold float64, limit int) ([]*models.SearchResult, error) {
	records, err := e.store.ListEmbedded(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		rec      *models.ImageRecord
		distance float64
		order    int
	}
	matches := make([]scored, 0, len(records))
	cutoff := 1 - threshold
	for i, rec := range records {
		if len(rec.Embedding) != len(queryVec) {
			continue
		}
		d := vector.CosineDistance(queryVec, rec.Embedding)
		if d < cutoff {
			matches = append(matches, scored{rec: rec, distance: d, order: i})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].order < matches[j].order
	})
	if limit < len(matches) {
		matches = matches[:limit]
	}

	results := make([]*models.SearchResult, len(matches))
	for i, m := range matches {
		results[i] = &models.SearchResult{
			ID:            m.rec.ID,
			URL:           m.rec.URL,
			Tags:          m.rec.Tags,
			ImageHash:     m.rec.ImageHash,
			ExtractedText: m.rec.ExtractedText,
			Similarity:    vector.ClampSimilarity(1 - m.distance),
			Rank:          i + 1,
			CreatedAt:     m.rec.CreatedAt,
		}
	}
	return results, nil
}

// KeywordDocCount returns the number of lexically indexed images, or
// (0, false) when no keyword index is configured.
func (e *Engine) KeywordDocCount() (uint64, bool) {
	if e.keyword == nil {
		return 0, false
	}
	n, err := e.keyword.DocCount()
	if err != nil {
		return 0, false
	}
	return n, true
}

// KeywordSearch runs the lexical leg over tags and OCR-extracted text.
func (e *Engine) KeywordSearch(ctx context.Context, query *models.KeywordQuery) (*models.KeywordResponse, error) {
	start := time.Now()
	if e.keyword == nil {
		return nil, fmt.Errorf("keyword index not configured")
	}
	if err := query.Validate(e.config.DefaultLimit, e.config.MaxLimit); err != nil {
		return nil, err
	}
	hits, err := e.keyword.Search(ctx, query.Query, query.Limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	hashes := make([]string, len(hits))
	scoreByHash := make(map[string]float64, len(hits))
	for i, h := range hits {
		hashes[i] = h.Hash
		scoreByHash[h.Hash] = h.Score
	}
	records, err := e.store.FindImagesByHashes(ctx, hashes)
	if err != nil {
		return nil, err
	}
	results := make([]*models.KeywordResult, len(records))
	for i, rec := range records {
		results[i] = &models.KeywordResult{
			ID:            rec.ID,
			URL:           rec.URL,
			Tags:          rec.Tags,
			ImageHash:     rec.ImageHash,
			ExtractedText: rec.ExtractedText,
			Score:         scoreByHash[rec.ImageHash],
			Rank:          i + 1,
		}
	}
	return &models.KeywordResponse{
		Results:    results,
		MatchCount: len(results),
		QueryTime:  time.Since(start).Milliseconds(),
	}, nil
}
