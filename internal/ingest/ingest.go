// Package ingest implements the image ingestion pipeline: hash, dedup, embed,
// OCR, persist.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/apperr"
	"github.com/hyperjump/miru/internal/embedding"
	"github.com/hyperjump/miru/internal/imagehash"
	"github.com/hyperjump/miru/internal/keyword"
	"github.com/hyperjump/miru/internal/models"
	"github.com/hyperjump/miru/internal/ocr"
	"github.com/hyperjump/miru/internal/storage"
	"github.com/hyperjump/miru/internal/vector"
)

// Ingestor runs the ingestion pipeline for image references.
//
// Re-ingesting a known reference returns the existing record without touching
// the external model; a concurrent duplicate resolves to the winner's record.
type Ingestor struct {
	store    storage.Store
	provider embedding.Provider
	ocr      ocr.Extractor
	keyword  keyword.Index
	logger   *zap.Logger
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithOCR enables best-effort text extraction during ingestion.
func WithOCR(e ocr.Extractor) IngestorOption {
	return func(ing *Ingestor) { ing.ocr = e }
}

// WithKeywordIndex enables lexical indexing of ingested records.
func WithKeywordIndex(idx keyword.Index) IngestorOption {
	return func(ing *Ingestor) { ing.keyword = idx }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IngestorOption {
	return func(ing *Ingestor) { ing.logger = l }
}

// NewIngestor creates an ingestor with the given dependencies.
func NewIngestor(store storage.Store, provider embedding.Provider, opts ...IngestorOption) *Ingestor {
	ing := &Ingestor{
		store:    store,
		provider: provider,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Ingest hashes the reference, returns the existing record on a dedup hit, and
// otherwise embeds, runs best-effort OCR, and persists a new record. Provider
// and dimension failures abort with no partial write; OCR failures degrade to
// empty text and never block indexing.
func (ing *Ingestor) Ingest(ctx context.Context, input *models.IngestInput) (*models.IngestResult, error) {
	if input.ImageURL == "" {
		return nil, fmt.Errorf("%w: image_url is required", apperr.ErrMissingInput)
	}
	hash := imagehash.Sum(input.ImageURL)

	existing, err := ing.store.FindImageByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		ing.logger.Debug("using cached embedding", zap.String("image_hash", hash))
		return resultFrom(existing, true), nil
	}

	vec, err := ing.provider.EmbedImage(ctx, input.ImageURL)
	if err != nil {
		return nil, err
	}
	if err := vector.ValidateDimension(vec, ing.provider.Dimensions()); err != nil {
		return nil, err
	}

	extracted := ing.extractText(ctx, input.ImageURL)

	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}
	rec := &models.ImageRecord{
		ID:            uuid.New().String(),
		URL:           input.ImageURL,
		ImageHash:     hash,
		Embedding:     vec,
		Tags:          tags,
		ExtractedText: extracted,
	}
	if err := ing.store.InsertImage(ctx, rec); err != nil {
		if errors.Is(err, apperr.ErrDuplicateKey) {
			// A concurrent request won the insert race; return its record.
			winner, readErr := ing.store.FindImageByHash(ctx, hash)
			if readErr != nil {
				return nil, readErr
			}
			if winner == nil {
				return nil, fmt.Errorf("%w: record vanished after duplicate insert", apperr.ErrStorage)
			}
			ing.logger.Debug("lost ingestion race, returning winner", zap.String("image_hash", hash))
			return resultFrom(winner, true), nil
		}
		return nil, err
	}

	ing.indexKeywords(ctx, rec)

	ing.logger.Debug("image ingested",
		zap.String("image_hash", hash),
		zap.Int("dimensions", len(vec)),
		zap.Int("extracted_chars", len(extracted)),
	)
	return resultFrom(rec, false), nil
}

// extractText runs OCR and maps any failure to empty text. OCR is the one
// fully-swallowed failure class in the pipeline.
func (ing *Ingestor) extractText(ctx context.Context, url string) string {
	if ing.ocr == nil {
		return ""
	}
	text, err := ing.ocr.ExtractText(ctx, url)
	if err != nil {
		ing.logger.Warn("OCR failed, continuing without text extraction",
			zap.String("url", url), zap.Error(err))
		return ""
	}
	return text
}

// indexKeywords adds the record to the lexical index. The record is already
// persisted at this point, so indexing failure is logged, not surfaced.
func (ing *Ingestor) indexKeywords(ctx context.Context, rec *models.ImageRecord) {
	if ing.keyword == nil {
		return
	}
	doc := &keyword.ImageDocument{
		URL:           rec.URL,
		Tags:          strings.Join(rec.Tags, " "),
		ExtractedText: rec.ExtractedText,
	}
	if err := ing.keyword.Index(ctx, rec.ImageHash, doc); err != nil {
		ing.logger.Warn("keyword indexing failed", zap.String("image_hash", rec.ImageHash), zap.Error(err))
	}
}

func resultFrom(rec *models.ImageRecord, cached bool) *models.IngestResult {
	return &models.IngestResult{
		ImageHash:           rec.ImageHash,
		URL:                 rec.URL,
		Tags:                rec.Tags,
		ExtractedText:       rec.ExtractedText,
		EmbeddingDimensions: len(rec.Embedding),
		Cached:              cached,
	}
}
