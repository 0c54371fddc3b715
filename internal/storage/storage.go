// Package storage defines the persistence contract for image records and the text-query cache.
package storage

import (
	"context"

	"github.com/hyperjump/miru/internal/models"
)

// Store defines image index and text-query cache operations.
//
// Uniqueness of images.image_hash and text_queries.query is enforced at this
// layer, not by callers: concurrent duplicate ingestions or duplicate cache
// writes resolve to a single winner without application-level locking.
type Store interface {
	// Image index operations
	InsertImage(ctx context.Context, rec *models.ImageRecord) error
	// FindImageByHash returns (nil, nil) when no record has the given hash.
	FindImageByHash(ctx context.Context, hash string) (*models.ImageRecord, error)
	FindImagesByHashes(ctx context.Context, hashes []string) ([]*models.ImageRecord, error)
	// ListEmbedded returns all records with a non-null embedding, ordered by
	// creation time ascending (the deterministic tiebreak order for ranking).
	ListEmbedded(ctx context.Context) ([]*models.ImageRecord, error)
	CountImages(ctx context.Context) (int64, error)

	// Text-query cache operations
	// LookupTextQuery returns (nil, nil) when the query has no cached embedding.
	LookupTextQuery(ctx context.Context, query string) ([]float32, error)
	// StoreTextQueryIfAbsent inserts the embedding unless a row for query
	// already exists; losing the race is not an error.
	StoreTextQueryIfAbsent(ctx context.Context, query string, embedding []float32) error
	CountTextQueries(ctx context.Context) (int64, error)

	Close() error
}
