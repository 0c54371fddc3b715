// Package models defines core data structures for image records, queries, and search results.
package models

import "time"

// ImageRecord is a stored image with its embedding and OCR-extracted text.
// Records are created once by ingestion and never updated.
type ImageRecord struct {
	ID            string    `json:"id" db:"id"`
	URL           string    `json:"url" db:"url"`
	ImageHash     string    `json:"image_hash" db:"image_hash"`
	Embedding     []float32 `json:"-" db:"-"`
	Tags          []string  `json:"tags" db:"tags"`
	ExtractedText string    `json:"extracted_text,omitempty" db:"extracted_text"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// IngestInput is the input for ingesting an image reference.
type IngestInput struct {
	ImageURL string   `json:"image_url"`
	Tags     []string `json:"tags,omitempty"`
}

// IngestResult is returned after ingestion. Cached is true when the reference
// was already indexed and no embedding was generated for this call.
type IngestResult struct {
	ImageHash           string   `json:"image_hash"`
	URL                 string   `json:"url"`
	Tags                []string `json:"tags"`
	ExtractedText       string   `json:"extracted_text,omitempty"`
	EmbeddingDimensions int      `json:"embedding_dimensions"`
	Cached              bool     `json:"cached"`
}
