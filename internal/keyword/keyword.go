// Package keyword provides lexical (BM25) search over tags and OCR-extracted text.
package keyword

import "context"

// Index defines lexical indexing and search over image records.
// Document IDs are image content hashes.
type Index interface {
	Index(ctx context.Context, hash string, doc *ImageDocument) error
	Search(ctx context.Context, query string, limit int) ([]*Hit, error)
	DocCount() (uint64, error)
	Close() error
}

// ImageDocument is the lexical view of an image record.
type ImageDocument struct {
	URL           string `json:"url"`
	Tags          string `json:"tags"`
	ExtractedText string `json:"extracted_text"`
}

// Hit is a single lexical search result.
type Hit struct {
	Hash  string
	Score float64
}
