package models

import (
	"fmt"

	"github.com/hyperjump/miru/internal/apperr"
)

// Query types accepted by similarity search.
const (
	QueryTypeImage = "image"
	QueryTypeText  = "text"
)

// SearchQuery is a similarity search request. Input is an image URL when
// QueryType is "image", or free text when QueryType is "text".
// Threshold is a pointer so that an explicit 0 is distinguishable from unset.
type SearchQuery struct {
	QueryType string   `json:"query_type"`
	Input     string   `json:"input"`
	Threshold *float64 `json:"threshold,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

// Validate checks the query and applies defaults for threshold and limit.
// Runs before any external call so a bad query never costs an embedding.
func (q *SearchQuery) Validate(defaultThreshold float64, defaultLimit, maxLimit int) error {
	if q.Input == "" {
		return fmt.Errorf("%w: input is required", apperr.ErrMissingInput)
	}
	if q.QueryType != QueryTypeImage && q.QueryType != QueryTypeText {
		return fmt.Errorf("%w: %q (must be %q or %q)", apperr.ErrInvalidQueryType, q.QueryType, QueryTypeImage, QueryTypeText)
	}
	if q.Threshold == nil {
		t := defaultThreshold
		q.Threshold = &t
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return nil
}

// KeywordQuery is a lexical search request over tags and OCR-extracted text.
type KeywordQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Validate checks the query and normalizes the limit.
func (q *KeywordQuery) Validate(defaultLimit, maxLimit int) error {
	if q.Query == "" {
		return fmt.Errorf("%w: query is required", apperr.ErrMissingInput)
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return nil
}
