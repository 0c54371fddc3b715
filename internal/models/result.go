package models

import "time"

// SearchResult is a single similarity hit: a view over an ImageRecord plus
// its similarity score in [0,1] and rank position.
type SearchResult struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	Tags          []string  `json:"tags"`
	ImageHash     string    `json:"image_hash,omitempty"`
	ExtractedText string    `json:"extracted_text,omitempty"`
	Similarity    float64   `json:"similarity"`
	Rank          int       `json:"rank"`
	CreatedAt     time.Time `json:"created_at"`
}

// SearchResponse is the response for a similarity search request.
// Results are ordered by descending similarity. CacheHit is true when the
// query embedding came from the text-query cache.
type SearchResponse struct {
	Results    []*SearchResult `json:"results"`
	QueryType  string          `json:"query_type"`
	MatchCount int             `json:"match_count"`
	CacheHit   bool            `json:"cache_hit,omitempty"`
	QueryTime  int64           `json:"query_time_ms"`
}

// KeywordResult is a single lexical search hit.
type KeywordResult struct {
	ID            string   `json:"id"`
	URL           string   `json:"url"`
	Tags          []string `json:"tags"`
	ImageHash     string   `json:"image_hash"`
	ExtractedText string   `json:"extracted_text,omitempty"`
	Score         float64  `json:"score"`
	Rank          int      `json:"rank"`
}

// KeywordResponse is the response for a lexical search request.
type KeywordResponse struct {
	Results    []*KeywordResult `json:"results"`
	MatchCount int              `json:"match_count"`
	QueryTime  int64            `json:"query_time_ms"`
}
