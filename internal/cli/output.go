// Package cli provides CLI utilities for Miru.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/miru/internal/models"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// WriteSearchResults writes similarity search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d matches in %dms (query_type=%s", response.MatchCount, response.QueryTime, response.QueryType)
	if response.CacheHit {
		fmt.Fprintf(w, ", cache hit")
	}
	fmt.Fprintf(w, ")\n\n")
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Similarity: %.4f\n", result.Rank, result.Similarity)
		fmt.Fprintf(w, "URL: %s\n", result.URL)
		fmt.Fprintf(w, "Hash: %s\n", result.ImageHash)
		if len(result.Tags) > 0 {
			fmt.Fprintf(w, "Tags: %s\n", strings.Join(result.Tags, ", "))
		}
		if result.ExtractedText != "" {
			fmt.Fprintf(w, "Text: %s\n", Truncate(result.ExtractedText, 200))
		}
		fmt.Fprintln(w)
	}
}

// WriteKeywordResults writes lexical search results to w in the given format.
func WriteKeywordResults(w io.Writer, response *models.KeywordResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeKeywordResultsText(w, response)
		return nil
	}
}

func writeKeywordResultsText(w io.Writer, response *models.KeywordResponse) {
	fmt.Fprintf(w, "\nFound %d keyword matches in %dms\n\n", response.MatchCount, response.QueryTime)
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
		fmt.Fprintf(w, "URL: %s\n", result.URL)
		fmt.Fprintf(w, "Hash: %s\n", result.ImageHash)
		if len(result.Tags) > 0 {
			fmt.Fprintf(w, "Tags: %s\n", strings.Join(result.Tags, ", "))
		}
		if result.ExtractedText != "" {
			fmt.Fprintf(w, "Text: %s\n", Truncate(result.ExtractedText, 200))
		}
		fmt.Fprintln(w)
	}
}

// WriteIngestResult writes an ingest result to w in the given format.
func WriteIngestResult(w io.Writer, result *models.IngestResult, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	default:
		status := "indexed"
		if result.Cached {
			status = "already indexed"
		}
		fmt.Fprintf(w, "%s: %s\n", status, result.URL)
		fmt.Fprintf(w, "Hash: %s\n", result.ImageHash)
		fmt.Fprintf(w, "Dimensions: %d\n", result.EmbeddingDimensions)
		if len(result.Tags) > 0 {
			fmt.Fprintf(w, "Tags: %s\n", strings.Join(result.Tags, ", "))
		}
		if result.ExtractedText != "" {
			fmt.Fprintf(w, "Text: %s\n", Truncate(result.ExtractedText, 200))
		}
		return nil
	}
}

// PrintSearchResults prints similarity results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
