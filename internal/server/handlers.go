package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/apperr"
	"github.com/hyperjump/miru/internal/models"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var input models.IngestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("upload request", zap.String("image_url", input.ImageURL), zap.Strings("tags", input.Tags))
	result, err := s.ingestor.Ingest(r.Context(), &input)
	if err != nil {
		s.logger.Error("ingestion failed", zap.Error(err))
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	status := http.StatusCreated
	if result.Cached {
		status = http.StatusOK
	}
	s.respondJSON(w, status, result)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request",
		zap.String("query_type", query.QueryType),
		zap.Int("limit", query.Limit),
	)
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleKeywordSearch(w http.ResponseWriter, r *http.Request) {
	var query models.KeywordQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	response, err := s.engine.KeywordSearch(r.Context(), &query)
	if err != nil {
		s.logger.Error("keyword search failed", zap.Error(err))
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	rec, err := s.storage.FindImageByHash(r.Context(), hash)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		s.respondError(w, http.StatusNotFound, "image not found")
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	imageCount, err := s.storage.CountImages(ctx)
	if err != nil {
		s.logger.Error("status: count images failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	queryCount, err := s.storage.CountTextQueries(ctx)
	if err != nil {
		s.logger.Error("status: count text queries failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]any{
		"images":         imageCount,
		"cached_queries": queryCount,
	}
	if docs, ok := s.engine.KeywordDocCount(); ok {
		resp["keyword_docs"] = docs
	}
	if s.appCfg != nil {
		resp["config"] = map[string]any{
			"embedding_dimensions": s.appCfg.Embedding.Dimensions,
			"default_threshold":    s.appCfg.Search.DefaultThreshold,
			"default_limit":        s.appCfg.Search.DefaultLimit,
			"database_path":        s.appCfg.Storage.DatabasePath,
			"keyword_index_path":   s.appCfg.Storage.KeywordIndexPath,
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusForError maps the error taxonomy to HTTP statuses: client errors 400,
// external capability failures 502, everything else 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, apperr.ErrMissingInput), errors.Is(err, apperr.ErrInvalidQueryType):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrProvider),
		errors.Is(err, apperr.ErrUnexpectedResponseFormat),
		errors.Is(err, apperr.ErrDimension):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
