// Package api exposes QA results and on-demand scoring over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/data-qa/internal/model"
	"github.com/sells-group/data-qa/internal/qa"
	"github.com/sells-group/data-qa/internal/store"
)

// Server wires the store and the scoring runner into an HTTP handler.
type Server struct {
	Store  store.Store
	Runner *qa.Runner
}

// Router builds the chi router with CORS configured for the given
// origins. An empty list allows none.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/qa", s.handleListQA)
	r.Get("/qa/resource/{id}", s.handleGetQA)
	r.Post("/qa/resource/{id}/score", s.handleScore)
	return r
}

type qaResponse struct {
	model.QARecord
	ScoreDescription string `json:"score_description,omitempty"`
}

func describe(record model.QARecord) qaResponse {
	return qaResponse{
		QARecord:         record,
		ScoreDescription: model.ScoreDescriptions[record.OpennessScore],
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetQA(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, err := s.Store.GetQA(r.Context(), id)
	if err != nil {
		zap.L().Error("get qa failed", zap.String("resource_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "no QA record for resource")
		return
	}
	writeJSON(w, http.StatusOK, describe(*record))
}

func (s *Server) handleListQA(w http.ResponseWriter, r *http.Request) {
	var filter store.QAFilter
	if v := r.URL.Query().Get("score"); v != "" {
		score, err := strconv.Atoi(v)
		if err != nil || score < 0 || score > 5 {
			writeError(w, http.StatusBadRequest, "score must be an integer 0 to 5")
			return
		}
		filter.Score = &score
	}
	filter.Format = r.URL.Query().Get("format")
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	records, err := s.Store.ListQA(r.Context(), filter)
	if err != nil {
		zap.L().Error("list qa failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	responses := make([]qaResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, describe(record))
	}
	writeJSON(w, http.StatusOK, responses)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.Store.GetResource(r.Context(), id)
	if err != nil {
		zap.L().Error("get resource failed", zap.String("resource_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if res == nil {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	result, err := s.Runner.ScoreResource(r.Context(), res)
	if err != nil {
		zap.L().Error("scoring failed", zap.String("resource_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scoring failed")
		return
	}

	record, err := s.Store.GetQA(r.Context(), id)
	if err != nil || record == nil {
		// Persisted a moment ago, so fall back to the raw result.
		writeJSON(w, http.StatusOK, result)
		return
	}
	writeJSON(w, http.StatusOK, describe(*record))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
