package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"kbrag/internal/rag"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.pipe.Store().Count(r.Context())
	status := "ok"
	if err != nil {
		s.log.Warn("store unreachable", "error", err)
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        status,
		"chunks_stored": count,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	count, err := s.pipe.Store().Count(r.Context())
	status := "ok"
	if err != nil {
		s.log.Warn("store count failed", "error", err)
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"chunks_stored":  count,
		"store_backend":  s.cfg.StoreBackend,
		"collection":     s.cfg.QdrantCollection,
		"embed_provider": s.cfg.EmbedProvider,
		"reranker":       s.cfg.Reranker,
		"llm_model":      s.cfg.LLMModel,
		"queries":        s.pipe.Stats(),
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	summary, err := s.pipe.Ingest(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req rag.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Identity = clientIdentity(r)

	res, err := s.pipe.Query(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeError maps the error taxonomy onto HTTP statuses: validation 400,
// policy 400 or 429 with a Retry-After, provider failures 503, anything
// else a generic 500 with no internals leaked.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *rag.ValidationError
	if errors.As(err, &verr) {
		jsonError(w, http.StatusBadRequest, verr.Msg)
		return
	}

	var perr *rag.PolicyError
	if errors.As(err, &perr) {
		if perr.RetryAfter > 0 {
			secs := int(math.Ceil(perr.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
			jsonError(w, http.StatusTooManyRequests, perr.Reason)
			return
		}
		jsonError(w, http.StatusBadRequest, perr.Reason)
		return
	}

	var provErr *rag.ProviderError
	if errors.As(err, &provErr) {
		s.log.Error("provider failure", "provider", provErr.Provider, "error", provErr.Err)
		jsonError(w, http.StatusServiceUnavailable, fmt.Sprintf("%s backend unavailable", provErr.Provider))
		return
	}

	s.log.Error("internal error", "error", err)
	jsonError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
