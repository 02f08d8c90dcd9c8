package api

import (
	"errors"
	"net/http"

	"github.com/dgallion1/bookdigest/internal/cache"
	"github.com/go-chi/chi/v5"
)

// handleInvalidate removes cached outputs of one kind, or all of them, for a
// document. Documents need not be loaded; cache entries outlive the registry.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	kindParam := r.URL.Query().Get("kind")
	if kindParam == "" {
		kindParam = string(cache.KindAll)
	}
	kind, err := cache.ParseKind(kindParam)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	n, err := s.orchestrator.Invalidate(r.Context(), docID, kind)
	if err != nil {
		jsonError(w, "failed to invalidate cache: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id":  docID,
		"kind":    kind,
		"removed": n,
	})
}

func (s *Server) handleInvalidateGroup(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	groupID := chi.URLParam(r, "groupID")
	kind, err := cache.ParseKind(chi.URLParam(r, "kind"))
	if err != nil || kind == cache.KindAll {
		jsonError(w, "unknown cache kind", http.StatusBadRequest)
		return
	}

	ok, err := s.orchestrator.InvalidateGroup(r.Context(), docID, kind, groupID)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, cache.ErrInvalidKey) {
			code = http.StatusBadRequest
		}
		jsonError(w, err.Error(), code)
		return
	}
	removed := 0
	if ok {
		removed = 1
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id":   docID,
		"kind":     kind,
		"group_id": groupID,
		"removed":  removed,
	})
}
