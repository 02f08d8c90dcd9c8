package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dgallion1/bookdigest/internal/llm"
)

// handlePing sends a trivial completion through the configured backend, or
// the one described by the optional override body.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	var o providerOverrides
	if err := decodeOptionalJSON(r, &o); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	settings, err := o.apply(s.cfg.LLMSettings())
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	settings = settings.WithDefaults()
	if err := settings.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	p, err := s.newProvider(ctx, settings)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	start := time.Now()
	reply, err := llm.Ping(ctx, p)
	if err != nil {
		s.log.Warn("connection test failed", "provider", p.Name(), "error", err)
		code := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			code = http.StatusGatewayTimeout
		}
		writeJSON(w, code, map[string]any{
			"ok":       false,
			"provider": p.Name(),
			"error":    err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"provider":   p.Name(),
		"model":      settings.Model,
		"reply":      reply,
		"latency_ms": time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}
	settings := s.cfg.LLMSettings().WithDefaults()
	writeJSON(w, http.StatusOK, map[string]any{
		"provider": settings.Provider,
		"model":    settings.Model,
		"stats":    s.stats.Snapshot(),
	})
}
