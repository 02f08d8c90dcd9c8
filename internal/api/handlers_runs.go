package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dgallion1/bookdigest/internal/llm"
	"github.com/dgallion1/bookdigest/internal/pipeline"
	"github.com/dgallion1/bookdigest/internal/prompt"
	"github.com/go-chi/chi/v5"
)

// providerOverrides replace the configured backend for one request.
type providerOverrides struct {
	Provider    string   `json:"provider"`
	BaseURL     string   `json:"base_url"`
	APIKey      string   `json:"api_key"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
}

// apply merges o onto base. Switching provider resets base URL and model to
// the new provider's defaults unless they are given too.
func (o providerOverrides) apply(base llm.Settings) (llm.Settings, error) {
	s := base
	if p := strings.TrimSpace(o.Provider); p != "" && llm.Kind(p) != base.Provider {
		s.Provider = llm.Kind(p)
		s.BaseURL = ""
		s.Model = ""
	}
	if o.BaseURL != "" {
		s.BaseURL = o.BaseURL
	}
	if o.APIKey != "" {
		s.APIKey = o.APIKey
	}
	if o.Model != "" {
		s.Model = o.Model
	}
	if o.Temperature != nil {
		if *o.Temperature < 0 || *o.Temperature > 2 {
			return s, fmt.Errorf("temperature must be between 0 and 2")
		}
		s.Temperature = *o.Temperature
	}
	return s, nil
}

type runRequest struct {
	Mode           string            `json:"mode"`
	ChapterIDs     []string          `json:"chapter_ids"`
	Tags           map[string]string `json:"tags"`
	BookType       string            `json:"book_type"`
	Language       string            `json:"language"`
	CustomPrompt   *string           `json:"custom_prompt"`
	CustomOnly     bool              `json:"custom_only"`
	CharacterGraph bool              `json:"character_graph"`
	providerOverrides
}

// options freezes the request and the server defaults into run options.
func (s *Server) options(req runRequest) (pipeline.Options, error) {
	mode, err := pipeline.ParseMode(req.Mode)
	if err != nil {
		return pipeline.Options{}, err
	}
	settings, err := req.providerOverrides.apply(s.cfg.LLMSettings())
	if err != nil {
		return pipeline.Options{}, err
	}

	bookType := s.cfg.BookType
	if req.BookType != "" {
		bookType = req.BookType
	}
	bt, err := prompt.ParseBookType(bookType)
	if err != nil {
		return pipeline.Options{}, err
	}
	lang := s.cfg.OutputLanguage
	if req.Language != "" {
		lang = req.Language
	}
	if !prompt.SupportedLanguage(lang) {
		return pipeline.Options{}, fmt.Errorf("unsupported language %q", lang)
	}
	custom := s.cfg.CustomPrompt
	if req.CustomPrompt != nil {
		custom = *req.CustomPrompt
	}

	return pipeline.Options{
		Mode:       mode,
		ChapterIDs: req.ChapterIDs,
		Tags:       req.Tags,
		LLM:        settings,
		Prompt: prompt.Options{
			BookType:   bt,
			Language:   lang,
			Custom:     custom,
			CustomOnly: req.CustomOnly && strings.TrimSpace(custom) != "",
		},
		CharacterGraph: req.CharacterGraph,
	}, nil
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	doc := s.orchestrator.Documents().Get(docID)
	if doc == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}

	var req runRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	opts, err := s.options(req)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	run, err := s.orchestrator.Submit(r.Context(), doc, opts)
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			code = http.StatusServiceUnavailable
		}
		jsonError(w, err.Error(), code)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":   run.ID,
		"doc_id":   doc.ID,
		"mode":     opts.Mode,
		"poll_url": fmt.Sprintf("/api/runs/%s", run.ID),
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run := s.orchestrator.GetRun(chi.URLParam(r, "runID"))
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run.Snapshot())
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if !s.orchestrator.CancelRun(runID) {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id": runID,
		"status": "cancelling",
	})
}

// decodeOptionalJSON decodes r's body into v; an empty body leaves v as is.
func decodeOptionalJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
