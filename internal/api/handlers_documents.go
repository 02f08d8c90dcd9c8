package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/bookdigest/internal/book"
	"github.com/dgallion1/bookdigest/internal/parser"
	"github.com/go-chi/chi/v5"
)

type documentResponse struct {
	DocID    string         `json:"doc_id"`
	Filename string         `json:"filename"`
	Metadata book.Metadata  `json:"metadata"`
	Chapters []book.Chapter `json:"chapters"`
}

func newDocumentResponse(doc *book.Document) documentResponse {
	return documentResponse{
		DocID:    doc.ID,
		Filename: doc.Filename,
		Metadata: doc.Metadata,
		Chapters: doc.Outline(),
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// extra 1MB for form overhead
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	opts := book.LoadOptions{
		MaxDepth:         s.cfg.MaxDepth,
		SkipNonEssential: s.cfg.SkipNonEssential,
		Title:            strings.TrimSpace(r.FormValue("title")),
		Author:           strings.TrimSpace(r.FormValue("author")),
	}
	if v := r.FormValue("max_depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "max_depth must be a positive integer", http.StatusBadRequest)
			return
		}
		opts.MaxDepth = n
	}
	if v := r.FormValue("skip_non_essential"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, "skip_non_essential must be a boolean", http.StatusBadRequest)
			return
		}
		opts.SkipNonEssential = b
	}

	doc, err := book.Load(bytes.NewReader(data), filename, opts)
	if err != nil {
		code := http.StatusUnprocessableEntity
		if errors.Is(err, parser.ErrUnsupportedFormat) {
			code = http.StatusBadRequest
		}
		jsonError(w, err.Error(), code)
		return
	}
	s.orchestrator.Documents().Put(doc)
	s.log.Info("document loaded",
		"doc_id", doc.ID,
		"filename", filename,
		"chapters", len(doc.Chapters),
		"bytes", len(data),
	)

	writeJSON(w, http.StatusCreated, newDocumentResponse(doc))
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc := s.orchestrator.Documents().Get(chi.URLParam(r, "docID"))
	if doc == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newDocumentResponse(doc))
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
