package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/FocuswithJustin/digitalsee/core/corpus"
	"github.com/FocuswithJustin/digitalsee/core/errors"
	"github.com/FocuswithJustin/digitalsee/core/query"
	"github.com/FocuswithJustin/digitalsee/core/search"
	"github.com/FocuswithJustin/digitalsee/core/tei"
	"github.com/FocuswithJustin/digitalsee/internal/export"
	"github.com/FocuswithJustin/digitalsee/internal/logging"
	"github.com/FocuswithJustin/digitalsee/internal/validation"
)

// Version is reported by / and /health.
var Version = "dev"

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Documents int    `json:"documents"`
	Failures  int    `json:"failures"`
	LoadedAt  string `json:"loaded_at"`
	Cached    bool   `json:"cached"`
	Loads     uint64 `json:"loads"`
}

// DocumentInfo is one entry of the document listing.
type DocumentInfo struct {
	Name   string `json:"name"`
	Title  string `json:"title,omitempty"`
	Blake3 string `json:"blake3"`
	Size   int64  `json:"size"`
}

// FailureInfo describes a file excluded from the snapshot.
type FailureInfo struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// DocumentList is the /documents response.
type DocumentList struct {
	Documents []DocumentInfo `json:"documents"`
	Failures  []FailureInfo  `json:"failures"`
}

// MatchInfo is one search result.
type MatchInfo struct {
	DocumentInfo
	Hits []search.Hit `json:"hits"`
}

// SearchResult is the /search response.
type SearchResult struct {
	Query   search.Query `json:"query"`
	Matches []MatchInfo  `json:"matches"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]any{
		"name":    "digitalsee",
		"version": Version,
		"endpoints": []string{
			"GET /health",
			"GET /paths",
			"GET /facets?author=",
			"GET /documents",
			"GET /documents/{name}?author=",
			"GET /documents/{name}/export",
			"GET /search?author=&place=&keyword=&q=",
			"GET /bundle?author=&place=&keyword=&q=",
			"WS /ws",
		},
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Snapshot()
	if err != nil {
		respondSnapshotError(w, err)
		return
	}
	respond(w, http.StatusOK, HealthInfo{
		Status:    "healthy",
		Version:   Version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Documents: len(snap.Documents),
		Failures:  len(snap.Failures),
		LoadedAt:  snap.LoadedAt.UTC().Format(time.RFC3339),
		Cached:    !s.snapshots.IsExpired(),
		Loads:     s.snapshots.Loads(),
	})
}

func (s *Server) handlePaths(w http.ResponseWriter, r *http.Request) {
	paths := tei.Paths()
	respondList(w, paths, len(paths))
}

func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Snapshot()
	if err != nil {
		respondSnapshotError(w, err)
		return
	}
	respond(w, http.StatusOK, snap.Facets(r.URL.Query().Get("author")))
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Snapshot()
	if err != nil {
		respondSnapshotError(w, err)
		return
	}

	list := DocumentList{
		Documents: make([]DocumentInfo, 0, len(snap.Documents)),
		Failures:  make([]FailureInfo, 0, len(snap.Failures)),
	}
	for _, doc := range snap.Documents {
		list.Documents = append(list.Documents, documentInfo(doc))
	}
	for _, f := range snap.Failures {
		list.Failures = append(list.Failures, FailureInfo{Name: f.Path, Error: f.Message})
	}
	respondList(w, list, len(list.Documents))
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	snap, doc, ok := s.lookup(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, snap.Detail(doc, r.URL.Query().Get("author")))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	_, doc, ok := s.lookup(w, r)
	if !ok {
		return
	}

	name := export.Name(s.cfg.ExportPrefix, doc)
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	n, err := export.WriteDocument(w, doc)
	if err != nil {
		logging.ErrorContext(r.Context(), "export_failed", "document", doc.Name, "error", err.Error())
		return
	}
	logging.ExportWritten("document", name, 1, "bytes", n)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, err := requestQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}
	snap, err := s.Snapshot()
	if err != nil {
		respondSnapshotError(w, err)
		return
	}

	matches := search.Search(snap.Documents, q)
	result := SearchResult{Query: q, Matches: make([]MatchInfo, 0, len(matches))}
	for _, m := range matches {
		result.Matches = append(result.Matches, MatchInfo{
			DocumentInfo: documentInfo(m.Document),
			Hits:         m.Hits,
		})
	}
	respondList(w, result, len(result.Matches))
}

func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	q, err := requestQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}
	snap, err := s.Snapshot()
	if err != nil {
		respondSnapshotError(w, err)
		return
	}

	docs := search.Documents(snap.Documents, q)
	var buf bytes.Buffer
	manifest, err := export.WriteBundle(&buf, docs, q, time.Now())
	if err != nil {
		logging.ErrorContext(r.Context(), "bundle_failed", "error", err.Error())
		respondError(w, http.StatusInternalServerError, "BUNDLE_FAILED", "Failed to build bundle")
		return
	}

	name := "digitalsee-" + manifest.ID + ".tar.xz"
	w.Header().Set("Content-Type", "application/x-xz")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
	logging.ExportWritten("bundle", name, len(docs), "query", q.String())
}

// lookup resolves {name} against the current snapshot, writing the error
// response itself when it fails.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*corpus.Snapshot, *corpus.Document, bool) {
	name := r.PathValue("name")
	if err := validation.ValidateDocumentName(name); err != nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("document %q not found", name))
		return nil, nil, false
	}
	snap, err := s.Snapshot()
	if err != nil {
		respondSnapshotError(w, err)
		return nil, nil, false
	}
	doc, err := snap.Document(name)
	if err != nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return nil, nil, false
	}
	return snap, doc, true
}

// requestQuery combines the q parameter with the author, place and keyword
// parameters; the explicit parameters win.
func requestQuery(r *http.Request) (search.Query, error) {
	params := r.URL.Query()
	base, err := query.Parse(params.Get("q"))
	if err != nil {
		return search.Query{}, err
	}
	override := search.Query{
		Author:  params.Get(query.FieldAuthor),
		Place:   params.Get(query.FieldPlace),
		Keyword: params.Get(query.FieldKeyword),
	}
	return query.Merge(base, override), nil
}

func documentInfo(doc *corpus.Document) DocumentInfo {
	return DocumentInfo{
		Name:   doc.Name,
		Title:  doc.Meta.Header.Title,
		Blake3: doc.Hash,
		Size:   doc.Size,
	}
}

// respondSnapshotError maps a failed corpus load to a response.
func respondSnapshotError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.ErrMissingCorpus):
		respondError(w, http.StatusServiceUnavailable, "CORPUS_MISSING", err.Error())
	case errors.Is(err, errors.ErrAllFilesInvalid):
		respondError(w, http.StatusServiceUnavailable, "CORPUS_INVALID", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load corpus")
	}
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Meta:    &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func respondList(w http.ResponseWriter, data any, total int) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Total:     total,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
		Meta:    &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func writeJSON(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
