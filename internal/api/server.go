// Package api provides the read-only HTTP API over a TEI corpus.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/FocuswithJustin/digitalsee/core/corpus"
	"github.com/FocuswithJustin/digitalsee/core/errors"
	"github.com/FocuswithJustin/digitalsee/internal/cache"
	"github.com/FocuswithJustin/digitalsee/internal/export"
	"github.com/FocuswithJustin/digitalsee/internal/logging"
	"github.com/FocuswithJustin/digitalsee/internal/server"
	"github.com/FocuswithJustin/digitalsee/internal/watch"
)

// shutdownTimeout bounds graceful shutdown in Run.
const shutdownTimeout = 5 * time.Second

// Server serves one corpus directory.
type Server struct {
	cfg       Config
	snapshots *cache.TTLCache[*corpus.Snapshot]
	hub       *Hub
	started   time.Time
}

// New creates a server for cfg. The corpus is not read until the first
// request.
func New(cfg Config) *Server {
	if cfg.ExportPrefix == "" {
		cfg.ExportPrefix = export.DefaultPrefix
	}
	s := &Server{
		cfg:     cfg,
		hub:     NewHub(),
		started: time.Now(),
	}
	s.snapshots = cache.New(cfg.snapshotTTL(), func() (*corpus.Snapshot, error) {
		return LoadSnapshot(cfg.CorpusDir)
	})
	return s
}

// LoadSnapshot opens dir and logs the outcome, including each file that
// was excluded.
func LoadSnapshot(dir string) (*corpus.Snapshot, error) {
	start := time.Now()
	snap, err := corpus.Open(dir)
	if err != nil {
		var all *errors.AllFilesInvalidError
		if errors.As(err, &all) {
			logging.ParseFailures(all.Failures)
		}
		return nil, err
	}
	logging.ParseFailures(snap.Failures)
	logging.CorpusLoaded(dir, len(snap.Documents), len(snap.Failures), time.Since(start))
	return snap, nil
}

// Snapshot returns the current snapshot, building it when the cache
// requires.
func (s *Server) Snapshot() (*corpus.Snapshot, error) {
	return s.snapshots.Get()
}

// Hub returns the server's WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Reload drops the cached snapshot, rebuilds it and tells WebSocket
// clients. A failed rebuild is broadcast as corpus_error.
func (s *Server) Reload(change watch.Change) {
	s.snapshots.Invalidate()
	snap, err := s.snapshots.Get()
	if err != nil {
		logging.Error("corpus_reload_failed", "dir", s.cfg.CorpusDir, "error", err.Error())
		s.hub.Broadcast(Event{
			Type: EventCorpusError,
			Data: map[string]any{"files": change.Names, "error": err.Error()},
		})
		return
	}
	s.hub.Broadcast(Event{
		Type: EventCorpusReloaded,
		Data: map[string]any{
			"files":     change.Names,
			"documents": len(snap.Documents),
			"failures":  len(snap.Failures),
		},
	})
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.routes()
	handler = server.SecurityHeadersWithCSP(server.APICSPConfig(), handler)
	handler = server.CORSMiddlewareWithConfig(server.CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}, handler)
	return logging.CombinedMiddleware(handler)
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /paths", s.handlePaths)
	mux.HandleFunc("GET /facets", s.handleFacets)
	mux.HandleFunc("GET /documents", s.handleDocuments)
	mux.HandleFunc("GET /documents/{name}", s.handleDocument)
	mux.HandleFunc("GET /documents/{name}/export", s.handleExport)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /bundle", s.handleBundle)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("/", s.handleNotFound)

	return mux
}

// Run serves on cfg.Port until ctx is done. With Watch set it also
// watches the corpus directory and reloads on change.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.hub.Run(ctx)

	if s.cfg.Watch {
		w, err := watch.New(s.cfg.CorpusDir, s.cfg.WatchDebounce, s.Reload)
		if err != nil {
			return fmt.Errorf("watch corpus: %w", err)
		}
		go w.Run(ctx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.ServerStartup("rest_api", "http", s.cfg.Port,
		"websocket_protocol", "ws",
		"corpus_dir", server.AbsPath(s.cfg.CorpusDir),
		"watch", s.cfg.Watch,
		"cache_ttl", s.cfg.CacheTTL.String())

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
