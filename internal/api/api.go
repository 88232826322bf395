// Package api exposes brand management, batch generation, review, and
// export over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/PostPipe/internal/content"
	"github.com/BTreeMap/PostPipe/internal/store"
)

// Default server settings
const (
	DefaultAddr              = ":8080"
	DefaultGenerationTimeout = 3 * time.Minute
	DefaultShutdownTimeout   = 10 * time.Second
	maxRequestBodyBytes      = 1 << 20
)

// Opts holds configuration for the API server.
type Opts struct {
	Addr              string
	GenerationTimeout time.Duration
	Sessions          *content.Sessions
	Now               func() time.Time
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithGenerationTimeout bounds each generation or refinement request.
func WithGenerationTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.GenerationTimeout = d
	}
}

// WithSessions sets the batch registry. A fresh registry is created otherwise.
func WithSessions(s *content.Sessions) Option {
	return func(o *Opts) {
		o.Sessions = s
	}
}

// WithClock overrides the clock used for save and export timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) {
		o.Now = now
	}
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	st                store.Store
	gen               *content.Generator
	sessions          *content.Sessions
	addr              string
	generationTimeout time.Duration
	now               func() time.Time
}

// NewServer creates a server backed by st for persistence and gen for generation.
func NewServer(st store.Store, gen *content.Generator, opts ...Option) *Server {
	cfg := Opts{
		Addr:              DefaultAddr,
		GenerationTimeout: DefaultGenerationTimeout,
		Now:               time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Sessions == nil {
		cfg.Sessions = content.NewSessions()
	}
	return &Server{
		st:                st,
		gen:               gen,
		sessions:          cfg.Sessions,
		addr:              cfg.Addr,
		generationTimeout: cfg.GenerationTimeout,
		now:               cfg.Now,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /brands", s.listBrandsHandler)
	mux.HandleFunc("POST /brands", s.createBrandHandler)
	mux.HandleFunc("GET /brands/{id}", s.getBrandHandler)
	mux.HandleFunc("PUT /brands/{id}", s.updateBrandHandler)
	mux.HandleFunc("DELETE /brands/{id}", s.deleteBrandHandler)
	mux.HandleFunc("GET /brands/{id}/posts", s.listBrandPostsHandler)

	mux.HandleFunc("POST /batches/calendar", s.calendarBatchHandler)
	mux.HandleFunc("POST /batches/article", s.articleBatchHandler)
	mux.HandleFunc("GET /batches/{id}", s.getBatchHandler)
	mux.HandleFunc("DELETE /batches/{id}", s.deleteBatchHandler)
	mux.HandleFunc("PUT /batches/{id}/posts/{n}", s.updatePostHandler)
	mux.HandleFunc("POST /batches/{id}/posts/{n}/refine", s.refinePostHandler)
	mux.HandleFunc("POST /batches/{id}/select-all", s.selectAllHandler)
	mux.HandleFunc("POST /batches/{id}/save", s.saveBatchHandler)
	mux.HandleFunc("GET /batches/{id}/export", s.exportBatchHandler)

	return logRequests(mux)
}

// Run serves the API until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("Server.Run: HTTP server failed", "error", err)
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Server.Run: shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server.Run: graceful shutdown failed", "error", err)
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
		next.ServeHTTP(w, r)
		slog.Debug("Server: request handled", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
