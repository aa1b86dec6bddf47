// Package api serves probability estimates and tables over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/MJE43/onering-odds/internal/engine"
	"github.com/MJE43/onering-odds/internal/scan"
	"github.com/MJE43/onering-odds/internal/store"
)

// DefaultRequestTimeout bounds every request when Options leaves it unset.
const DefaultRequestTimeout = 30 * time.Second

// Options tunes a Server.
type Options struct {
	// Workers is the table assembly concurrency; <= 0 means GOMAXPROCS.
	Workers int
	// RequestTimeout bounds each request.
	RequestTimeout time.Duration
}

// Server handles HTTP requests
type Server struct {
	batch          *engine.Batch
	assembler      *scan.Assembler
	db             store.DB
	errorHandler   *ErrorHandler
	logger         *zap.Logger
	requestTimeout time.Duration
	startTime      time.Time
	httpServer     *http.Server
}

// NewServer creates a new API server over a shared sample batch. db may be
// nil, in which case the stored-table endpoints answer 503.
func NewServer(batch *engine.Batch, db store.DB, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}

	server := &Server{
		batch:          batch,
		assembler:      scan.NewAssembler(opts.Workers),
		db:             db,
		errorHandler:   NewErrorHandler(logger),
		logger:         logger,
		requestTimeout: opts.RequestTimeout,
		startTime:      time.Now(),
	}

	logger.Info("server_initialized",
		zap.Int("sample_size", batch.Len()),
		zap.Int64("seed", batch.Seed()),
		zap.Int("workers", server.assembler.Workers()),
		zap.Bool("database_enabled", db != nil),
		zap.String("engine_version", EngineVersion),
	)

	return server
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.RequestLoggingMiddleware)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(s.requestTimeout))
	r.Use(s.CORSMiddleware)

	r.Get("/health", s.handleHealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/version", s.handleVersion)
		r.Get("/modes", s.handleListModes)
		r.Get("/estimate", s.handleEstimate)

		r.Route("/tables", func(r chi.Router) {
			r.Post("/", s.handleCreateTable)
			r.Get("/", s.handleListTables)
			r.Get("/{id}", s.handleGetTable)
			r.Get("/{id}/csv", s.handleTableCSV)
			r.Delete("/{id}", s.handleDeleteTable)
		})
	})

	return r
}

// Start binds addr and serves in a goroutine. It returns once the socket is
// bound, so a bad address is reported to the caller.
func (s *Server) Start(addr string) (net.Addr, error) {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server_stopped", zap.Error(err))
		}
	}()

	s.logger.Info("server_listening", zap.String("addr", ln.Addr().String()))
	return ln.Addr(), nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("response_encode_failed", zap.Error(err))
	}
}
