// Package http serves run status, health, metrics and live progress of projection runs.
package http

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/almrun/internal/config"
	"github.com/sawpanic/almrun/internal/persistence"
	"github.com/sawpanic/almrun/internal/projection"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// Launcher starts and aborts runs on behalf of the HTTP surface
type Launcher interface {
	Launch(paths []int) (string, error)
	Abort(runID string) bool
}

// Deps are the collaborators the server reads from. Every field is optional except Runs.
type Deps struct {
	Runs     *projection.Registry
	Hub      *ProgressHub
	Metrics  http.Handler
	Database persistence.RepositoryHealth
	Launcher Launcher
	Version  string
}

// Server is the HTTP surface of the serve command
type Server struct {
	router *mux.Router
	server *http.Server
	deps   Deps
	health *HealthHandler
	config config.ServerConfig
}

// NewServer creates a server and its routes
func NewServer(cfg config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Runs == nil {
		return nil, errors.New("run registry is required")
	}
	if deps.Hub == nil {
		deps.Hub = NewProgressHub(deps.Runs)
	}

	s := &Server{
		router: mux.NewRouter(),
		deps:   deps,
		health: NewHealthHandler(deps.Database, deps.Runs, deps.Version),
		config: cfg,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.corsMiddleware)

	// Streaming and exposition routes are registered before the JSON subrouter
	s.router.Handle("/runs/{id}/progress", s.deps.Hub).Methods("GET")
	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", s.deps.Metrics).Methods("GET")
	}

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.timeoutMiddleware)
	api.Use(s.jsonContentTypeMiddleware)

	api.Handle("/health", s.health).Methods("GET")
	api.HandleFunc("/runs", s.listRuns).Methods("GET")
	api.HandleFunc("/runs", s.startRun).Methods("POST")
	api.HandleFunc("/runs/{id}", s.getRun).Methods("GET")
	api.HandleFunc("/runs/{id}", s.abortRun).Methods("DELETE")

	s.router.NotFoundHandler = http.HandlerFunc(s.notFound)
}

// Handler exposes the router for embedding and tests
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		log.Debug().
			Str("request_id", requestID(r)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("HTTP request")
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// corsMiddleware only admits local origins
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	log.Info().Str("addr", s.config.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Addr returns the configured listen address
func (s *Server) Addr() string { return s.config.Addr }

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return "unknown"
}

// responseWrapper captures HTTP status codes for logging
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the progress websocket take over the connection
func (rw *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Flush forwards to the underlying writer when it supports flushing
func (rw *responseWrapper) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
