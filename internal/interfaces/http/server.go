// Package http is the read-only HTTP facade (C8) in front of the discovery
// pipeline: trigger/status/contenders/squeeze-candidates/health plus
// Prometheus metrics. It never writes to the database; it reads the
// contender cache and the job runner's in-memory run records.
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/mikedmote52/amc-discovery/internal/cache"
	"github.com/mikedmote52/amc-discovery/internal/infrastructure/providers"
	"github.com/mikedmote52/amc-discovery/internal/jobs"
)

// Server is the discovery HTTP facade.
type Server struct {
	router   *mux.Router
	server   *http.Server
	handlers *Handlers
	config   ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns default server configuration, local-only by
// default per the read-only-facade design.
func DefaultServerConfig() ServerConfig {
	port := 8080
	if portStr := os.Getenv("HTTP_PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	return ServerConfig{
		Host:         "127.0.0.1",
		Port:         port,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Deps bundles the facade's injected capabilities.
type Deps struct {
	Runner     *jobs.JobRunner
	Cache      cache.Store
	Breakers   *providers.Manager
	ResolveCfg jobs.ConfigResolver
	DB         DBHealth
}

// NewServer creates a new HTTP server instance, probing the port up front.
func NewServer(cfg ServerConfig, deps Deps) (*Server, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("port %d is busy or unavailable: %w", cfg.Port, err)
	}
	listener.Close()

	router := mux.NewRouter()
	s := &Server{
		router:   router,
		handlers: NewHandlers(deps),
		config:   cfg,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s, nil
}

// setupRoutes configures the §4.8 route table.
func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.timeoutMiddleware)
	s.router.Use(s.corsMiddleware)

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.jsonContentTypeMiddleware)

	api.HandleFunc("/discovery/trigger", s.handlers.Trigger).Methods("POST")
	api.HandleFunc("/discovery/status", s.handlers.Status).Methods("GET")
	api.HandleFunc("/discovery/contenders", s.handlers.Contenders).Methods("GET")
	api.HandleFunc("/discovery/squeeze-candidates", s.handlers.SqueezeCandidates).Methods("GET")
	api.HandleFunc("/discovery/health", s.handlers.Health).Methods("GET")
	s.router.Handle("/metrics", DefaultMetrics.MetricsHandler()).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(s.handlers.NotFound)
}

// requestIDMiddleware adds a unique request id to each request.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type requestIDKey struct{}

// requestLoggingMiddleware logs every request with zerolog, matching the
// structured-logging idiom used throughout the rest of the pipeline.
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID, _ := r.Context().Value(requestIDKey{}).(string)

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: 200}
		next.ServeHTTP(wrapper, r)

		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("http request")
	})
}

// timeoutMiddleware enforces a per-request deadline, separate from the job
// runner's own per-run deadline.
func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// corsMiddleware allows localhost origins only.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
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

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting discovery http facade")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down discovery http facade")
	return s.server.Shutdown(ctx)
}

// GetAddress returns the server's bound address.
func (s *Server) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// responseWrapper captures the status code written for logging.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
