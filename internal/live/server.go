// Package live serves the live feed of a running scan: a WebSocket stream of
// completed hosts and progress, a JSON snapshot of the session so far, and the
// Prometheus metrics endpoint.
package live

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/logging"
	"github.com/artofscripting/networkvector/internal/metrics"
	"github.com/artofscripting/networkvector/internal/scanning"
)

// Server timeout constants.
const (
	serverShutdownTimeout = 5 * time.Second
	DefaultListenAddr     = "127.0.0.1:8787"
)

// Config holds live server configuration.
type Config struct {
	ListenAddr     string        `yaml:"listen_addr" json:"listen_addr"`
	AllowedOrigins []string      `yaml:"allowed_origins" json:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
}

// DefaultConfig returns default live server configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr:   DefaultListenAddr,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// SnapshotFunc returns the session in progress, or false before one starts.
type SnapshotFunc func() (scanning.Session, bool)

// Server is the live feed HTTP server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	hub        *Hub
	snapshot   SnapshotFunc
	gatherer   prometheus.Gatherer
	recorder   metrics.Recorder
	logger     *logging.Logger
	startTime  time.Time

	mu       sync.Mutex
	listener net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRecorder sets the recorder that tracks connected clients.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithGatherer exposes g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New creates a live server. snapshot backs /api/session.
func New(cfg Config, snapshot SnapshotFunc, opts ...Option) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		snapshot:  snapshot,
		recorder:  metrics.Noop{},
		logger:    logging.Default(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("live")
	s.hub = NewHub(cfg.AllowedOrigins, s.logger, s.recorder)

	s.setupRoutes()
	s.setupMiddleware(&cfg)

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/ws", s.hub.ServeWS).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session", s.sessionHandler).Methods(http.MethodGet)
	api.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)

	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).
			Methods(http.MethodGet)
	}
}

func (s *Server) setupMiddleware(cfg *Config) {
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.loggingMiddleware)

	if len(cfg.AllowedOrigins) > 0 {
		s.router.Use(handlers.CORS(
			handlers.AllowedOrigins(cfg.AllowedOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
		))
	}
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return errors.WrapScanError(errors.CodeServiceUnavailable, "failed to start live server", err).
			WithContext("address", s.httpServer.Addr)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("Live feed listening", "address", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Live server failed", "error", err)
		}
	}()
	return nil
}

// Stop closes every WebSocket client and shuts the HTTP server down.
func (s *Server) Stop() error {
	s.hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.WrapScanError(errors.CodeServiceUnavailable, "live server shutdown failed", err)
	}
	s.logger.Debug("Live server stopped")
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Hub returns the event hub to register with the engine.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	if s.snapshot == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no scan session"})
		return
	}
	session, ok := s.snapshot()
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no scan session"})
		return
	}
	s.writeJSON(w, http.StatusOK, session)
}

// HealthResponse is returned by /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
	Uptime  string `json:"uptime"`
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Clients: s.hub.Clients(),
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("HTTP request panic recovered",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", err,
					"stack", string(debug.Stack()))
				s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Debug("HTTP request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", wrapped.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr)
	})
}

// responseWriter captures the status code. It forwards Hijack so the
// WebSocket upgrade still works behind the logging middleware.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.NewScanError(errors.CodeServiceUnavailable, "response does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}
