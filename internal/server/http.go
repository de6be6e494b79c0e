package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/teemow/calassist/internal/instrumentation"
)

// HTTP server defaults. A chat turn may take several model rounds, so the
// write timeout is generous.
const (
	DefaultHTTPAddr          = ":8080"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultWriteTimeout      = 5 * time.Minute
	DefaultIdleTimeout       = 120 * time.Second
)

// ErrorResponse is the body of every non-2xx reply except the chat auth error.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// HTTPServerConfig wires the public endpoints.
type HTTPServerConfig struct {
	Addr    string
	Chat    http.Handler
	Auth    *AuthHandler
	Health  *HealthChecker
	MCP     http.Handler // mounted at /mcp when set
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger

	// RateLimiter bounds chat requests per client. nil disables it.
	RateLimiter *RateLimiter
}

// HTTPServer serves the chat, auth, health and optional MCP endpoints.
type HTTPServer struct {
	addr    string
	handler http.Handler
	logger  *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	boundAddr  string
}

// NewHTTPServer builds the route table from config.
func NewHTTPServer(config HTTPServerConfig) (*HTTPServer, error) {
	if config.Chat == nil {
		return nil, fmt.Errorf("chat handler is required")
	}
	if config.Addr == "" {
		config.Addr = DefaultHTTPAddr
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle(ChatPath, RateLimitMiddleware(config.RateLimiter, config.Chat))
	if config.Auth != nil {
		config.Auth.Register(mux)
	}
	if config.Health != nil {
		config.Health.RegisterHealthEndpoints(mux)
	}
	if config.MCP != nil {
		mux.Handle("/mcp", config.MCP)
	}

	return &HTTPServer{
		addr:    config.Addr,
		handler: MetricsMiddleware(config.Metrics, mux),
		logger:  logger,
	}, nil
}

// Handler returns the instrumented route table.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown is called, closing ready once the listener
// is bound. ready may be nil.
func (s *HTTPServer) Start(ready chan<- struct{}) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.boundAddr = listener.Addr().String()
	s.mu.Unlock()

	s.logger.Info("starting http server", "addr", listener.Addr().String())
	if ready != nil {
		close(ready)
	}

	err = srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return http.ErrServerClosed
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// BoundAddr returns the listener address once started.
func (s *HTTPServer) BoundAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundAddr
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// MetricsMiddleware records method, path, status and duration of every
// request. A nil m records nothing.
func MetricsMiddleware(m *instrumentation.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// ValidateRedirectURL requires HTTPS for OAuth redirect URLs, except for
// loopback hosts used in development.
func ValidateRedirectURL(redirectURL string) error {
	if redirectURL == "" {
		return fmt.Errorf("redirect URL cannot be empty")
	}

	u, err := url.Parse(redirectURL)
	if err != nil {
		return fmt.Errorf("invalid redirect URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("OAuth requires HTTPS for non-local redirect URLs (got: %s)", redirectURL)
		}
		return nil
	default:
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, ErrorResponse{Error: code, ErrorDescription: description})
}
