// Package api is the HTTP surface: a JSON ask endpoint, an SSE streaming
// variant, cache maintenance, and health probes. Everything except the
// probes sits behind recovery, logging, CORS and per-IP rate limiting.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ServerConfig configures the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Pipeline    Answerer      // Required
	Cache       CacheAdmin    // Optional: nil disables cache admin routes
	Pool        *pgxpool.Pool // Optional: nil disables DB readiness details
	CORSOrigins []string
	TrustProxy  bool // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst   int  // Per-IP burst size (0 = default 60)
}

// Server is the HTTP server for the question API.
type Server struct {
	mux *http.ServeMux
}

// NewServer wires routes and middleware.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ah := &askHandler{pipeline: cfg.Pipeline, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/ask", ah.ask)
	mux.HandleFunc("GET /api/v1/ask/stream", ah.askStream)

	if cfg.Cache != nil {
		ch := &cacheHandler{cache: cfg.Cache, logger: logger}
		mux.HandleFunc("GET /api/v1/cache/stats", ch.stats)
		mux.HandleFunc("POST /api/v1/cache/purge", ch.purge)
	}

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newIPRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   Recovery -> Logging -> CORS -> RateLimit -> Routes
	// CORS sits before RateLimit so preflight responses carry headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.HandleFunc("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
