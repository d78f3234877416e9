// Package server provides the HTTP REST API for the risk sentinel.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/risk-sentinel/internal/enrich"
	"github.com/jonathan/risk-sentinel/internal/job"
	"github.com/jonathan/risk-sentinel/internal/metrics"
	"github.com/jonathan/risk-sentinel/internal/oracle"
	"github.com/jonathan/risk-sentinel/internal/ratelimit"
	"github.com/jonathan/risk-sentinel/internal/risk"
	"github.com/jonathan/risk-sentinel/internal/rules"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	store      *job.Store
	runner     *job.Runner
	engine     *rules.Engine
	fusion     *risk.Fusion
	oracles    []oracle.Oracle
	gateOpts   enrich.Options
	validate   *validator.Validate
	metrics    *metrics.Collector

	// oracleDefault is used when a request leaves use_oracle unset.
	oracleDefault bool

	apiRate   *ratelimit.Config
	clientsMu sync.Mutex
	clients   map[string]*ratelimit.Limiter
}

// Config holds server configuration
type Config struct {
	Port     int
	Store    *job.Store
	Runner   *job.Runner
	Engine   *rules.Engine
	Fusion   *risk.Fusion
	Oracles  []oracle.Oracle
	GateOpts enrich.Options
	// Metrics backs the /metrics endpoint. A nil collector reports an
	// empty snapshot.
	Metrics *metrics.Collector
	// OracleDefault enables oracle enrichment for requests that leave
	// use_oracle unset.
	OracleDefault bool
	// Verbose enables per-request logging.
	Verbose bool
	// APIRate enables per-client request limiting when set.
	APIRate *ratelimit.Config
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil || cfg.Runner == nil {
		return nil, fmt.Errorf("server requires a job store and runner")
	}
	if cfg.Engine == nil {
		cfg.Engine = rules.DefaultEngine()
	}
	if cfg.Fusion == nil {
		cfg.Fusion = risk.NewFusion()
	}

	s := &Server{
		store:         cfg.Store,
		runner:        cfg.Runner,
		engine:        cfg.Engine,
		fusion:        cfg.Fusion,
		oracles:       cfg.Oracles,
		gateOpts:      cfg.GateOpts,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		metrics:       cfg.Metrics,
		oracleDefault: cfg.OracleDefault,
		apiRate:       cfg.APIRate,
		clients:       make(map[string]*ratelimit.Limiter),
	}

	// Setup router
	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs", s.handleCreateJob)
	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	mux.HandleFunc("POST /jobs/{id}/cancel", s.handleCancelJob)
	mux.HandleFunc("GET /jobs/{id}/stream", s.handleStreamJob)
	// Literal segment wins over {id} in Go 1.22+ ServeMux, so the
	// current-job alias does not conflict with the id route.
	mux.HandleFunc("GET /jobs/current/stream", s.handleStreamCurrent)
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /health", s.handleHealth)

	var handler http.Handler = s.withCORS(mux)
	if cfg.Verbose {
		handler = s.withLogging(handler)
	}

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.withRateLimit(handler),
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: SSE streams stay open for the life of a job.
		IdleTimeout: 60 * time.Second,
	}

	return s, nil
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds per-client rate limiting middleware. Disabled when no
// API rate config is set.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.apiRate == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := s.clientLimiter(s.extractClientID(r))

		if !limiter.Acquire(r.Context(), false) {
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", s.apiRate.PerMinute))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", limiter.Remaining()))
			w.Header().Set("Retry-After", "60")
			s.errorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", s.apiRate.PerMinute))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", limiter.Remaining()))
		next.ServeHTTP(w, r)
	})
}

// clientLimiter returns the limiter for a client, creating it on first use.
func (s *Server) clientLimiter(clientID string) *ratelimit.Limiter {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	limiter, ok := s.clients[clientID]
	if !ok {
		limiter = ratelimit.NewLimiter(s.apiRate)
		s.clients[clientID] = limiter
	}
	return limiter
}

// extractClientID extracts the client identifier from the request.
// Uses the IP address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMetrics returns a snapshot of the pipeline metrics
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.metrics.Snapshot())
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
