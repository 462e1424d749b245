package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dbbouncer/pgconvey/internal/config"
	"github.com/dbbouncer/pgconvey/internal/health"
	"github.com/dbbouncer/pgconvey/internal/metrics"
	"github.com/dbbouncer/pgconvey/internal/router"
	"github.com/dbbouncer/pgconvey/internal/sessions"
)

// Server is the REST API and metrics server. Routes are owned by the
// config file and loaded by internal/config.Watcher, not mutated through
// the API.
type Server struct {
	router      *router.Router
	healthCheck *health.Checker
	metrics     *metrics.Collector
	sessions    *sessions.Recorder
	httpServer  *http.Server
	startTime   time.Time
	listenCfg   config.ListenConfig
}

// NewServer creates a new API server.
func NewServer(r *router.Router, hc *health.Checker, m *metrics.Collector, sr *sessions.Recorder, lc config.ListenConfig) *Server {
	return &Server{
		router:      r,
		healthCheck: hc,
		metrics:     m,
		sessions:    sr,
		startTime:   time.Now(),
		listenCfg:   lc,
	}
}

// Start starts the HTTP API server.
func (s *Server) Start(port int) error {
	r := mux.NewRouter()

	r.HandleFunc("/status", s.statusHandler).Methods("GET")
	r.HandleFunc("/routes", s.listRoutes).Methods("GET")
	r.HandleFunc("/sessions", s.listSessions).Methods("GET")

	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	r.HandleFunc("/ready", s.readyHandler).Methods("GET")

	r.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf("%s:%d", s.listenCfg.APIBind, port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.authMiddleware(r),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Printf("[api] REST API listening on %s", addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[api] server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// --- Route Handlers ---

type routeResponse struct {
	Name   string             `json:"name"`
	Config config.RouteConfig `json:"config"`
	Health *health.RouteHealth `json:"health,omitempty"`
	Paused bool               `json:"paused"`
}

func (s *Server) listRoutes(w http.ResponseWriter, r *http.Request) {
	routes := s.router.ListRoutes()

	result := make([]routeResponse, 0, len(routes))
	for name, rc := range routes {
		rr := routeResponse{
			Name:   name,
			Config: rc.Redacted(),
			Paused: s.router.IsPaused(name),
		}
		h := s.healthCheck.GetStatus(name)
		rr.Health = &h
		result = append(result, rr)
	}

	writeJSON(w, http.StatusOK, result)
}

// --- Session Handlers ---

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeJSON(w, http.StatusOK, []sessions.Summary{})
		return
	}
	writeJSON(w, http.StatusOK, s.sessions.Recent())
}

// --- Health Handlers ---

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	statuses := s.healthCheck.GetAllStatuses()
	allHealthy := s.healthCheck.OverallHealthy()

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]interface{}{
		"status": boolToStatus(allHealthy),
		"routes": statuses,
	})
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	// Ready if at least one route is healthy, or there are no routes yet
	// (a fresh deployment whose config hasn't named any routes).
	routes := s.router.ListRoutes()
	if len(routes) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	for name := range routes {
		if s.healthCheck.IsHealthy(name) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
			return
		}
	}

	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}

// --- Status Handler ---

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	uptime := time.Since(s.startTime).Seconds()
	routes := s.router.ListRoutes()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime_seconds": int(uptime),
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
		"memory_mb":      float64(mem.Alloc) / 1024 / 1024,
		"num_routes":     len(routes),
		"listen": map[string]int{
			"postgres_port": s.listenCfg.PostgresPort,
			"api_port":      s.listenCfg.APIPort,
		},
	})
}

// --- Middleware ---

// maxRequestBodyBytes caps request bodies accepted by the API; nothing
// this proxy serves legitimately needs more than a few KB.
const maxRequestBodyBytes = 1 << 20 // 1MB

// authMiddleware enforces the configured API key as a bearer token,
// exempting the endpoints monitoring systems poll without credentials.
// When no key is configured, the API is open (matching a developer
// running the proxy locally with no listen.api_key set).
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

		switch r.URL.Path {
		case "/health", "/ready", "/metrics":
			next.ServeHTTP(w, r)
			return
		}

		if s.listenCfg.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		const prefix = "Bearer "
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, prefix) || auth[len(prefix):] != s.listenCfg.APIKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func boolToStatus(b bool) string {
	if b {
		return "healthy"
	}
	return "unhealthy"
}
