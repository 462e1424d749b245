package proxy

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/dbbouncer/pgconvey/internal/config"
	"github.com/dbbouncer/pgconvey/internal/health"
	"github.com/dbbouncer/pgconvey/internal/metrics"
	"github.com/dbbouncer/pgconvey/internal/router"
	"github.com/dbbouncer/pgconvey/internal/sessions"
	"github.com/dbbouncer/pgconvey/internal/stream"
)

// Server is the PostgreSQL wire-protocol proxy listener. It holds no pool
// manager: every accepted connection gets a single freshly dialed backend
// and a dedicated conveyor, never a borrowed pooled one.
type Server struct {
	router      *router.Router
	healthCheck *health.Checker
	metrics     *metrics.Collector
	sessions    *sessions.Recorder
	serverTLS   stream.ServerTLSProvider

	listener net.Listener

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new proxy server.
func NewServer(r *router.Router, hc *health.Checker, m *metrics.Collector, sr *sessions.Recorder, lc config.ListenConfig) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		router:      r,
		healthCheck: hc,
		metrics:     m,
		sessions:    sr,
		ctx:         ctx,
		cancel:      cancel,
	}

	if lc.TLSEnabled() {
		cert, err := tls.LoadX509KeyPair(lc.TLSCert, lc.TLSKey)
		if err != nil {
			log.Printf("[proxy] WARNING: failed to load TLS cert/key: %v — TLS disabled", err)
		} else {
			s.serverTLS = stream.ServerConfig{Config: &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}}
			log.Printf("[proxy] TLS enabled (cert: %s)", lc.TLSCert)
		}
	}

	return s
}

// ListenPostgres starts the PostgreSQL proxy listener.
func (s *Server) ListenPostgres(port int) error {
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s for postgres: %w", addr, err)
	}
	s.listener = ln
	log.Printf("[proxy] PostgreSQL proxy listening on %s", addr)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ln)
	}()

	return nil
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				log.Printf("[proxy] accept error: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) handleConnection(clientConn net.Conn) {
	defer clientConn.Close()

	handler := &PostgresHandler{
		router:      s.router,
		healthCheck: s.healthCheck,
		metrics:     s.metrics,
		sessions:    s.sessions,
		serverTLS:   s.serverTLS,
		dialTimeout: 10 * time.Second,
	}

	if err := handler.Handle(s.ctx, clientConn); err != nil {
		log.Printf("[proxy] connection error: %v", err)
	}
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() {
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	s.wg.Wait()
	log.Printf("[proxy] server stopped")
}
