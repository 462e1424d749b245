package health

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/dbbouncer/pgconvey/internal/config"
	"github.com/dbbouncer/pgconvey/internal/metrics"
	"github.com/dbbouncer/pgconvey/internal/router"
)

// Status represents the health status of a route's backend.
type Status int

const (
	StatusUnknown Status = iota
	StatusHealthy
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// RouteHealth holds health information for one configured route.
type RouteHealth struct {
	Status              Status    `json:"status"`
	LastCheck           time.Time `json:"last_check"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastError           string    `json:"last_error,omitempty"`
}

// Checker performs periodic health checks on every configured route's
// backend. A route with no probe credentials gets a shallow (dial + minimal
// startup) check; a route with ProbeUsername/ProbePassword set gets a deep
// check that completes authentication and runs a query, independent of any
// live Conveyor.
type Checker struct {
	mu     sync.RWMutex
	routes map[string]*RouteHealth
	router *router.Router
	metric *metrics.Collector

	interval          time.Duration
	failureThreshold  int
	connectionTimeout time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewChecker creates a new health checker with configurable parameters.
func NewChecker(r *router.Router, m *metrics.Collector, hcCfg config.HealthCheckConfig) *Checker {
	return &Checker{
		routes:            make(map[string]*RouteHealth),
		router:            r,
		metric:            m,
		interval:          hcCfg.Interval,
		failureThreshold:  hcCfg.FailureThreshold,
		connectionTimeout: hcCfg.ConnectionTimeout,
		stopCh:            make(chan struct{}),
	}
}

// Start begins periodic health checking.
func (c *Checker) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run()
	}()
	slog.Info("health checker started", "interval", c.interval, "threshold", c.failureThreshold)
}

// Stop stops the health checker. Safe to call multiple times.
func (c *Checker) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	c.wg.Wait()
	slog.Info("health checker stopped")
}

func (c *Checker) run() {
	c.checkAll()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.checkAll()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Checker) checkAll() {
	routes := c.router.ListRoutes()

	const maxWorkers = 10
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup

	for name, rc := range routes {
		name, rc := name, rc
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			start := time.Now()
			healthy := c.pingRoute(name, rc)
			elapsed := time.Since(start)
			if c.metric != nil {
				c.metric.HealthCheckCompleted(name, elapsed, healthy)
			}
			c.updateStatus(name, healthy)
		}()
	}
	wg.Wait()
}

func (c *Checker) pingRoute(routeName string, rc config.RouteConfig) bool {
	addr := net.JoinHostPort(rc.Host, fmt.Sprintf("%d", rc.Port))
	conn, err := net.DialTimeout("tcp", addr, c.connectionTimeout)
	if err != nil {
		if c.metric != nil {
			c.metric.HealthCheckError(routeName, "connection_refused")
		}
		c.setLastError(routeName, err.Error())
		return false
	}
	defer conn.Close()

	if rc.HasProbeCredentials() {
		return c.pingDeep(routeName, conn, rc)
	}
	return c.pingShallow(routeName, conn)
}

// pingShallow sends a minimal startup message and checks for any response.
// It never completes authentication: any response at all — an auth
// request, an error, anything — proves the backend is alive and speaking
// the protocol.
func (c *Checker) pingShallow(routeName string, conn net.Conn) bool {
	conn.SetDeadline(time.Now().Add(c.connectionTimeout))

	params := []byte("user\x00pgconvey_healthcheck\x00\x00")
	msgLen := 4 + 4 + len(params)
	msg := make([]byte, msgLen)
	binary.BigEndian.PutUint32(msg[0:4], uint32(msgLen))
	binary.BigEndian.PutUint16(msg[4:6], 3)
	binary.BigEndian.PutUint16(msg[6:8], 0)
	copy(msg[8:], params)

	if _, err := conn.Write(msg); err != nil {
		c.setLastError(routeName, fmt.Sprintf("write startup: %s", err))
		return false
	}

	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err != nil {
		c.setLastError(routeName, fmt.Sprintf("read response: %s", err))
		return false
	}
	return true
}

// pingDeep completes a full startup and authentication handshake using the
// route's probe credentials, then runs "SELECT 1" and reads through to
// ReadyForQuery. It owns this connection end to end and is not a Conveyor:
// it never forwards bytes between two peers, so it does not fall under the
// proxy's "never impersonates either side" behavior.
func (c *Checker) pingDeep(routeName string, conn net.Conn, rc config.RouteConfig) bool {
	conn.SetDeadline(time.Now().Add(c.connectionTimeout))

	params := []byte(fmt.Sprintf("user\x00%s\x00database\x00%s\x00\x00", rc.ProbeUsername, routeDatabase(rc)))
	msgLen := 4 + 4 + len(params)
	msg := make([]byte, msgLen)
	binary.BigEndian.PutUint32(msg[0:4], uint32(msgLen))
	binary.BigEndian.PutUint16(msg[4:6], 3)
	binary.BigEndian.PutUint16(msg[6:8], 0)
	copy(msg[8:], params)

	if _, err := conn.Write(msg); err != nil {
		c.setLastError(routeName, fmt.Sprintf("write startup: %s", err))
		return false
	}

	if err := c.authenticate(conn, rc); err != nil {
		if c.metric != nil {
			c.metric.HealthCheckError(routeName, "auth_error")
		}
		c.setLastError(routeName, "authentication: "+err.Error())
		return false
	}

	if err := c.drainToReady(conn); err != nil {
		c.setLastError(routeName, "post-auth drain: "+err.Error())
		return false
	}

	if err := writeTaggedMessage(conn, 'Q', append([]byte("SELECT 1"), 0)); err != nil {
		if c.metric != nil {
			c.metric.HealthCheckError(routeName, "write_error")
		}
		c.setLastError(routeName, "query write: "+err.Error())
		return false
	}

	for {
		msgType, _, err := readPGHealthMsg(conn)
		if err != nil {
			if c.metric != nil {
				c.metric.HealthCheckError(routeName, "read_error")
			}
			c.setLastError(routeName, "query read: "+err.Error())
			return false
		}
		switch msgType {
		case 'E':
			if c.metric != nil {
				c.metric.HealthCheckError(routeName, "query_error")
			}
			c.setLastError(routeName, "SELECT 1 returned an error")
			return false
		case 'Z':
			c.setLastError(routeName, "")
			return true
		}
	}
}

// routeDatabase picks the database name a deep check authenticates
// against. Routes don't carry a separate database field (the route name
// itself names the upstream), so the probe connects to the default
// database matching the probe username.
func routeDatabase(rc config.RouteConfig) string {
	return rc.ProbeUsername
}

func (c *Checker) authenticate(conn net.Conn, rc config.RouteConfig) error {
	typeBuf := make([]byte, 1)
	if _, err := io.ReadFull(conn, typeBuf); err != nil {
		return fmt.Errorf("reading auth message type: %w", err)
	}
	if typeBuf[0] == 'E' {
		return readAndParseError(conn)
	}
	if typeBuf[0] != 'R' {
		return fmt.Errorf("expected Authentication ('R'), got '%c'", typeBuf[0])
	}

	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(conn, lenBuf); err != nil {
		return fmt.Errorf("reading auth message length: %w", err)
	}
	payloadLen := int(binary.BigEndian.Uint32(lenBuf)) - 4
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return fmt.Errorf("reading auth payload: %w", err)
	}

	authType := binary.BigEndian.Uint32(payload[:4])
	switch authType {
	case 0:
		return nil // AuthenticationOk, no password needed (trust/peer)
	case 5:
		var salt [4]byte
		copy(salt[:], payload[4:8])
		return md5Auth(conn, rc.ProbeUsername, rc.ProbePassword, salt)
	case 10:
		return scramSHA256Auth(conn, rc.ProbeUsername, rc.ProbePassword, payload)
	default:
		return fmt.Errorf("unsupported authentication method: %d", authType)
	}
}

// drainToReady reads messages until ReadyForQuery, which follows a
// successful authentication (ParameterStatus*, BackendKeyData, ReadyForQuery).
func (c *Checker) drainToReady(conn net.Conn) error {
	for {
		msgType, _, err := readPGHealthMsg(conn)
		if err != nil {
			return err
		}
		switch msgType {
		case 'E':
			return fmt.Errorf("backend returned an error after authentication")
		case 'Z':
			return nil
		}
	}
}

func (c *Checker) setLastError(routeName, errMsg string) {
	c.mu.Lock()
	rh := c.getOrCreate(routeName)
	if errMsg != "" {
		rh.LastError = errMsg
	}
	c.mu.Unlock()
}

func (c *Checker) updateStatus(routeName string, healthy bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rh := c.getOrCreate(routeName)
	rh.LastCheck = time.Now()

	if healthy {
		if rh.ConsecutiveFailures > 0 {
			slog.Info("route recovered", "route", routeName, "failures", rh.ConsecutiveFailures)
		}
		rh.Status = StatusHealthy
		rh.ConsecutiveFailures = 0
		rh.LastError = ""
	} else {
		rh.ConsecutiveFailures++
		if rh.ConsecutiveFailures >= c.failureThreshold {
			if rh.Status != StatusUnhealthy {
				slog.Warn("route marked unhealthy", "route", routeName, "failures", rh.ConsecutiveFailures, "error", rh.LastError)
			}
			rh.Status = StatusUnhealthy
		}
	}

	if c.metric != nil {
		c.metric.SetRouteHealth(routeName, rh.Status == StatusHealthy)
	}
}

func (c *Checker) getOrCreate(routeName string) *RouteHealth {
	rh, ok := c.routes[routeName]
	if !ok {
		rh = &RouteHealth{Status: StatusUnknown}
		c.routes[routeName] = rh
	}
	return rh
}

// IsHealthy returns whether a route is healthy (or unknown, which is
// treated as healthy so a just-added route isn't rejected before its
// first check runs).
func (c *Checker) IsHealthy(routeName string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rh, ok := c.routes[routeName]
	if !ok {
		return true
	}
	return rh.Status != StatusUnhealthy
}

// GetStatus returns the health status for a route.
func (c *Checker) GetStatus(routeName string) RouteHealth {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rh, ok := c.routes[routeName]
	if !ok {
		return RouteHealth{Status: StatusUnknown}
	}
	return *rh
}

// GetAllStatuses returns health statuses for all known routes.
func (c *Checker) GetAllStatuses() map[string]RouteHealth {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]RouteHealth, len(c.routes))
	for name, rh := range c.routes {
		result[name] = *rh
	}
	return result
}

// OverallHealthy returns true if every known route is healthy.
func (c *Checker) OverallHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, rh := range c.routes {
		if rh.Status == StatusUnhealthy {
			return false
		}
	}
	return true
}

// RemoveRoute removes health state for a route dropped from config.
func (c *Checker) RemoveRoute(routeName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.routes, routeName)
	if c.metric != nil {
		c.metric.RemoveRoute(routeName)
	}
	slog.Info("removed health state", "route", routeName)
}

// readPGHealthMsg reads a PG message and returns its type and payload.
func readPGHealthMsg(conn net.Conn) (byte, []byte, error) {
	typeBuf := make([]byte, 1)
	if _, err := io.ReadFull(conn, typeBuf); err != nil {
		return 0, nil, err
	}
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(conn, lenBuf); err != nil {
		return 0, nil, err
	}
	payloadLen := int(binary.BigEndian.Uint32(lenBuf)) - 4
	if payloadLen < 0 || payloadLen > 1<<20 {
		return 0, nil, fmt.Errorf("invalid message length: %d", payloadLen)
	}
	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := io.ReadFull(conn, payload); err != nil {
			return 0, nil, err
		}
	}
	return typeBuf[0], payload, nil
}
