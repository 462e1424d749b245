package proxy

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/dbbouncer/pgconvey/internal/config"
	"github.com/dbbouncer/pgconvey/internal/conveyor"
	"github.com/dbbouncer/pgconvey/internal/health"
	"github.com/dbbouncer/pgconvey/internal/metrics"
	"github.com/dbbouncer/pgconvey/internal/router"
	"github.com/dbbouncer/pgconvey/internal/sessions"
	"github.com/dbbouncer/pgconvey/internal/stream"
	"github.com/dbbouncer/pgconvey/internal/wire"
)

const (
	// pgSSLRequestCode is the magic (1234, 5679) version pair a frontend
	// sends in place of a real protocol version to ask for TLS.
	pgSSLRequestCode = 80877103

	maxStartupMessageLen = 10000

	// maxSSLNegotiationAttempts bounds the initial-frame loop so a client
	// that keeps re-sending TLSRequest cannot spin the goroutine forever.
	maxSSLNegotiationAttempts = 3
)

// PostgresHandler terminates one frontend connection: it resolves a route
// from the startup message, dials that route's backend (optionally over
// TLS), and hands both legs to the conveyor for the rest of the session.
type PostgresHandler struct {
	router      *router.Router
	healthCheck *health.Checker
	metrics     *metrics.Collector
	sessions    *sessions.Recorder
	serverTLS   stream.ServerTLSProvider // nil if the listener has no cert configured
	dialTimeout time.Duration
}

// Handle serves one accepted client connection until its conveyor ends.
func (h *PostgresHandler) Handle(ctx context.Context, clientConn net.Conn) error {
	frontend, rawStartup, params, err := h.negotiateInitial(clientConn)
	if err != nil {
		return fmt.Errorf("negotiating initial frame: %w", err)
	}

	routeName, ok := routeNameFromParams(params)
	if !ok {
		sendPGError(frontend, "FATAL", "08000", "no route could be resolved from the startup message")
		return fmt.Errorf("no route resolved from startup params")
	}

	rc, err := h.router.Resolve(routeName)
	if err != nil {
		sendPGError(frontend, "FATAL", "08000", fmt.Sprintf("unknown route: %s", routeName))
		return err
	}

	if h.healthCheck != nil && !h.healthCheck.IsHealthy(routeName) {
		sendPGError(frontend, "FATAL", "08006", fmt.Sprintf("route %s backend is unhealthy", routeName))
		return fmt.Errorf("route %s is unhealthy", routeName)
	}

	backend, err := h.dialBackend(rc)
	if err != nil {
		sendPGError(frontend, "FATAL", "08006", fmt.Sprintf("cannot reach backend for route %s", routeName))
		return fmt.Errorf("dialing backend for route %s: %w", routeName, err)
	}
	defer backend.Close()

	frontendWrapper := stream.NewPlain(&prebufConn{Conn: frontend, buf: rawStartup})
	backendWrapper := stream.NewPlain(backend)

	observers := conveyor.MultiObserver{conveyor.LoggingObserver{}}
	if h.metrics != nil {
		observers = append(observers, conveyor.MetricsObserver{Collector: h.metrics})
	}
	var sess *sessions.Session
	if h.sessions != nil {
		sess = sessions.NewSession(h.sessions, routeName)
		observers = append(observers, sess)
	}

	if h.metrics != nil {
		h.metrics.ConveyorStarted(routeName)
	}
	start := time.Now()

	err = conveyor.Convey(ctx, frontendWrapper, backendWrapper, noServerTLS{}, noClientTLS{}, observers, routeName)

	result := "ok"
	if err != nil {
		result = "error"
	}
	if h.metrics != nil {
		h.metrics.ConveyorFinished(routeName, result, time.Since(start))
	}
	if sess != nil {
		sess.Finish(result, err)
	}
	return err
}

// negotiateInitial reads the frontend's untagged initial frame(s), handling
// any leading TLSRequest itself (the proxy's own certificate, independent
// of which route is eventually chosen) before the real Startup arrives. It
// returns the (possibly TLS-upgraded) connection, the raw Startup frame
// bytes for replay into the conveyor, and the decoded startup params.
func (h *PostgresHandler) negotiateInitial(conn net.Conn) (net.Conn, []byte, []wire.StartupParam, error) {
	current := conn

	for attempt := 0; attempt <= maxSSLNegotiationAttempts; attempt++ {
		raw, body, err := readInitialFrame(current)
		if err != nil {
			return nil, nil, nil, err
		}

		switch v := body.(type) {
		case *wire.CancelRequest:
			return nil, nil, nil, fmt.Errorf("cancel request received with no session to cancel")

		case *wire.TLSRequest:
			verdict := byte('N')
			if h.serverTLS != nil {
				verdict = 'S'
			}
			if _, err := current.Write([]byte{verdict}); err != nil {
				return nil, nil, nil, fmt.Errorf("writing TLS verdict: %w", err)
			}
			if verdict == 'S' {
				upgraded, err := h.serverTLS.Accept(current)
				if err != nil {
					return nil, nil, nil, fmt.Errorf("frontend TLS handshake: %w", err)
				}
				current = upgraded
			}
			continue

		case *wire.Startup:
			return current, raw, v.Params, nil

		default:
			return nil, nil, nil, fmt.Errorf("unexpected initial message kind")
		}
	}

	return nil, nil, nil, fmt.Errorf("too many TLS negotiation attempts")
}

func routeNameFromParams(params []wire.StartupParam) (string, bool) {
	pairs := make([][2]string, len(params))
	var user string
	for i, p := range params {
		pairs[i] = [2]string{p.Name, p.Value}
		if p.Name == "user" {
			user = p.Value
		}
	}
	if routeName, _, ok := router.ExtractRouteFromUsername(user); ok {
		return routeName, true
	}
	return router.ResolveFromStartupParams(pairs)
}

// dialBackend opens a fresh connection to rc's backend, negotiating TLS on
// the way in if the route requires it.
func (h *PostgresHandler) dialBackend(rc config.RouteConfig) (net.Conn, error) {
	addr := fmt.Sprintf("%s:%d", rc.Host, rc.Port)
	d := net.Dialer{Timeout: h.dialTimeout}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	if !rc.TLSRequired {
		return conn, nil
	}

	if err := writeSSLRequest(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("writing SSLRequest: %w", err)
	}

	var verdict [1]byte
	if _, err := io.ReadFull(conn, verdict[:]); err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading TLS verdict: %w", err)
	}
	if verdict[0] != 'S' {
		conn.Close()
		return nil, fmt.Errorf("backend refused TLS for a route that requires it")
	}

	tlsConn := tls.Client(conn, &tls.Config{InsecureSkipVerify: true}) //nolint:gosec // backend identity is pinned by config host/port, not cert chain
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("backend TLS handshake: %w", err)
	}
	return tlsConn, nil
}

func writeSSLRequest(conn net.Conn) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[:4], 8)
	binary.BigEndian.PutUint32(buf[4:], pgSSLRequestCode)
	_, err := conn.Write(buf)
	return err
}

// readInitialFrame reads one untagged frontend initial frame: a 4-byte
// inclusive length followed by its body, decoded via wire.DecodeInitial.
func readInitialFrame(r io.Reader) (raw []byte, body interface{}, err error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, nil, fmt.Errorf("reading initial frame length: %w", err)
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length < 8 || length > maxStartupMessageLen {
		return nil, nil, fmt.Errorf("invalid initial frame length: %d", length)
	}
	raw = make([]byte, length)
	copy(raw, lenBuf[:])
	if _, err := io.ReadFull(r, raw[4:]); err != nil {
		return nil, nil, fmt.Errorf("reading initial frame body: %w", err)
	}
	src := wire.NewSource(raw[4:])
	_, decoded, err := wire.DecodeInitial(src)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding initial frame: %w", err)
	}
	return raw, decoded, nil
}

// sendPGError writes a minimal ErrorResponse straight to conn, for
// rejections that happen before a backend (and thus a conveyor) exists.
func sendPGError(conn net.Conn, severity, code, message string) {
	var body []byte
	body = append(body, 'S')
	body = append(body, severity...)
	body = append(body, 0)
	body = append(body, 'C')
	body = append(body, code...)
	body = append(body, 0)
	body = append(body, 'M')
	body = append(body, message...)
	body = append(body, 0)
	body = append(body, 0)

	msg := make([]byte, 1+4+len(body))
	msg[0] = 'E'
	binary.BigEndian.PutUint32(msg[1:5], uint32(4+len(body)))
	copy(msg[5:], body)

	if _, err := conn.Write(msg); err != nil {
		slog.Debug("failed to write error response", "err", err)
	}
}

// noServerTLS/noClientTLS implement stream.ServerTLSProvider/ClientTLSProvider
// for the steady-state conveyor, which never sees a TLSRequest in this
// acceptor's flow: both legs' TLS state (if any) is already settled by the
// time Convey is called, so a second TLSRequest is always a protocol
// violation and these providers simply refuse it.
type noServerTLS struct{}

func (noServerTLS) Accept(net.Conn) (net.Conn, error) {
	return nil, fmt.Errorf("TLS already negotiated before the conveyor started")
}

type noClientTLS struct{}

func (noClientTLS) Connect(net.Conn) (net.Conn, error) {
	return nil, fmt.Errorf("TLS already negotiated before the conveyor started")
}
