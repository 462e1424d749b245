// Package conveyor implements the per-connection state machine that reads
// framed PostgreSQL protocol messages off two legs, surfaces each to an
// observer, and forwards the raw bytes to the opposite leg unchanged.
package conveyor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dbbouncer/pgconvey/internal/stream"
	"github.com/dbbouncer/pgconvey/internal/wire"
)

// conveyor holds the per-connection state for one run of Convey. It is not
// exported: callers only ever see the Convey function and the Observer
// interface.
type conveyor struct {
	ctx       context.Context
	frontend  *stream.Wrapper
	backend   *stream.Wrapper
	serverTLS stream.ServerTLSProvider
	clientTLS stream.ClientTLSProvider
	observer  Observer
	route     string

	state       wire.State
	tlsUpgraded bool
}

// Convey runs one conveyor to completion: it owns frontend and backend for
// its lifetime and returns once the connection terminates, successfully or
// not. A nil error means a clean termination per §4.6 (Terminate,
// CancelRequest, or a pre-auth ErrorResponse); any non-nil error is
// terminal and the caller is expected to close both legs regardless.
func Convey(
	ctx context.Context,
	frontend, backend *stream.Wrapper,
	serverTLS stream.ServerTLSProvider,
	clientTLS stream.ClientTLSProvider,
	observer Observer,
	route string,
) error {
	c := &conveyor{
		ctx:       ctx,
		frontend:  frontend,
		backend:   backend,
		serverTLS: serverTLS,
		clientTLS: clientTLS,
		observer:  observer,
		route:     route,
	}
	err := c.runInitialPhase()
	if err != nil {
		return unwrapTerminated(err)
	}
	err = c.runSteadyState()
	return unwrapTerminated(err)
}

func unwrapTerminated(err error) error {
	if _, ok := err.(*terminated); ok {
		return nil
	}
	return err
}

func (c *conveyor) leg(side wire.Side) *stream.Wrapper {
	if side == wire.Frontend {
		return c.frontend
	}
	return c.backend
}

func (c *conveyor) opposite(side wire.Side) *stream.Wrapper {
	if side == wire.Frontend {
		return c.backend
	}
	return c.frontend
}

func (c *conveyor) forward(side wire.Side, raw []byte) error {
	if _, err := c.opposite(side).Write(raw); err != nil {
		return fmt.Errorf("forwarding %d bytes from %s: %w", len(raw), side, err)
	}
	return nil
}

// runInitialPhase implements the first part of §4.6: read the frontend's
// untagged initial frame and branch on CancelRequest / Startup /
// TLSRequest, handling the TLS negotiation sub-protocol before resuming
// with Startup if a splice occurred.
func (c *conveyor) runInitialPhase() error {
	raw, kind, body, err := readInitialFrame(c.frontend)
	if err != nil {
		return err
	}

	switch kind {
	case wire.KindCancelRequest:
		if err := c.forward(wire.Frontend, raw); err != nil {
			return err
		}
		c.observer.Observe(c.route, wire.Message{Side: wire.Frontend, Kind: kind, Body: body})
		return &terminated{reason: "cancel request"}

	case wire.KindTLSRequest:
		if c.tlsUpgraded {
			return fmt.Errorf("TLS requested inside TLS: %w", stream.ErrTLSRequestedInsideTLS)
		}
		if err := c.forward(wire.Frontend, raw); err != nil {
			return err
		}
		c.observer.Observe(c.route, wire.Message{Side: wire.Frontend, Kind: kind, Body: body})
		return c.runTLSNegotiation()

	case wire.KindStartup:
		if err := c.forward(wire.Frontend, raw); err != nil {
			return err
		}
		c.observer.Observe(c.route, wire.Message{Side: wire.Frontend, Kind: kind, Body: body})
		c.state = wire.StateGotStartup
		return nil

	default:
		return fmt.Errorf("unreachable initial message kind %s", kind)
	}
}

// runTLSNegotiation reads the backend's one-byte verdict on the forwarded
// TLSRequest and either upgrades both legs and resumes the initial phase,
// or continues in plaintext, or forwards a pre-SSL server's ErrorResponse.
func (c *conveyor) runTLSNegotiation() error {
	var verdict [1]byte
	if err := readFull(c.backend, verdict[:]); err != nil {
		return fmt.Errorf("reading TLS negotiation verdict: %w", err)
	}

	switch verdict[0] {
	case 'S':
		if err := stream.SwitchToTLS(c.backend, c.clientTLS.Connect); err != nil {
			return fmt.Errorf("backend TLS handshake: %w", err)
		}
		if _, err := c.frontend.Write(verdict[:]); err != nil {
			return fmt.Errorf("writing TLS verdict to frontend: %w", err)
		}
		if err := stream.SwitchToTLS(c.frontend, c.serverTLS.Accept); err != nil {
			return fmt.Errorf("frontend TLS handshake: %w", err)
		}
		c.tlsUpgraded = true
		slog.Info("tls splice completed", "route", c.route)
		return c.runInitialPhase()

	case 'N':
		if _, err := c.frontend.Write(verdict[:]); err != nil {
			return fmt.Errorf("writing TLS verdict to frontend: %w", err)
		}
		return c.runInitialPhase()

	case 'E':
		raw, body, err := readTaggedFrame(c.backend, 'E', wire.KindErrorResponse)
		if err != nil {
			return fmt.Errorf("reading pre-SSL ErrorResponse: %w", err)
		}
		if err := c.forward(wire.Backend, raw); err != nil {
			return err
		}
		c.observer.Observe(c.route, wire.Message{Side: wire.Backend, Kind: wire.KindErrorResponse, Body: body})
		return &terminated{reason: "pre-SSL error response"}

	default:
		return &wire.UnknownTypeError{Side: wire.Backend, Tag: verdict[0]}
	}
}

// runSteadyState implements the main loop of §4.6: race one byte off each
// leg, resolve it to a message kind via the current state, decode the full
// frame, surface it to the observer, forward the raw bytes, and advance
// state.
func (c *conveyor) runSteadyState() error {
	racer := newLegRacer(c.ctx, c.frontend, c.backend)
	racer.requestBoth()

	for {
		lb, err := racer.next(c.ctx)
		if err != nil {
			return err
		}
		if lb.err != nil {
			return fmt.Errorf("reading next type byte from %s: %w", lb.side, lb.err)
		}

		kind, err := wire.ResolveTag(lb.side, lb.b, c.state)
		if err != nil {
			return err
		}

		raw, body, err := readTaggedFrame(c.leg(lb.side), lb.b, kind)
		if err != nil {
			return err
		}

		msg := wire.Message{Side: lb.side, Kind: kind, Body: body}
		c.observer.Observe(c.route, msg)

		if err := c.forward(lb.side, raw); err != nil {
			return err
		}

		result, err := advance(lb.side, kind, body, c.state)
		if err != nil {
			return err
		}
		if result.terminate {
			return &terminated{reason: fmt.Sprintf("%s %s in %s", lb.side, kind, c.state)}
		}
		c.state = result.next

		racer.request(lb.side)
	}
}
