// Package stream holds the per-leg transport wrapper that lets a conveyor
// leg start out plaintext and be upgraded to TLS in place, without ever
// losing ownership of the underlying connection.
package stream

import (
	"errors"
	"fmt"
	"net"
	"sync"
)

// variant is the wrapper's internal tagged-union discriminant.
type variant int

const (
	variantPlain variant = iota
	variantHandshaking
	variantTLS
)

// ErrHandshakeDisrupted is returned by Read, Write, or ReplacePlainWith
// whenever the wrapper is caught in the Handshaking sentinel state — either
// a concurrent caller is already mid-upgrade, or a prior upgrade attempt
// failed and left the wrapper stuck.
var ErrHandshakeDisrupted = errors.New("stream: handshake disrupted")

// Wrapper holds exactly one of: a plaintext net.Conn, nothing (the
// Handshaking sentinel, installed while the plaintext conn is on loan to a
// TLS handshake), or an upgraded TLS net.Conn. It is safe for concurrent
// Read and Write from different goroutines, matching net.Conn's contract,
// but ReplacePlainWith/InstallTLS are single-shot per upgrade and
// must not race each other.
type Wrapper struct {
	mu      sync.Mutex
	variant variant
	plain   net.Conn
	tls     net.Conn
}

// NewPlain wraps conn in the Plain variant.
func NewPlain(conn net.Conn) *Wrapper {
	return &Wrapper{variant: variantPlain, plain: conn}
}

// Read implements io.Reader by delegating to whichever transport is
// currently installed. It fails with ErrHandshakeDisrupted while the
// wrapper is mid-upgrade.
func (w *Wrapper) Read(p []byte) (int, error) {
	conn, err := w.current()
	if err != nil {
		return 0, err
	}
	return conn.Read(p)
}

// Write implements io.Writer the same way Read does, and additionally
// retries on short writes so callers observe write_all semantics.
func (w *Wrapper) Write(p []byte) (int, error) {
	conn, err := w.current()
	if err != nil {
		return 0, err
	}
	total := 0
	for total < len(p) {
		n, err := conn.Write(p[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (w *Wrapper) current() (net.Conn, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.variant {
	case variantPlain:
		return w.plain, nil
	case variantTLS:
		return w.tls, nil
	default:
		return nil, ErrHandshakeDisrupted
	}
}

// ReplacePlainWith atomically takes the plaintext connection out of the
// wrapper, leaving the Handshaking sentinel installed, and hands the
// connection to the caller. It fails with ErrHandshakeDisrupted unless the
// wrapper is currently Plain.
func (w *Wrapper) ReplacePlainWith() (net.Conn, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.variant != variantPlain {
		return nil, ErrHandshakeDisrupted
	}
	plain := w.plain
	w.plain = nil
	w.variant = variantHandshaking
	return plain, nil
}

// InstallTLS transitions Handshaking to Tls, completing an upgrade begun by
// ReplacePlainWith. Calling it from any other variant is a logic error.
func (w *Wrapper) InstallTLS(conn net.Conn) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.variant != variantHandshaking {
		return fmt.Errorf("stream: InstallTLS called outside Handshaking (variant=%d)", w.variant)
	}
	w.tls = conn
	w.variant = variantTLS
	return nil
}

// Close closes whichever underlying connection is installed.
func (w *Wrapper) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.variant {
	case variantPlain:
		return w.plain.Close()
	case variantTLS:
		return w.tls.Close()
	default:
		return nil
	}
}
