package stream

import "net"

// ErrTLSRequestedInsideTLS is raised when a frontend sends a second
// TLSRequest after its leg has already been upgraded once.
var ErrTLSRequestedInsideTLS = &tlsRequestedInsideTLSError{}

type tlsRequestedInsideTLSError struct{}

func (e *tlsRequestedInsideTLSError) Error() string {
	return "stream: TLS requested inside an already-upgraded TLS leg"
}

// SwitchToTLS drives the C7 splice: detach the plaintext connection from w,
// run handshake over it, and install the result back into w. On handshake
// failure w is left in the Handshaking sentinel state so any later read or
// write surfaces ErrHandshakeDisrupted, matching the "never silently fall
// back to plaintext" requirement.
func SwitchToTLS(w *Wrapper, handshake func(plain net.Conn) (tlsConn net.Conn, err error)) error {
	plain, err := w.ReplacePlainWith()
	if err != nil {
		return err
	}
	upgraded, err := handshake(plain)
	if err != nil {
		return err
	}
	return w.InstallTLS(upgraded)
}
