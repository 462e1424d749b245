package stream

import (
	"crypto/tls"
	"net"
)

// ServerTLSProvider performs the server role of a TLS handshake: accepting
// an upgrade request from a connected frontend.
type ServerTLSProvider interface {
	Accept(conn net.Conn) (net.Conn, error)
}

// ClientTLSProvider performs the client role: initiating an upgrade
// against a connected backend.
type ClientTLSProvider interface {
	Connect(conn net.Conn) (net.Conn, error)
}

// ServerConfig adapts a *tls.Config to ServerTLSProvider, matching the
// MinVersion/Certificates shape the proxy loads its listener certificate
// with.
type ServerConfig struct {
	Config *tls.Config
}

// Accept runs the server side of the TLS handshake over conn.
func (s ServerConfig) Accept(conn net.Conn) (net.Conn, error) {
	tlsConn := tls.Server(conn, s.Config)
	if err := tlsConn.Handshake(); err != nil {
		return nil, err
	}
	return tlsConn, nil
}

// ClientConfig adapts a *tls.Config to ClientTLSProvider for the backend
// leg's connect role.
type ClientConfig struct {
	Config *tls.Config
}

// Connect runs the client side of the TLS handshake over conn.
func (c ClientConfig) Connect(conn net.Conn) (net.Conn, error) {
	tlsConn := tls.Client(conn, c.Config)
	if err := tlsConn.Handshake(); err != nil {
		return nil, err
	}
	return tlsConn, nil
}
