package proxy

import "net"

// prebufConn replays a captured prefix of bytes ahead of whatever remains
// unread on conn. The acceptor uses it to hand the conveyor a frontend
// transport whose very next read reproduces the Startup frame the
// acceptor already consumed while resolving a route, so the conveyor's
// own initial-phase read sees exactly the bytes the client sent.
type prebufConn struct {
	net.Conn
	buf []byte
}

func (p *prebufConn) Read(b []byte) (int, error) {
	if len(p.buf) > 0 {
		n := copy(b, p.buf)
		p.buf = p.buf[n:]
		return n, nil
	}
	return p.Conn.Read(b)
}
