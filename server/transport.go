package server

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
)

// transport is the control connection's current wire, swapped in place by
// AUTH/CCC without tearing down the session.
type transport struct {
	conn net.Conn
	tls  bool
}

func newPlainTransport(conn net.Conn) *transport {
	return &transport{conn: conn}
}

// upgrade performs the server-side TLS handshake over the current
// connection and returns a new transport wrapping the TLS conn. The raw
// conn is not closed; tls.Server takes ownership of it.
func (t *transport) upgrade(cfg *tls.Config) (*transport, error) {
	tlsConn := tls.Server(t.conn, cfg)
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		return nil, err
	}
	return &transport{conn: tlsConn, tls: true}, nil
}

// downgrade (CCC) returns the transport's underlying plaintext connection,
// unwrapping a *tls.Conn back to its raw net.Conn.
func (t *transport) downgrade() *transport {
	if c, ok := t.conn.(*tls.Conn); ok {
		return &transport{conn: c.NetConn()}
	}
	return t
}

// rebindCodec re-frames c over this transport in place, reusing the telnet
// filter the normal connection setup applies.
func (t *transport) rebindCodec(c *codec) {
	tnet := newTelnetReader(t.conn)
	c.rebind(tnet, bufio.NewReader(tnet), bufio.NewWriter(t.conn))
}
