package server

import (
	"context"
	"fmt"
	"maps"
	"net"
	"time"

	proxyproto "github.com/pires/go-proxyproto"
)

// ListenAndServe creates a TCP listener on s.addr and calls Serve.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.logger.Info("ftp server listening", "addr", s.addr)
	return s.Serve(ln)
}

// Shutdown stops accepting new connections and waits for active ones to
// finish, forcing them closed if ctx expires first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)

	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for s.activeConns.Load() != 0 {
			time.Sleep(100 * time.Millisecond)
		}
	}()

	select {
	case <-done:
		return err
	case <-ctx.Done():
		s.mu.Lock()
		conns := s.conns
		s.conns = make(map[net.Conn]struct{})
		s.mu.Unlock()
		for conn := range maps.Keys(conns) {
			conn.Close()
		}
		if err != nil {
			return err
		}
		return ctx.Err()
	}
}

// Serve accepts connections on l until it is closed or the server shuts
// down. When PROXY protocol mode is configured, l is wrapped so every
// Accept returns an already-parsed *proxyproto.Conn, and every accepted
// connection is routed through the switchboard demux before it can reach a
// Session.
func (s *Server) Serve(l net.Listener) error {
	if s.proxyInfo != nil {
		l = &proxyproto.Listener{Listener: l}
	}

	s.mu.Lock()
	if s.inShutdown.Load() {
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	s.listener = l
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.listener == l {
			s.listener = nil
		}
		s.mu.Unlock()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.inShutdown.Load() {
				return ErrServerClosed
			}
			s.logger.Error("accept error", "error", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

// handleConnection routes an accepted connection: in PROXY mode it may be a
// data connection the switchboard consumes entirely, never reaching a
// Session.
func (s *Server) handleConnection(conn net.Conn) {
	if s.switchboard != nil {
		pc, ok := conn.(*proxyproto.Conn)
		if !ok {
			s.logger.Error("proxy mode misconfigured: raw connection without PROXY header")
			conn.Close()
			return
		}
		ctlConn, err := s.switchboard.HandleConn(pc)
		if err != nil {
			s.logger.Warn("proxy_demux_failed", "error", err)
			return
		}
		if ctlConn == nil {
			return // consumed as a data connection
		}
		conn = ctlConn
	}

	if !s.trackConnection(conn, true) {
		conn.Close()
		return
	}
	defer s.trackConnection(conn, false)

	s.handleSession(conn)
}

// trackConnection adds or removes conn from the live-connection and
// per-IP accounting used by WithMaxConnections. It refuses new connections
// once Shutdown has begun.
func (s *Server) trackConnection(conn net.Conn, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inShutdown.Load() {
		conn.Close()
		return false
	}

	ip := connIP(conn)
	if add {
		s.conns[conn] = struct{}{}
		if s.maxConnectionsPerIP > 0 {
			s.connsByIPMu.Lock()
			s.connsByIP[ip]++
			s.connsByIPMu.Unlock()
		}
		return true
	}

	delete(s.conns, conn)
	if s.maxConnectionsPerIP > 0 {
		s.connsByIPMu.Lock()
		s.connsByIP[ip]--
		if s.connsByIP[ip] <= 0 {
			delete(s.connsByIP, ip)
		}
		s.connsByIPMu.Unlock()
	}
	return true
}

func connIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
