package server

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mbrt/ftpd/internal/ratelimit"
)

// Server is the FTP server: it accepts control connections, builds a
// Session and CommandContext for each, and runs the event loop (loop.go)
// until the client disconnects or the server shuts down. Each connection
// runs in its own goroutine.
type Server struct {
	addr string

	storage       Storage
	authenticator Authenticator

	logger *slog.Logger

	tlsConfig *tls.Config

	greeting   string
	serverName string

	idleTimeout  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration

	maxConnections      int
	maxConnectionsPerIP int
	activeConns         atomic.Int32
	connsByIP           map[string]int32
	connsByIPMu         sync.Mutex

	passiveMin int
	passiveMax int

	proxyInfo   *ProxyInfo
	switchboard *Switchboard

	pathRedactor     PathRedactor
	redactIPs        bool
	enableDirMessage bool

	disabledCommands map[Verb]bool

	metricsCollector MetricsCollector
	transferLog      io.Writer

	bandwidthLimitGlobal  int64
	bandwidthLimitPerUser int64
	globalLimiter         *ratelimit.Limiter

	mu         sync.Mutex
	listener   net.Listener
	conns      map[net.Conn]struct{}
	inShutdown atomic.Bool
}

// ErrServerClosed is returned by Serve/ListenAndServe after Shutdown.
var ErrServerClosed = errors.New("ftp: Server closed")

// NewServer creates a server listening on addr once started. WithStorage
// and WithAuthenticator are required.
func NewServer(addr string, options ...Option) (*Server, error) {
	s := &Server{
		addr:        addr,
		logger:      slog.Default(),
		greeting:    "Service ready.",
		serverName:  "UNIX Type: L8",
		idleTimeout: 10 * time.Minute,
		conns:       make(map[net.Conn]struct{}),
		connsByIP:   make(map[string]int32),
	}

	for _, opt := range options {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.storage == nil {
		return nil, fmt.Errorf("storage is required (use WithStorage option)")
	}
	if s.authenticator == nil {
		return nil, fmt.Errorf("authenticator is required (use WithAuthenticator option)")
	}

	if s.bandwidthLimitGlobal > 0 {
		s.globalLimiter = ratelimit.New(s.bandwidthLimitGlobal)
	}

	if s.proxyInfo != nil {
		s.switchboard = NewSwitchboard(s.proxyInfo.ExternalIP, s.proxyInfo.ExternalControlPort, s.passiveMin, s.passiveMax)
	}

	return s, nil
}

// redactPath applies the configured PathRedactor, if any.
func (s *Server) redactPath(path string) string {
	if s.pathRedactor == nil {
		return path
	}
	return s.pathRedactor(path)
}

// redactIP masks the trailing segment of ip when redaction is enabled.
func (s *Server) redactIP(ip string) string {
	if !s.redactIPs || ip == "" {
		return ip
	}
	if strings.Contains(ip, ".") {
		parts := strings.Split(ip, ".")
		if len(parts) == 4 {
			parts[3] = "xxx"
			return strings.Join(parts, ".")
		}
	}
	if i := strings.LastIndex(ip, ":"); i > 0 {
		return ip[:i+1] + "xxx"
	}
	return ip
}

// handleSession enforces connection limits, then builds the Session,
// CommandContext and transport for conn and runs the event loop.
func (s *Server) handleSession(conn net.Conn) {
	ip := connIP(conn)

	if s.maxConnections > 0 && s.activeConns.Load() >= int32(s.maxConnections) {
		s.logger.Warn("connection_rejected", "remote_ip", s.redactIP(ip), "reason", "global_limit_reached")
		if s.metricsCollector != nil {
			s.metricsCollector.RecordConnection(false, "global_limit_reached")
		}
		fmt.Fprintf(conn, "421 Too many users, sorry.\r\n")
		conn.Close()
		return
	}

	if s.maxConnectionsPerIP > 0 {
		s.connsByIPMu.Lock()
		count := s.connsByIP[ip]
		s.connsByIPMu.Unlock()
		if count > int32(s.maxConnectionsPerIP) {
			s.logger.Warn("connection_rejected", "remote_ip", s.redactIP(ip), "reason", "per_ip_limit_reached")
			if s.metricsCollector != nil {
				s.metricsCollector.RecordConnection(false, "per_ip_limit_reached")
			}
			fmt.Fprintf(conn, "421 Too many connections from your IP address.\r\n")
			conn.Close()
			return
		}
	}

	s.activeConns.Add(1)
	defer s.activeConns.Add(-1)

	if s.metricsCollector != nil {
		s.metricsCollector.RecordConnection(true, "accepted")
	}

	if s.readTimeout > 0 || s.writeTimeout > 0 {
		conn = &deadlineConn{Conn: conn, readTimeout: s.readTimeout, writeTimeout: s.writeTimeout}
	}

	sess := newSession(conn.RemoteAddr())
	s.logger.Info("session_started", "session_id", sess.ID, "remote_ip", s.redactIP(ip))

	t := newPlainTransport(conn)
	tnet := newTelnetReader(conn)
	c := newCodec(tnet, bufio.NewReader(tnet), bufio.NewWriter(conn))

	ctx := &CommandContext{
		Session:       sess,
		Storage:       s.storage,
		Authenticator: s.authenticator,
		TLSConfigured: s.tlsConfig != nil,
		PassiveMin:    s.passiveMin,
		PassiveMax:    s.passiveMax,
		LocalAddr:     conn.LocalAddr(),
		Switchboard:   s.switchboard,
		Proxy:         s.proxyInfo,
		Logger:        s.logger,
		tlsConfig:     s.tlsConfig,

		ServerName:       s.serverName,
		DirMessage:       s.enableDirMessage,
		DisabledCommands: s.disabledCommands,

		bandwidthLimitPerUser: s.bandwidthLimitPerUser,
		globalLimiter:         s.globalLimiter,
		metrics:               s.metricsCollector,
		transferLog:           s.transferLog,
	}

	runLoop(t, c, ctx, s.idleTimeout, s.greeting)
	s.logger.Info("session_ended", "session_id", sess.ID)
}

// deadlineConn resets a fixed read/write deadline on every I/O call.
type deadlineConn struct {
	net.Conn
	readTimeout, writeTimeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if c.readTimeout > 0 {
		c.Conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if c.writeTimeout > 0 {
		c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.Conn.Write(p)
}
