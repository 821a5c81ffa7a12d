package server

import (
	"crypto/tls"
	"io"
	"log/slog"
	"net"

	"github.com/mbrt/ftpd/internal/ratelimit"
)

// ProxyInfo carries the PROXY-mode configuration (external address
// advertised in PASV replies and the control port the switchboard routes on
// its own). Nil when PROXY mode is disabled.
type ProxyInfo struct {
	ExternalIP          net.IP
	ExternalControlPort int
}

// CommandContext is the per-dispatch input a handler receives: the session
// handle, the pluggable collaborators, and everything a handler needs to
// compute a Reply without touching the wire directly.
type CommandContext struct {
	Session *Session
	Cmd     Command

	Storage       Storage
	Authenticator Authenticator

	TLSConfigured bool
	PassiveMin    int
	PassiveMax    int
	LocalAddr     net.Addr

	ServerName string // SYST reply text, e.g. "UNIX Type: L8"
	DirMessage bool   // show .message file contents after a successful CWD

	DisabledCommands map[Verb]bool

	Switchboard *Switchboard // nil unless PROXY mode is active
	Proxy       *ProxyInfo   // nil unless PROXY mode is active

	Logger *slog.Logger

	// tlsConfig is consulted by AUTH to build the server-side tls.Config
	// for the upgrade; nil when TLSConfigured is false.
	tlsConfig *tls.Config

	// bandwidthLimitPerUser is read by transfer.go to build a fresh
	// per-transfer limiter; globalLimiter is the single shared instance
	// every concurrent transfer on the server draws from, so the global
	// budget is actually global rather than reconstituted per transfer.
	bandwidthLimitPerUser int64
	globalLimiter         *ratelimit.Limiter

	metrics MetricsCollector

	// transferLog receives one xferlog-format line per completed transfer.
	// Nil disables xferlog output.
	transferLog io.Writer
}
