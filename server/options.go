package server

import (
	"crypto/tls"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"
)

// Option is a functional option for configuring an FTP server.
type Option func(*Server) error

// WithStorage sets the backend used for file and directory operations.
// Required.
func WithStorage(storage Storage) Option {
	return func(s *Server) error {
		s.storage = storage
		return nil
	}
}

// WithAuthenticator sets the backend used to verify USER/PASS credentials.
// Required.
func WithAuthenticator(a Authenticator) Option {
	return func(s *Server) error {
		s.authenticator = a
		return nil
	}
}

// WithTLS enables explicit FTPS (AUTH TLS) using the given server
// configuration. Certificates loaded from a PKCS#12 bundle via
// LoadPKCS12TLSConfig are a common source for config.
func WithTLS(config *tls.Config) Option {
	return func(s *Server) error {
		s.tlsConfig = config
		return nil
	}
}

// WithLogger sets a custom logger for the server. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithIdleSessionTimeout sets how long a control connection may sit without
// a command before being closed with a 421. Defaults to 10 minutes.
func WithIdleSessionTimeout(d time.Duration) Option {
	return func(s *Server) error {
		s.idleTimeout = d
		return nil
	}
}

// WithReadTimeout sets the deadline applied to each read on a control
// connection. If 0 (default), no timeout is applied beyond the idle session
// timeout. Data connections are not subject to it.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) error {
		s.readTimeout = d
		return nil
	}
}

// WithWriteTimeout sets the deadline applied to each write on a control
// connection. If 0 (default), no timeout is applied. Data connections are not
// subject to it.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) error {
		s.writeTimeout = d
		return nil
	}
}

// WithMaxConnections sets the maximum number of simultaneous control
// connections (max) and the maximum per remote IP (maxPerIP). 0 disables
// either limit.
func WithMaxConnections(max, maxPerIP int) Option {
	return func(s *Server) error {
		s.maxConnections = max
		s.maxConnectionsPerIP = maxPerIP
		return nil
	}
}

// WithPassivePorts restricts PASV/EPSV-allocated data ports to [min, max].
// 0,0 (default) lets the kernel pick an ephemeral port per connection.
func WithPassivePorts(min, max int) Option {
	return func(s *Server) error {
		s.passiveMin = min
		s.passiveMax = max
		return nil
	}
}

// WithProxyProtocol enables PROXY protocol mode: the listener expects every
// inbound TCP connection, control or data, to be PROXY-framed and
// demultiplexes them through a Switchboard keyed on the advertised
// external address.
func WithProxyProtocol(externalIP net.IP, externalControlPort int) Option {
	return func(s *Server) error {
		s.proxyInfo = &ProxyInfo{ExternalIP: externalIP, ExternalControlPort: externalControlPort}
		return nil
	}
}

// WithGreeting sets the text of the 220 banner sent on connect. Defaults to
// "Service ready.".
func WithGreeting(message string) Option {
	return func(s *Server) error {
		s.greeting = message
		return nil
	}
}

// WithServerName sets the SYST reply text. Defaults to "UNIX Type: L8".
func WithServerName(name string) Option {
	return func(s *Server) error {
		s.serverName = name
		return nil
	}
}

// WithPathRedactor sets a custom path redaction function applied before
// paths are written to logs.
func WithPathRedactor(redactor PathRedactor) Option {
	return func(s *Server) error {
		s.pathRedactor = redactor
		return nil
	}
}

// WithRedactIPs enables redaction of the last IP octet/segment in logs.
func WithRedactIPs(enabled bool) Option {
	return func(s *Server) error {
		s.redactIPs = enabled
		return nil
	}
}

// WithEnableDirMessage enables the .message directory banner feature: a
// successful CWD appends the contents of a ".message" file in the target
// directory, if one exists, to the 250 reply.
func WithEnableDirMessage(enabled bool) Option {
	return func(s *Server) error {
		s.enableDirMessage = enabled
		return nil
	}
}

// WithMetricsCollector attaches a MetricsCollector, e.g.
// NewPrometheusMetricsCollector, to record command, transfer, connection,
// and authentication metrics.
func WithMetricsCollector(collector MetricsCollector) Option {
	return func(s *Server) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTransferLog sets the writer that receives one xferlog-format line per
// completed transfer.
func WithTransferLog(w io.Writer) Option {
	return func(s *Server) error {
		s.transferLog = w
		return nil
	}
}

// WithBandwidthLimit caps transfer throughput: global across all sessions,
// perUser per authenticated user, in bytes/sec. 0 disables either limit.
func WithBandwidthLimit(global, perUser int64) Option {
	return func(s *Server) error {
		s.bandwidthLimitGlobal = global
		s.bandwidthLimitPerUser = perUser
		return nil
	}
}

// WithDisableCommands rejects the given verbs with 502, regardless of the
// dispatch table, useful for read-only or hardened deployments.
func WithDisableCommands(verbs ...string) Option {
	return func(s *Server) error {
		if s.disabledCommands == nil {
			s.disabledCommands = make(map[Verb]bool)
		}
		for _, v := range verbs {
			s.disabledCommands[Verb(strings.ToUpper(v))] = true
		}
		return nil
	}
}

// WriteCommands is a convenience group for WithDisableCommands: every verb
// that mutates the backing storage.
var WriteCommands = []string{"STOR", "STOU", "APPE", "DELE", "RMD", "MKD", "RNFR", "RNTO"}
