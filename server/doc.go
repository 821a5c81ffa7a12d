// Package server implements an FTP server built around a single
// control-channel event loop per connection, pluggable storage and
// authentication backends, and an optional PROXY-protocol data-connection
// switchboard for deployments behind a TCP load balancer.
//
// # Overview
//
// The package lets you:
//   - Embed an FTP server into your Go application
//   - Use a custom storage backend by implementing Storage
//   - Use a custom authentication backend by implementing Authenticator
//   - Terminate FTPS (explicit AUTH TLS and implicit TLS) at the control
//     and data channels independently
//   - Run behind a PROXY-protocol-speaking load balancer with passive mode
//     still usable
//
// # Getting Started
//
// FSDriver serves a local directory tree; MemoryAuthenticator checks
// credentials against an in-memory user map:
//
//	package main
//
//	import "log"
//	import "github.com/mbrt/ftpd/server"
//
//	func main() {
//	    storage, err := server.NewFSDriver("/srv/ftp", false)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    auth := server.NewMemoryAuthenticator(map[string]string{"alice": "hunter2"}, true)
//
//	    s, err := server.NewServer(":21",
//	        server.WithStorage(storage),
//	        server.WithAuthenticator(auth),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    log.Fatal(s.ListenAndServe())
//	}
//
// # FTPS
//
// LoadPKCS12TLSConfig builds a tls.Config from a .p12/.pfx bundle.
// WithTLS enables explicit FTPS (AUTH TLS, RFC 4217); wrapping the listener
// in tls.NewListener before calling Serve gives implicit FTPS on the legacy
// port:
//
//	tlsConfig, _ := server.LoadPKCS12TLSConfig("server.p12", "changeit")
//	s, _ := server.NewServer(":21",
//	    server.WithStorage(storage),
//	    server.WithAuthenticator(auth),
//	    server.WithTLS(tlsConfig),
//	)
//	s.ListenAndServe() // explicit FTPS on :21
//
//	l, _ := net.Listen("tcp", ":990")
//	s.Serve(tls.NewListener(l, tlsConfig)) // implicit FTPS on :990
//
// # Custom storage
//
// Implement Storage to connect the server to any backend — object storage,
// a database, a virtual filesystem:
//
//	type Storage interface {
//	    Metadata(path string) (Metadata, error)
//	    List(path string) ([]DirEntry, error)
//	    NLST(path string) ([]string, error)
//	    Get(path string, start int64) (io.ReadCloser, error)
//	    Put(path string, r io.Reader, appendMode bool) (int64, error)
//	    Delete(path string) error
//	    Mkd(path string) error
//	    Rmd(path string) error
//	    Rename(from, to string) error
//	    SupportedFeatures() StorageFeature
//	}
//
// # PROXY protocol mode
//
// WithProxyProtocol enables a mode where both control and data connections
// arrive PROXY-framed through the same listener; the server demultiplexes
// them with a Switchboard keyed on the client's advertised source address,
// so PASV/EPSV still work without a directly reachable data port per
// session:
//
//	s, _ := server.NewServer(":21",
//	    server.WithStorage(storage),
//	    server.WithAuthenticator(auth),
//	    server.WithProxyProtocol(net.ParseIP("203.0.113.10"), 21),
//	    server.WithPassivePorts(30000, 30100),
//	)
//
// # Server configuration
//
// Connection limits, timeouts, and the disabled-command list for read-only
// deployments:
//
//	s, _ := server.NewServer(":21",
//	    server.WithStorage(storage),
//	    server.WithAuthenticator(auth),
//	    server.WithMaxConnections(500, 10),
//	    server.WithIdleSessionTimeout(5*time.Minute),
//	    server.WithDisableCommands(server.WriteCommands...),
//	)
//
// Metrics and transfer logging:
//
//	reg := prometheus.NewRegistry()
//	s, _ := server.NewServer(":21",
//	    server.WithStorage(storage),
//	    server.WithAuthenticator(auth),
//	    server.WithMetricsCollector(server.NewPrometheusMetricsCollector(reg)),
//	    server.WithTransferLog(xferlogFile),
//	)
//
// # RFC coverage
//
//   - RFC 959 (base FTP)
//   - RFC 2228 (AUTH/PBSZ/PROT, explicit FTPS)
//   - RFC 2389 / RFC 2428 (FEAT, EPSV/EPRT)
//   - RFC 3659 (SIZE, MDTM, REST)
//
// Active mode (PORT/EPRT) is intentionally unimplemented; see the package's
// design notes for the reasoning.
package server
