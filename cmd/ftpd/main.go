// Command ftpd runs the FTP server as a standalone process, configured by
// flags, environment variables (FTPD_ prefix), and an optional config file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mbrt/ftpd/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "ftpd",
		Short: "Run an FTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", ":21", "address to listen on")
	flags.String("root", "", "root directory served over FTP (required)")
	flags.Bool("read-only", false, "reject write commands (STOR, DELE, MKD, ...)")
	flags.Bool("allow-anonymous", false, "allow anonymous/ftp login with no password")
	flags.StringToString("user", nil, "username=password pair; repeatable")
	flags.String("tls-pkcs12", "", "path to a PKCS#12 bundle for FTPS")
	flags.String("tls-pkcs12-password", "", "password for --tls-pkcs12")
	flags.Int("pasv-min-port", 0, "lowest passive-mode data port")
	flags.Int("pasv-max-port", 0, "highest passive-mode data port")
	flags.String("proxy-external-ip", "", "enable PROXY protocol mode, advertising this external IP")
	flags.Int("proxy-external-control-port", 21, "external control port advertised in PROXY mode")
	flags.Int("max-connections", 0, "maximum simultaneous control connections (0 = unlimited)")
	flags.Int("max-connections-per-ip", 0, "maximum simultaneous connections per client IP (0 = unlimited)")
	flags.Duration("idle-timeout", 10*time.Minute, "control connection idle timeout")
	flags.Bool("dir-message", false, "show .message file contents after CWD")
	flags.Int64("bandwidth-limit", 0, "global transfer rate limit in bytes/sec (0 = unlimited)")
	flags.Int64("bandwidth-limit-per-user", 0, "per-user transfer rate limit in bytes/sec (0 = unlimited)")
	flags.String("xferlog", "", "path to an xferlog-format transfer log (disabled if empty)")
	flags.Bool("metrics", false, "serve Prometheus metrics")
	flags.String("metrics-addr", ":9121", "address for the Prometheus metrics endpoint")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("config", "", "path to a YAML config file")

	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
	v.SetEnvPrefix("ftpd")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cobra.OnInitialize(func() {
		if cfg := v.GetString("config"); cfg != "" {
			v.SetConfigFile(cfg)
			if err := v.ReadInConfig(); err != nil {
				fmt.Fprintf(os.Stderr, "ftpd: reading config file: %v\n", err)
				os.Exit(1)
			}
		}
	})

	return cmd
}

func run(v *viper.Viper) error {
	logger := newLogger(v.GetString("log-level"))
	slog.SetDefault(logger)

	root := v.GetString("root")
	if root == "" {
		return fmt.Errorf("--root is required")
	}

	storage, err := server.NewFSDriver(root, v.GetBool("read-only"))
	if err != nil {
		return fmt.Errorf("creating storage driver: %w", err)
	}

	users := map[string]string{}
	for k, val := range v.GetStringMapString("user") {
		users[k] = val
	}
	auth := server.NewMemoryAuthenticator(users, v.GetBool("allow-anonymous"))

	opts := []server.Option{
		server.WithStorage(storage),
		server.WithAuthenticator(auth),
		server.WithLogger(logger),
		server.WithIdleSessionTimeout(v.GetDuration("idle-timeout")),
		server.WithPassivePorts(v.GetInt("pasv-min-port"), v.GetInt("pasv-max-port")),
		server.WithMaxConnections(v.GetInt("max-connections"), v.GetInt("max-connections-per-ip")),
		server.WithEnableDirMessage(v.GetBool("dir-message")),
		server.WithBandwidthLimit(v.GetInt64("bandwidth-limit"), v.GetInt64("bandwidth-limit-per-user")),
	}

	if v.GetBool("read-only") {
		opts = append(opts, server.WithDisableCommands(server.WriteCommands...))
	}

	if bundle := v.GetString("tls-pkcs12"); bundle != "" {
		tlsConfig, err := server.LoadPKCS12TLSConfig(bundle, v.GetString("tls-pkcs12-password"))
		if err != nil {
			return fmt.Errorf("loading TLS bundle: %w", err)
		}
		opts = append(opts, server.WithTLS(tlsConfig))
	}

	if ip := v.GetString("proxy-external-ip"); ip != "" {
		parsed := net.ParseIP(ip)
		if parsed == nil {
			return fmt.Errorf("invalid --proxy-external-ip %q", ip)
		}
		opts = append(opts, server.WithProxyProtocol(parsed, v.GetInt("proxy-external-control-port")))
	}

	if path := v.GetString("xferlog"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("opening xferlog: %w", err)
		}
		defer f.Close()
		opts = append(opts, server.WithTransferLog(f))
	}

	if v.GetBool("metrics") {
		reg := prometheus.NewRegistry()
		opts = append(opts, server.WithMetricsCollector(server.NewPrometheusMetricsCollector(reg)))
		go serveMetrics(v.GetString("metrics-addr"), reg, logger)
	}

	s, err := server.NewServer(v.GetString("addr"), opts...)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ftpd starting", "addr", v.GetString("addr"))
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != server.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("ftpd shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("metrics endpoint listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server failed", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
