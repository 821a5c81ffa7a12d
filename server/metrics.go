package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PathRedactor is a function type for custom path redaction in logs.
// It takes a file path and returns a redacted version for privacy.
//
// Example implementations:
//
//	// Redact middle components
//	func(path string) string {
//	    parts := strings.Split(path, "/")
//	    if len(parts) > 3 {
//	        for i := 2; i < len(parts)-1; i++ {
//	            parts[i] = "*"
//	        }
//	    }
//	    return strings.Join(parts, "/")
//	}
//
//	// Redact specific patterns
//	func(path string) string {
//	    return regexp.MustCompile(`/users/[^/]+/`).ReplaceAllString(path, "/users/*/")
//	}
type PathRedactor func(path string) string

// MetricsCollector is an optional interface for collecting server metrics.
// Implementations can send metrics to monitoring systems like Prometheus,
// StatsD, DataDog, etc.
//
// All methods are called from various points in the server lifecycle and
// should be non-blocking. If a method takes significant time, it should
// dispatch the work asynchronously.
//
// The server will check if the collector is nil before calling methods,
// so implementations don't need to handle nil receivers.
type MetricsCollector interface {
	// RecordCommand records metrics for an FTP command execution.
	// cmd is the command name (e.g., "RETR", "STOR", "LIST").
	// success indicates whether the command completed successfully.
	// duration is how long the command took to execute.
	RecordCommand(cmd string, success bool, duration time.Duration)

	// RecordTransfer records metrics for a file transfer operation.
	// operation is "RETR" (download), or "STOR" or "APPE" (upload).
	// bytes is the number of bytes transferred.
	// duration is how long the transfer took.
	RecordTransfer(operation string, bytes int64, duration time.Duration)

	// RecordConnection records metrics for connection attempts.
	// accepted indicates whether the connection was accepted.
	// reason provides context (e.g., "global_limit_reached", "per_ip_limit_reached", "accepted").
	RecordConnection(accepted bool, reason string)

	// RecordAuthentication records metrics for authentication attempts.
	// success indicates whether authentication succeeded.
	// user is the username that attempted to authenticate.
	RecordAuthentication(success bool, user string)
}

// PrometheusMetricsCollector implements MetricsCollector on top of
// client_golang, registering its own collectors against reg (pass
// prometheus.DefaultRegisterer to use the global registry).
type PrometheusMetricsCollector struct {
	commands     *prometheus.CounterVec
	commandDur   *prometheus.HistogramVec
	transferByte *prometheus.CounterVec
	transferDur  *prometheus.HistogramVec
	connections  *prometheus.CounterVec
	authAttempts *prometheus.CounterVec
}

// NewPrometheusMetricsCollector registers the FTP server's metric families
// with reg and returns a ready-to-use collector.
func NewPrometheusMetricsCollector(reg prometheus.Registerer) *PrometheusMetricsCollector {
	c := &PrometheusMetricsCollector{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ftpd",
			Name:      "commands_total",
			Help:      "Total FTP commands processed, by verb and outcome.",
		}, []string{"command", "success"}),
		commandDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ftpd",
			Name:      "command_duration_seconds",
			Help:      "Command handling latency by verb.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		transferByte: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ftpd",
			Name:      "transfer_bytes_total",
			Help:      "Bytes transferred, by operation.",
		}, []string{"operation"}),
		transferDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ftpd",
			Name:      "transfer_duration_seconds",
			Help:      "Data transfer duration by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ftpd",
			Name:      "connections_total",
			Help:      "Control connection attempts, by acceptance reason.",
		}, []string{"accepted", "reason"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ftpd",
			Name:      "authentication_attempts_total",
			Help:      "Authentication attempts, by outcome.",
		}, []string{"success"}),
	}
	reg.MustRegister(c.commands, c.commandDur, c.transferByte, c.transferDur, c.connections, c.authAttempts)
	return c
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (c *PrometheusMetricsCollector) RecordCommand(cmd string, success bool, duration time.Duration) {
	c.commands.WithLabelValues(cmd, boolLabel(success)).Inc()
	c.commandDur.WithLabelValues(cmd).Observe(duration.Seconds())
}

func (c *PrometheusMetricsCollector) RecordTransfer(operation string, bytes int64, duration time.Duration) {
	c.transferByte.WithLabelValues(operation).Add(float64(bytes))
	c.transferDur.WithLabelValues(operation).Observe(duration.Seconds())
}

func (c *PrometheusMetricsCollector) RecordConnection(accepted bool, reason string) {
	c.connections.WithLabelValues(boolLabel(accepted), reason).Inc()
}

func (c *PrometheusMetricsCollector) RecordAuthentication(success bool, user string) {
	c.authAttempts.WithLabelValues(boolLabel(success)).Inc()
}
