package server

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetricsCollectorRecordCommand(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusMetricsCollector(reg)

	c.RecordCommand("RETR", true, 10*time.Millisecond)
	c.RecordCommand("RETR", false, 5*time.Millisecond)

	got := testutil.ToFloat64(c.commands.WithLabelValues("RETR", "true"))
	if got != 1 {
		t.Errorf("commands_total{RETR,true} = %v, want 1", got)
	}
	got = testutil.ToFloat64(c.commands.WithLabelValues("RETR", "false"))
	if got != 1 {
		t.Errorf("commands_total{RETR,false} = %v, want 1", got)
	}
}

func TestPrometheusMetricsCollectorRecordTransfer(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusMetricsCollector(reg)

	c.RecordTransfer("STOR", 1024, 100*time.Millisecond)
	c.RecordTransfer("STOR", 2048, 50*time.Millisecond)

	got := testutil.ToFloat64(c.transferByte.WithLabelValues("STOR"))
	if got != 3072 {
		t.Errorf("transfer_bytes_total{STOR} = %v, want 3072", got)
	}
}

func TestPrometheusMetricsCollectorRecordConnection(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusMetricsCollector(reg)

	c.RecordConnection(true, "accepted")
	c.RecordConnection(false, "per_ip_limit_reached")

	if got := testutil.ToFloat64(c.connections.WithLabelValues("true", "accepted")); got != 1 {
		t.Errorf("connections_total{true,accepted} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.connections.WithLabelValues("false", "per_ip_limit_reached")); got != 1 {
		t.Errorf("connections_total{false,per_ip_limit_reached} = %v, want 1", got)
	}
}

func TestPrometheusMetricsCollectorRecordAuthentication(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusMetricsCollector(reg)

	c.RecordAuthentication(true, "alice")
	c.RecordAuthentication(false, "mallory")

	if got := testutil.ToFloat64(c.authAttempts.WithLabelValues("true")); got != 1 {
		t.Errorf("authentication_attempts_total{true} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.authAttempts.WithLabelValues("false")); got != 1 {
		t.Errorf("authentication_attempts_total{false} = %v, want 1", got)
	}
}
