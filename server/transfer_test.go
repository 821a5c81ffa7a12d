package server

import (
	"bytes"
	"io"
	"testing"

	"github.com/mbrt/ftpd/internal/ratelimit"
)

func TestRateLimitedReaderNoLimits(t *testing.T) {
	data := []byte("hello, world")
	r := rateLimitedReader(bytes.NewReader(data), 0, nil)
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("ReadAll() = %q, want %q", got, data)
	}
}

func TestRateLimitedWriterNoLimits(t *testing.T) {
	data := []byte("hello, world")
	var buf bytes.Buffer
	w := rateLimitedWriter(&buf, 0, nil)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Fatalf("buf = %q, want %q", buf.Bytes(), data)
	}
}

// TestRateLimitedReaderAndWriterShareGlobalLimiter exercises the pattern
// server.go wires: one *ratelimit.Limiter instance passed into every
// concurrent transfer's rateLimitedReader/Writer, rather than a fresh one
// built per call. Both transfers must still see their own bytes correctly
// while drawing on the one shared bucket.
func TestRateLimitedReaderAndWriterShareGlobalLimiter(t *testing.T) {
	global := ratelimit.New(1 << 20) // large enough not to stall this test
	dataA := []byte("session A payload")
	dataB := []byte("session B payload")

	rA := rateLimitedReader(bytes.NewReader(dataA), 0, global)
	rB := rateLimitedReader(bytes.NewReader(dataB), 0, global)

	gotA, err := io.ReadAll(rA)
	if err != nil {
		t.Fatalf("ReadAll(A) error = %v", err)
	}
	gotB, err := io.ReadAll(rB)
	if err != nil {
		t.Fatalf("ReadAll(B) error = %v", err)
	}
	if !bytes.Equal(gotA, dataA) || !bytes.Equal(gotB, dataB) {
		t.Fatal("transfers sharing one global limiter must still read their own bytes correctly")
	}

	var bufA, bufB bytes.Buffer
	wA := rateLimitedWriter(&bufA, 0, global)
	wB := rateLimitedWriter(&bufB, 0, global)
	if _, err := wA.Write(dataA); err != nil {
		t.Fatalf("Write(A) error = %v", err)
	}
	if _, err := wB.Write(dataB); err != nil {
		t.Fatalf("Write(B) error = %v", err)
	}
	if !bytes.Equal(bufA.Bytes(), dataA) || !bytes.Equal(bufB.Bytes(), dataB) {
		t.Fatal("writers sharing one global limiter must still write their own bytes correctly")
	}
}
