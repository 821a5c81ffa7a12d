package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/mbrt/ftpd/internal/ratelimit"
)

// dataPumpKind distinguishes the completion-message shape a data task
// raises, one per verb's InternalMsg variant.
type dataPumpKind int

const (
	pumpRetrieve dataPumpKind = iota
	pumpStore
	pumpList
	pumpNlst
)

// wrapDataConn applies TLS to the data connection when the session
// negotiated PROT P.
func wrapDataConn(conn net.Conn, sess *Session, tlsConfig *tls.Config) net.Conn {
	if sess.DataProtected() && tlsConfig != nil {
		return tls.Server(conn, tlsConfig)
	}
	return conn
}

// rateLimitedReader/Writer wrap r/w with a fresh per-user limiter chained to
// the server's single shared global limiter, so concurrent transfers each
// get their own per-user budget but draw down one common global budget.
func rateLimitedReader(r io.Reader, perUser int64, global *ratelimit.Limiter) io.Reader {
	r = ratelimit.NewReader(r, ratelimit.New(perUser))
	return ratelimit.NewReader(r, global)
}

func rateLimitedWriter(w io.Writer, perUser int64, global *ratelimit.Limiter) io.Writer {
	w = ratelimit.NewWriter(w, ratelimit.New(perUser))
	return ratelimit.NewWriter(w, global)
}

// spawnDataPump starts the byte-streaming task for a RETR/STOR/APPE/STOU/
// LIST/NLST command. The event loop only starts/stops it and consumes its
// completion event.
func spawnDataPump(ctx *CommandContext, kind dataPumpKind, path string, appendMode bool) {
	sess := ctx.Session
	dctx, cancel := context.WithCancel(context.Background())
	if !sess.BeginTransfer(cancel) {
		// at most one active transfer per session: a data command issued
		// while one is in flight starts no pump.
		cancel()
		return
	}

	go func() {
		defer sess.EndTransfer()
		defer cancel()

		conn, err := sess.openDataConn(ctx)
		if err != nil {
			sess.Internal() <- MsgUnknownRetrieveError{Err: err}
			return
		}
		conn = wrapDataConn(conn, sess, ctx.tlsConfig)
		defer conn.Close()

		watchAbort(dctx, conn)

		switch kind {
		case pumpRetrieve:
			pumpRetr(ctx, sess, conn, path)
		case pumpStore:
			pumpStor(ctx, sess, conn, path, appendMode)
		case pumpList:
			pumpList_(ctx, sess, conn, path, false)
		case pumpNlst:
			pumpList_(ctx, sess, conn, path, true)
		}
	}()
}

// watchAbort closes conn as soon as dctx is cancelled (by ABOR or session
// teardown), giving the pump's blocking I/O a wake-up point; the pump
// observes it at its next socket-wait boundary.
func watchAbort(dctx context.Context, conn net.Conn) {
	go func() {
		<-dctx.Done()
		conn.Close()
	}()
}

func pumpRetr(ctx *CommandContext, sess *Session, conn net.Conn, path string) {
	off := sess.TakeRestartOffset()
	rc, err := ctx.Storage.Get(path, off)
	if err != nil {
		sess.Internal() <- MsgStorageError{Kind: storageErrorFromErr(err).Kind}
		return
	}
	defer rc.Close()

	w := rateLimitedWriter(conn, ctx.bandwidthLimitPerUser, ctx.globalLimiter)
	start := time.Now()
	n, err := io.Copy(w, rc)
	logXfer(ctx, sess, "o", path, n, time.Since(start))
	if ctx.metrics != nil {
		ctx.metrics.RecordTransfer("RETR", n, time.Since(start))
	}
	if err != nil {
		sess.Internal() <- MsgConnectionReset{}
		return
	}
	sess.Internal() <- MsgWrittenData{Bytes: n}
}

func pumpStor(ctx *CommandContext, sess *Session, conn net.Conn, path string, appendMode bool) {
	r := rateLimitedReader(conn, ctx.bandwidthLimitPerUser, ctx.globalLimiter)
	start := time.Now()
	n, err := ctx.Storage.Put(path, r, appendMode)
	logXfer(ctx, sess, "i", path, n, time.Since(start))
	if ctx.metrics != nil {
		verb := "STOR"
		if appendMode {
			verb = "APPE"
		}
		ctx.metrics.RecordTransfer(verb, n, time.Since(start))
	}
	if err != nil {
		sess.Internal() <- MsgWriteFailed{Err: err}
		return
	}
	sess.Internal() <- MsgWrittenData{Bytes: n}
}

func pumpList_(ctx *CommandContext, sess *Session, conn net.Conn, path string, namesOnly bool) {
	w := rateLimitedWriter(conn, ctx.bandwidthLimitPerUser, ctx.globalLimiter)
	if namesOnly {
		names, err := ctx.Storage.NLST(path)
		if err != nil {
			sess.Internal() <- MsgStorageError{Kind: storageErrorFromErr(err).Kind}
			return
		}
		for _, n := range names {
			fmt.Fprintf(w, "%s\r\n", n)
		}
		sess.Internal() <- MsgDirectorySuccessfullyListed{}
		return
	}
	entries, err := ctx.Storage.List(path)
	if err != nil {
		sess.Internal() <- MsgStorageError{Kind: storageErrorFromErr(err).Kind}
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s\r\n", formatListEntry(e))
	}
	sess.Internal() <- MsgDirectorySuccessfullyListed{}
}

// formatListEntry renders a unix-style `ls -l` line.
func formatListEntry(e DirEntry) string {
	kind := byte('-')
	if e.IsDir {
		kind = 'd'
	}
	perm := e.Permissions
	if perm == "" {
		perm = "rwxr-xr-x"
	}
	return fmt.Sprintf("%c%s %3d %-8s %-8s %8d %s %s",
		kind, perm, 1, "ftp", "ftp", e.Size,
		e.ModTime.Format("Jan 02 15:04"), e.Name)
}

// logXfer writes one xferlog-format line.
func logXfer(ctx *CommandContext, sess *Session, direction, path string, bytes int64, dur time.Duration) {
	if ctx.transferLog == nil {
		return
	}
	fmt.Fprintf(ctx.transferLog, "%s %d %s %d %s b _ %s r %s ftp 0 * c\n",
		time.Now().UTC().Format(time.ANSIC), int(dur.Seconds()), remoteHost(sess),
		bytes, path, direction, sess.User())
}

func remoteHost(sess *Session) string {
	if sess.remoteAddr == nil {
		return "0.0.0.0"
	}
	host, _, err := net.SplitHostPort(sess.remoteAddr.String())
	if err != nil {
		return sess.remoteAddr.String()
	}
	return host
}
