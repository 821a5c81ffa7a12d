package server

import (
	"net"
	"strings"
	"testing"
)

func newTransferTestContext() *CommandContext {
	ctx := newTestContext()
	ctx.LocalAddr = &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 21}
	ctx.PassiveMin = 40000
	ctx.PassiveMax = 40100
	return ctx
}

func TestHandlePASVNormalMode(t *testing.T) {
	ctx := newTransferTestContext()

	reply, cce := handlePASV(ctx)
	if cce != nil {
		t.Fatalf("handlePASV() error = %v", cce)
	}
	if reply.Code != CodeEnteringPassive {
		t.Fatalf("handlePASV() code = %v, want %v", reply.Code, CodeEnteringPassive)
	}
	if !strings.Contains(reply.Lines[0], "Entering Passive Mode (127,0,0,1,") {
		t.Fatalf("handlePASV() message = %q, want PASV-formatted IP", reply.Lines[0])
	}
	if l := ctx.Session.TakePasvListener(); l == nil {
		t.Fatal("handlePASV() left no listener on the session")
	} else {
		l.Close()
	}
}

func TestHandleEPSVNormalMode(t *testing.T) {
	ctx := newTransferTestContext()

	reply, cce := handleEPSV(ctx)
	if cce != nil {
		t.Fatalf("handleEPSV() error = %v", cce)
	}
	if !strings.Contains(reply.Lines[0], "Entering Extended Passive Mode (|||") {
		t.Fatalf("handleEPSV() message = %q, want EPSV-formatted port", reply.Lines[0])
	}
	if l := ctx.Session.TakePasvListener(); l != nil {
		l.Close()
	}
}

func TestHandlePASVProxyMode(t *testing.T) {
	ctx := newTransferTestContext()
	ctx.Switchboard = NewSwitchboard(net.ParseIP("203.0.113.10"), 21, 40000, 40001)

	reply, cce := handlePASV(ctx)
	if cce != nil {
		t.Fatalf("handlePASV() error = %v", cce)
	}
	if reply.Code != CodeNone {
		t.Fatalf("handlePASV() in PROXY mode returned %v directly, want a suppressed reply", reply.Code)
	}
	if !ctx.Session.hasProxyReservedPort() {
		t.Fatal("handlePASV() did not record a proxy-reserved port on the session")
	}

	select {
	case msg := <-ctx.Session.internal:
		m, ok := msg.(MsgCommandChannelReply)
		if !ok {
			t.Fatalf("handlePASV() queued %T, want MsgCommandChannelReply", msg)
		}
		if m.Code != CodeEnteringPassive {
			t.Fatalf("handlePASV() queued code = %v, want %v", m.Code, CodeEnteringPassive)
		}
		if !strings.Contains(m.Message, "Entering Passive Mode (203,0,113,10,") {
			t.Fatalf("handlePASV() queued message = %q, want switchboard external IP", m.Message)
		}
	default:
		t.Fatal("handlePASV() did not queue MsgCommandChannelReply")
	}
}

func TestHandlePASVProxyModeExhausted(t *testing.T) {
	ctx := newTransferTestContext()
	ctx.Switchboard = NewSwitchboard(net.ParseIP("203.0.113.10"), 21, 40000, 40000)
	ctx.Switchboard.Reserve(newSession(&net.TCPAddr{}))

	reply, cce := handlePASV(ctx)
	if cce != nil {
		t.Fatalf("handlePASV() error = %v", cce)
	}
	if reply.Code != CodeNone {
		t.Fatalf("handlePASV() in PROXY mode returned %v directly, want a suppressed reply", reply.Code)
	}

	select {
	case msg := <-ctx.Session.internal:
		m, ok := msg.(MsgCommandChannelReply)
		if !ok {
			t.Fatalf("handlePASV() queued %T, want MsgCommandChannelReply", msg)
		}
		if m.Code != CodeCantOpenData {
			t.Fatalf("handlePASV() queued code = %v, want %v", m.Code, CodeCantOpenData)
		}
	default:
		t.Fatal("handlePASV() did not queue MsgCommandChannelReply")
	}
}

func TestHandlePORTNotImplemented(t *testing.T) {
	ctx := newTransferTestContext()

	reply, cce := handlePORT(ctx)
	if cce != nil {
		t.Fatalf("handlePORT() error = %v", cce)
	}
	if reply.Code != CodeCommandNotImplArg {
		t.Fatalf("handlePORT() code = %v, want %v", reply.Code, CodeCommandNotImplArg)
	}
}

func TestRequirePassiveReadyNormalModeRequiresPasv(t *testing.T) {
	ctx := newTransferTestContext()

	if r := requirePassiveReady(ctx); r == nil || r.Code != CodeBadSequence {
		t.Fatalf("requirePassiveReady() without PASV = %v, want CodeBadSequence", r)
	}

	handlePASV(ctx)
	if r := requirePassiveReady(ctx); r != nil {
		t.Fatalf("requirePassiveReady() after PASV = %v, want nil", r)
	}
	// peeking must not consume the listener.
	if r := requirePassiveReady(ctx); r != nil {
		t.Fatalf("requirePassiveReady() second call = %v, want nil", r)
	}
	if l := ctx.Session.TakePasvListener(); l != nil {
		l.Close()
	}
}

func TestRequirePassiveReadyProxyModeRequiresReservation(t *testing.T) {
	ctx := newTransferTestContext()
	ctx.Switchboard = NewSwitchboard(net.ParseIP("203.0.113.10"), 21, 40000, 40001)

	if r := requirePassiveReady(ctx); r == nil || r.Code != CodeBadSequence {
		t.Fatalf("requirePassiveReady() without reservation = %v, want CodeBadSequence", r)
	}

	handlePASV(ctx)
	if r := requirePassiveReady(ctx); r != nil {
		t.Fatalf("requirePassiveReady() after reservation = %v, want nil", r)
	}
}

func TestHandleABORNoTransfer(t *testing.T) {
	ctx := newTransferTestContext()

	reply, cce := handleABOR(ctx)
	if cce != nil {
		t.Fatalf("handleABOR() error = %v", cce)
	}
	if reply.Code != CodeDataConnectionClosed {
		t.Fatalf("handleABOR() code = %v, want %v", reply.Code, CodeDataConnectionClosed)
	}
}
