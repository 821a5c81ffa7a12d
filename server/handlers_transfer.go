package server

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// handlePASV opens a passive data listener and replies 227 directly (normal
// mode), or asks the switchboard to reserve a port and deliver the 227
// asynchronously (PROXY mode).
func handlePASV(ctx *CommandContext) (Reply, *ControlChanError) {
	if ctx.Switchboard != nil {
		return reservePassivePort(ctx, false)
	}
	return listenPassivePort(ctx, false)
}

// handleEPSV is PASV's RFC 2428 variant: same allocation, a |||port| reply.
func handleEPSV(ctx *CommandContext) (Reply, *ControlChanError) {
	if ctx.Switchboard != nil {
		return reservePassivePort(ctx, true)
	}
	return listenPassivePort(ctx, true)
}

func listenPassivePort(ctx *CommandContext, extended bool) (Reply, *ControlChanError) {
	l, port, err := bindPassiveListener(ctx.PassiveMin, ctx.PassiveMax, ctx.LocalAddr)
	if err != nil {
		return ReplyLine(CodeCantOpenData, "Can't open data connection."), nil
	}
	ctx.Session.SetPasvListener(l)
	if extended {
		return ReplyLine(CodeEnteringPassive, fmt.Sprintf("Entering Extended Passive Mode (|||%d|).", port)), nil
	}
	ip := localIP(ctx.LocalAddr)
	return ReplyLine(CodeEnteringPassive, fmt.Sprintf("Entering Passive Mode (%s,%d,%d).", pasvIPFields(ip), port/256, port%256)), nil
}

// pasvIPFields renders a dotted IPv4 address as PASV's comma-separated
// octet list.
func pasvIPFields(ip string) string {
	return strings.ReplaceAll(ip, ".", ",")
}

// reservePassivePort asks the switchboard to reserve a port and deliver the
// 227/229 reply once registered; PROXY mode replies through the session's
// internal channel rather than directly, since the reservation is also
// visible to HandleConn concurrently rendezvousing the data connection.
func reservePassivePort(ctx *CommandContext, extended bool) (Reply, *ControlChanError) {
	ctx.Switchboard.ReservePassive(ctx.Session, extended)
	return NoReply(), nil
}

func bindPassiveListener(min, max int, localAddr net.Addr) (net.Listener, int, error) {
	host := localIP(localAddr)
	span := max - min + 1
	if min <= 0 || span <= 0 {
		l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
		if err != nil {
			return nil, 0, err
		}
		return l, l.Addr().(*net.TCPAddr).Port, nil
	}
	for i := 0; i < span; i++ {
		port := min + i
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err == nil {
			return l, port, nil
		}
	}
	return nil, 0, fmt.Errorf("no free passive port in [%d,%d]", min, max)
}

func localIP(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok && tcp.IP != nil {
		return tcp.IP.String()
	}
	return "0.0.0.0"
}

// handlePORT serves both PORT and EPRT: active mode is not implemented, so
// both reply 502 rather than attempting to dial the client back.
func handlePORT(ctx *CommandContext) (Reply, *ControlChanError) {
	return ReplyLine(CodeCommandNotImplArg, "Active mode is not supported; use PASV or EPSV."), nil
}

func requirePassiveReady(ctx *CommandContext) *Reply {
	if ctx.Switchboard != nil {
		if !ctx.Session.hasProxyReservedPort() {
			r := ReplyLine(CodeBadSequence, "Send PASV or EPSV first.")
			return &r
		}
		return nil
	}
	// peeking without consuming: TakePasvListener would steal it from
	// openDataConn, so stash it right back after the presence check.
	l := ctx.Session.TakePasvListener()
	if l == nil {
		r := ReplyLine(CodeBadSequence, "Send PASV or EPSV first.")
		return &r
	}
	ctx.Session.SetPasvListener(l)
	return nil
}

func handleRETR(ctx *CommandContext) (Reply, *ControlChanError) {
	if r := requirePassiveReady(ctx); r != nil {
		return *r, nil
	}
	target := resolvePath(ctx.Session.Cwd(), ctx.Cmd.Arg)
	spawnDataPump(ctx, pumpRetrieve, target, false)
	return ReplyLine(CodeFileStatusOK, "Opening data connection."), nil
}

func handleSTOR(ctx *CommandContext) (Reply, *ControlChanError) {
	if r := requirePassiveReady(ctx); r != nil {
		return *r, nil
	}
	target := resolvePath(ctx.Session.Cwd(), ctx.Cmd.Arg)
	spawnDataPump(ctx, pumpStore, target, false)
	return ReplyLine(CodeFileStatusOK, "Opening data connection."), nil
}

func handleSTOU(ctx *CommandContext) (Reply, *ControlChanError) {
	if r := requirePassiveReady(ctx); r != nil {
		return *r, nil
	}
	name := uniqueStoreName(time.Now().UnixNano())
	target := resolvePath(ctx.Session.Cwd(), name)
	spawnDataPump(ctx, pumpStore, target, false)
	return ReplyLine(CodeFileStatusOK, fmt.Sprintf("FILE: %s", name)), nil
}

func handleAPPE(ctx *CommandContext) (Reply, *ControlChanError) {
	if r := requirePassiveReady(ctx); r != nil {
		return *r, nil
	}
	target := resolvePath(ctx.Session.Cwd(), ctx.Cmd.Arg)
	spawnDataPump(ctx, pumpStore, target, true)
	return ReplyLine(CodeFileStatusOK, "Opening data connection."), nil
}

func handleLIST(ctx *CommandContext) (Reply, *ControlChanError) {
	if r := requirePassiveReady(ctx); r != nil {
		return *r, nil
	}
	target := resolvePath(ctx.Session.Cwd(), ctx.Cmd.Arg)
	spawnDataPump(ctx, pumpList, target, false)
	return ReplyLine(CodeFileStatusOK, "Here comes the directory listing."), nil
}

func handleNLST(ctx *CommandContext) (Reply, *ControlChanError) {
	if r := requirePassiveReady(ctx); r != nil {
		return *r, nil
	}
	target := resolvePath(ctx.Session.Cwd(), ctx.Cmd.Arg)
	spawnDataPump(ctx, pumpNlst, target, false)
	return ReplyLine(CodeFileStatusOK, "Here comes the directory listing."), nil
}

func handleABOR(ctx *CommandContext) (Reply, *ControlChanError) {
	ctx.Session.Abort()
	return ReplyLine(CodeDataConnectionClosed, "Abort successful."), nil
}
