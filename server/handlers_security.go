package server

import "strings"

func handleAUTH(ctx *CommandContext) (Reply, *ControlChanError) {
	if !ctx.TLSConfigured {
		return ReplyLine(CodeNotImplParam, "TLS not configured."), nil
	}
	if ctx.Session.CmdTLS() {
		return ReplyLine(CodeAlreadySecure, "Already secure."), nil
	}
	arg := strings.ToUpper(ctx.Cmd.Arg)
	if arg != "TLS" && arg != "SSL" {
		return ReplyLine(CodeNotImplParam, "Unsupported security mechanism."), nil
	}
	// The reply must be written before the TLS handshake begins: the handler
	// queues MsgSecureControlChannel here, and the loop only acts on it after
	// flushing this 234.
	ctx.Session.Internal() <- MsgSecureControlChannel
	return ReplyLine(CodeAuthOK, "Switching to TLS."), nil
}

func handlePBSZ(ctx *CommandContext) (Reply, *ControlChanError) {
	if !ctx.TLSConfigured {
		return ReplyLine(CodeNotImplParam, "TLS not configured."), nil
	}
	if ctx.Cmd.Arg != "0" {
		return ReplyLine(CodeNotImplParam, "Only PBSZ 0 is supported."), nil
	}
	return ReplyLine(CodeCommandOK, "PBSZ=0"), nil
}

func handlePROT(ctx *CommandContext) (Reply, *ControlChanError) {
	if !ctx.TLSConfigured {
		return ReplyLine(CodeNotImplParam, "TLS not configured."), nil
	}
	switch strings.ToUpper(ctx.Cmd.Arg) {
	case "P":
		ctx.Session.SetDataProtected(true)
		return ReplyLine(CodeCommandOK, "Protection set to Private."), nil
	case "C":
		ctx.Session.SetDataProtected(false)
		return ReplyLine(CodeCommandOK, "Protection set to Clear."), nil
	default:
		return ReplyLine(CodeNotImplParam, "Unsupported protection level."), nil
	}
}

func handleCCC(ctx *CommandContext) (Reply, *ControlChanError) {
	if !ctx.TLSConfigured || !ctx.Session.CmdTLS() {
		return ReplyLine(CodeNotImplParam, "Not in TLS mode."), nil
	}
	ctx.Session.Internal() <- MsgPlaintextControlChannel
	return ReplyLine(CodeCommandOK, "Reverting to plaintext."), nil
}
