package server

import "strings"

func handleUSER(ctx *CommandContext) (Reply, *ControlChanError) {
	ctx.Session.BeginAuth(ctx.Cmd.Arg)
	return ReplyLine(CodeNeedPassword, "Password required."), nil
}

func handlePASS(ctx *CommandContext) (Reply, *ControlChanError) {
	if ctx.Session.State() != StateWaitPass {
		return ReplyLine(CodeNotLoggedIn, "Not logged in."), nil
	}
	user := ctx.Session.PendingUser()
	_, err := ctx.Authenticator.Authenticate(user, ctx.Cmd.Arg)
	if err != nil {
		ctx.Session.FailAuth()
		if ctx.Logger != nil {
			ctx.Logger.Warn("authentication_failed", "session_id", ctx.Session.ID, "user", user)
		}
		if ctx.metrics != nil {
			ctx.metrics.RecordAuthentication(false, user)
		}
		return ReplyLine(CodeNotLoggedIn, "Not logged in."), nil
	}
	ctx.Session.CompleteAuth()
	if ctx.Logger != nil {
		ctx.Logger.Info("authentication_success", "session_id", ctx.Session.ID, "user", user)
	}
	if ctx.metrics != nil {
		ctx.metrics.RecordAuthentication(true, user)
	}
	return ReplyLine(CodeUserLoggedIn, "User logged in, proceed."), nil
}

func handleQUIT(ctx *CommandContext) (Reply, *ControlChanError) {
	ctx.Session.Internal() <- MsgQuit
	return Reply{}, nil // the loop emits 221 when it observes MsgQuit
}

func handleSYST(ctx *CommandContext) (Reply, *ControlChanError) {
	name := ctx.ServerName
	if name == "" {
		name = "UNIX Type: L8"
	}
	return ReplyLine(CodeSystemType, name), nil
}

func handleTYPE(ctx *CommandContext) (Reply, *ControlChanError) {
	// Binary only; any argument is accepted and ignored.
	return ReplyLine(CodeCommandOK, "Always in binary mode."), nil
}

func handleSTRU(ctx *CommandContext) (Reply, *ControlChanError) {
	if strings.EqualFold(ctx.Cmd.Arg, "F") {
		return ReplyLine(CodeCommandOK, "Structure set to F."), nil
	}
	return ReplyLine(CodeNotImplParam, "Unsupported structure type."), nil
}

func handleMODE(ctx *CommandContext) (Reply, *ControlChanError) {
	if strings.EqualFold(ctx.Cmd.Arg, "S") {
		return ReplyLine(CodeCommandOK, "Mode set to S."), nil
	}
	return ReplyLine(CodeNotImplParam, "Unsupported transfer mode."), nil
}

func handleNOOP(ctx *CommandContext) (Reply, *ControlChanError) {
	return ReplyLine(CodeCommandOK, "NOOP ok."), nil
}

func handleACCT(ctx *CommandContext) (Reply, *ControlChanError) {
	return ReplyLine(202, "Command not implemented, superfluous at this site."), nil
}

func handleALLO(ctx *CommandContext) (Reply, *ControlChanError) {
	return ReplyLine(CodeCommandOK, "ALLO ok."), nil
}

func handleHELP(ctx *CommandContext) (Reply, *ControlChanError) {
	return ReplyLine(CodeHelp, "Help OK."), nil
}

func handleFEAT(ctx *CommandContext) (Reply, *ControlChanError) {
	lines := []string{
		"Extensions supported:",
		" UTF8",
		" SIZE",
		" MDTM",
		" REST STREAM",
	}
	if ctx.TLSConfigured {
		lines = append(lines, " AUTH TLS", " PBSZ", " PROT")
	}
	lines = append(lines, "End")
	return ReplyMultiLine(CodeFeatures, lines...), nil
}
