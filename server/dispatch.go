package server

import (
	"context"
	"log/slog"
	"time"
)

// handlerFunc is the contract every command handler implements: it may
// mutate the session under the session lock, send an InternalMsg, or spawn
// a data-pump task, but it never writes to the reply sink itself.
type handlerFunc func(*CommandContext) (Reply, *ControlChanError)

// dispatchTable maps every known Verb to its handler: one flat table, no
// per-command heap allocation at dispatch time.
var dispatchTable = map[Verb]handlerFunc{
	VerbUSER: handleUSER,
	VerbPASS: handlePASS,
	VerbQUIT: handleQUIT,
	VerbSYST: handleSYST,
	VerbTYPE: handleTYPE,
	VerbSTRU: handleSTRU,
	VerbMODE: handleMODE,
	VerbNOOP: handleNOOP,
	VerbACCT: handleACCT,
	VerbALLO: handleALLO,
	VerbHELP: handleHELP,
	VerbFEAT: handleFEAT,

	VerbPWD:  handlePWD,
	VerbCWD:  handleCWD,
	VerbCDUP: handleCDUP,
	VerbMKD:  handleMKD,
	VerbRMD:  handleRMD,
	VerbDELE: handleDELE,
	VerbRNFR: handleRNFR,
	VerbRNTO: handleRNTO,
	VerbSIZE: handleSIZE,
	VerbMDTM: handleMDTM,
	VerbREST: handleREST,

	VerbPASV: handlePASV,
	VerbEPSV: handleEPSV,
	VerbPORT: handlePORT,
	VerbEPRT: handlePORT,
	VerbRETR: handleRETR,
	VerbSTOR: handleSTOR,
	VerbSTOU: handleSTOU,
	VerbAPPE: handleAPPE,
	VerbLIST: handleLIST,
	VerbNLST: handleNLST,
	VerbABOR: handleABOR,

	VerbAUTH: handleAUTH,
	VerbPBSZ: handlePBSZ,
	VerbPROT: handlePROT,
	VerbCCC:  handleCCC,
}

// dispatch is the innermost stage of the chain: logging(authGate(dispatch(cmd))).
func dispatch(ctx *CommandContext) (Reply, *ControlChanError) {
	if ctx.DisabledCommands[ctx.Cmd.Verb] {
		return ReplyLine(CodeCommandNotImplArg, "Command not implemented."), nil
	}
	h, ok := dispatchTable[ctx.Cmd.Verb]
	if !ok {
		return Reply{}, newControlChanError(ErrParseUnknownCommand, nil)
	}
	return h(ctx)
}

// authGate passes exempt commands through unconditionally; everything else
// requires the session to be in StateWaitCmd.
func authGate(ctx *CommandContext) (Reply, *ControlChanError) {
	if ctx.Cmd.authExempt() || ctx.Session.State() == StateWaitCmd {
		return dispatch(ctx)
	}
	return ReplyLine(CodeNotLoggedIn, "Please authenticate."), nil
}

// logging is the outermost stage: a structured log line when a command is
// received (PASS's argument redacted) and another once it has been handled.
func logging(ctx *CommandContext) (Reply, *ControlChanError) {
	arg := ctx.Cmd.Arg
	if ctx.Cmd.Verb == VerbPASS {
		arg = "***"
	}
	if ctx.Logger != nil {
		ctx.Logger.Debug("command received",
			"session_id", ctx.Session.ID,
			"cmd", string(ctx.Cmd.Verb),
			"arg", arg,
		)
	}
	start := time.Now()
	reply, err := authGate(ctx)
	elapsed := time.Since(start)
	if ctx.Logger != nil {
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelWarn
		}
		ctx.Logger.Log(context.Background(), level, "command handled",
			"session_id", ctx.Session.ID,
			"cmd", string(ctx.Cmd.Verb),
			"reply_code", int(reply.Code),
		)
	}
	if ctx.metrics != nil {
		ctx.metrics.RecordCommand(string(ctx.Cmd.Verb), err == nil, elapsed)
	}
	return reply, err
}
