package server

import (
	"io"
	"path"
	"strconv"
	"strings"
)

func handlePWD(ctx *CommandContext) (Reply, *ControlChanError) {
	return ReplyLine(CodePathCreated, quotePath(ctx.Session.Cwd())+" is the current directory."), nil
}

// resolvePath joins an FTP command argument against the session's current
// directory and canonicalises it, refusing to let any component escape the
// virtual root.
func resolvePath(cwd, arg string) string {
	if arg == "" {
		return cwd
	}
	var joined string
	if path.IsAbs(arg) {
		joined = arg
	} else {
		joined = path.Join(cwd, arg)
	}
	clean := path.Clean("/" + joined)
	return clean
}

func changeDir(ctx *CommandContext, arg string) (Reply, *ControlChanError) {
	target := resolvePath(ctx.Session.Cwd(), arg)
	meta, err := ctx.Storage.Metadata(target)
	if err != nil {
		return storageReply(err), nil
	}
	if !meta.IsDir {
		return ReplyLine(CodeFileNotFound, "Not a directory."), nil
	}
	ctx.Session.SetCwd(target)
	if lines := dirMessageLines(ctx, target); len(lines) > 0 {
		body := append([]string{"Directory successfully changed."}, lines...)
		return ReplyMultiLine(CodeFileActionOK, body...), nil
	}
	return ReplyLine(CodeFileActionOK, "Directory successfully changed."), nil
}

// dirMessageLines returns the lines of dir/.message, surfacing
// per-directory banners on CWD. Returns nil when the feature is off or no
// message file is present.
func dirMessageLines(ctx *CommandContext, dir string) []string {
	if !ctx.DirMessage {
		return nil
	}
	rc, err := ctx.Storage.Get(path.Join(dir, ".message"), 0)
	if err != nil {
		return nil
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil || len(data) == 0 {
		return nil
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func handleCWD(ctx *CommandContext) (Reply, *ControlChanError) {
	return changeDir(ctx, ctx.Cmd.Arg)
}

func handleCDUP(ctx *CommandContext) (Reply, *ControlChanError) {
	return changeDir(ctx, "..")
}

func handleMKD(ctx *CommandContext) (Reply, *ControlChanError) {
	target := resolvePath(ctx.Session.Cwd(), ctx.Cmd.Arg)
	if err := ctx.Storage.Mkd(target); err != nil {
		return storageReply(err), nil
	}
	return ReplyLine(CodePathCreated, quotePath(target)+" directory created."), nil
}

func handleRMD(ctx *CommandContext) (Reply, *ControlChanError) {
	target := resolvePath(ctx.Session.Cwd(), ctx.Cmd.Arg)
	if err := ctx.Storage.Rmd(target); err != nil {
		return storageReply(err), nil
	}
	return ReplyLine(CodeFileActionOK, "Directory removed."), nil
}

func handleDELE(ctx *CommandContext) (Reply, *ControlChanError) {
	target := resolvePath(ctx.Session.Cwd(), ctx.Cmd.Arg)
	if err := ctx.Storage.Delete(target); err != nil {
		return storageReply(err), nil
	}
	return ReplyLine(CodeFileActionOK, "File deleted."), nil
}

func handleRNFR(ctx *CommandContext) (Reply, *ControlChanError) {
	target := resolvePath(ctx.Session.Cwd(), ctx.Cmd.Arg)
	if _, err := ctx.Storage.Metadata(target); err != nil {
		return storageReply(err), nil
	}
	ctx.Session.SetRenameFrom(target)
	return ReplyLine(CodeNeedMoreInfo, "Ready for RNTO."), nil
}

func handleRNTO(ctx *CommandContext) (Reply, *ControlChanError) {
	from, ok := ctx.Session.RenameFrom()
	defer ctx.Session.ClearRenameFrom() // cleared unconditionally
	if !ok {
		return ReplyLine(CodeBadSequence, "Bad sequence of commands. Send RNFR first."), nil
	}
	to := resolvePath(ctx.Session.Cwd(), ctx.Cmd.Arg)
	if err := ctx.Storage.Rename(from, to); err != nil {
		return storageReply(err), nil
	}
	return ReplyLine(CodeFileActionOK, "Rename successful."), nil
}

func handleSIZE(ctx *CommandContext) (Reply, *ControlChanError) {
	target := resolvePath(ctx.Session.Cwd(), ctx.Cmd.Arg)
	meta, err := ctx.Storage.Metadata(target)
	if err != nil {
		return storageReply(err), nil
	}
	if !meta.IsFile {
		return ReplyLine(CodeFileNotFound, "File not found."), nil
	}
	return ReplyLine(213, strconv.FormatInt(meta.Size, 10)), nil
}

func handleMDTM(ctx *CommandContext) (Reply, *ControlChanError) {
	target := resolvePath(ctx.Session.Cwd(), ctx.Cmd.Arg)
	meta, err := ctx.Storage.Metadata(target)
	if err != nil {
		return storageReply(err), nil
	}
	return ReplyLine(213, meta.ModTime.UTC().Format("20060102150405")), nil
}

func handleREST(ctx *CommandContext) (Reply, *ControlChanError) {
	n, err := strconv.ParseInt(ctx.Cmd.Arg, 10, 64)
	if err != nil || n < 0 {
		return ReplyLine(CodeInvalidParam, "Invalid restart offset."), nil
	}
	ctx.Session.SetRestartOffset(n)
	return ReplyLine(CodeNeedMoreInfo, "Restarting at given offset."), nil
}
