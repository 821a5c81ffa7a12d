package server

import "time"

// runLoop is the control channel's event loop: on each iteration it reads
// at most one command while also watching for an InternalMsg raised by a
// data task, the switchboard, or the previous command's own handler, and
// an idle timer. It is the sole writer of the reply sink.
//
// Transport swaps (AUTH/CCC) are only ever enqueued by the handler of the
// command this same loop just finished processing, so draining internal
// before starting the next read (below) is enough to guarantee no stale
// reader goroutine is left holding the old transport's conn when the
// handshake begins.
func runLoop(t *transport, c *codec, ctx *CommandContext, idleTimeout time.Duration, greeting string) {
	sess := ctx.Session
	defer func() {
		sess.Abort()
		sess.WaitTransfers()
		if ctx.Switchboard != nil {
			ctx.Switchboard.Revoke(sess)
		}
		t.conn.Close()
	}()

	c.writeReply(ReplyLine(CodeServiceReady, greeting))

	// cmdCh/pending track a single in-flight decodeOnce call: a data pump's
	// completion message can arrive while a read for the client's next
	// command is still outstanding, and that read must not be abandoned or
	// duplicated (only one goroutine may ever call c.decode() at a time).
	cmdCh := make(chan Event, 1)
	pending := false

	for {
		select {
		case msg := <-sess.internal:
			if !handleInternal(&t, c, ctx, msg) {
				return
			}
			continue
		default:
		}

		if !pending {
			go decodeOnce(c, cmdCh)
			pending = true
		}

		timer := time.NewTimer(idleTimeout)
		select {
		case ev := <-cmdCh:
			timer.Stop()
			pending = false
			if !handleEvent(c, ctx, ev) {
				return
			}

		case msg := <-sess.internal:
			timer.Stop()
			if !handleInternal(&t, c, ctx, msg) {
				return
			}

		case <-timer.C:
			cce := newControlChanError(ErrControlChannelTimeout, nil)
			c.writeReply(controlChanReply(cce))
			return
		}
	}
}

// decodeOnce reads and decodes exactly one command (or one parse error) and
// delivers it to out.
func decodeOnce(c *codec, out chan<- Event) {
	cmd, err := c.decode()
	if err != nil {
		out <- Event{ParseErr: err}
		return
	}
	out <- Event{Command: &cmd}
}

// handleEvent processes one decoded command or parse error. It returns
// false when the control connection should close.
func handleEvent(c *codec, ctx *CommandContext, ev Event) bool {
	if ev.ParseErr != nil {
		cce := controlChanErrorFromParseErr(ev.ParseErr)
		c.writeReply(controlChanReply(cce))
		return !cce.Kind.closesConnection()
	}

	ctx.Cmd = *ev.Command
	reply, cce := logging(ctx)
	if cce != nil {
		c.writeReply(controlChanReply(cce))
		return !cce.Kind.closesConnection()
	}
	if !reply.suppressed() {
		c.writeReply(reply)
	}
	return true
}

// handleInternal processes one InternalMsg: producing the final reply for a
// data transfer, performing a TLS upgrade/downgrade (rebinding *t and the
// codec in place), or closing the connection on MsgQuit. Returns false when
// the loop should stop.
func handleInternal(tRef **transport, c *codec, ctx *CommandContext, msg InternalMsg) bool {
	switch m := msg.(type) {
	case msgQuit:
		c.writeReply(ReplyLine(CodeClosingControl, "Goodbye."))
		return false

	case msgSecureControlChannel:
		nt, err := (*tRef).upgrade(ctx.tlsConfig)
		if err != nil {
			if ctx.Logger != nil {
				ctx.Logger.Warn("tls_upgrade_failed", "session_id", ctx.Session.ID, "err", err)
			}
			return false
		}
		*tRef = nt
		nt.rebindCodec(c)
		ctx.Session.SetCmdTLS(true)
		return true

	case msgPlaintextControlChannel:
		nt := (*tRef).downgrade()
		*tRef = nt
		nt.rebindCodec(c)
		ctx.Session.SetCmdTLS(false)
		return true

	case MsgCommandChannelReply:
		c.writeReply(ReplyLine(m.Code, m.Message))
		return true

	case MsgWrittenData:
		c.writeReply(ReplyLine(CodeDataConnectionClosed, "Transfer complete."))
		return true

	case MsgDirectorySuccessfullyListed:
		c.writeReply(ReplyLine(CodeDataConnectionClosed, "Directory send OK."))
		return true

	case MsgWriteFailed:
		c.writeReply(storageReply(m.Err))
		return true

	case MsgConnectionReset:
		c.writeReply(ReplyLine(CodeConnectionClosed, "Connection closed; transfer aborted."))
		return true

	case MsgUnknownRetrieveError:
		c.writeReply(ReplyLine(CodeCantOpenData, "Can't open data connection."))
		return true

	case MsgStorageError:
		c.writeReply(storageReply(&StorageError{Kind: m.Kind}))
		return true

	case MsgAuthSuccess, MsgAuthFailed, MsgSendingData:
		return true

	default:
		cce := newControlChanError(ErrInternalMsgUnmapped, nil)
		c.writeReply(controlChanReply(cce))
		return !cce.Kind.closesConnection()
	}
}
