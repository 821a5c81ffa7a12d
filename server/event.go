package server

// Event is whatever the control-channel loop pulls off its select: either
// a freshly decoded Command from the wire, or an InternalMsg raised by a
// data-channel task, the switchboard, or a handler acting on itself.
type Event struct {
	Command     *Command
	ParseErr    error
	InternalMsg InternalMsg
}

// InternalMsg is the tagged union of messages a data task, the switchboard,
// or a handler may deliver to the owning session's event loop.
type InternalMsg interface {
	isInternalMsg()
}

type msgQuit struct{}

func (msgQuit) isInternalMsg() {}

// MsgQuit requests a graceful close of the control channel.
var MsgQuit InternalMsg = msgQuit{}

type msgSecureControlChannel struct{}

func (msgSecureControlChannel) isInternalMsg() {}

// MsgSecureControlChannel requests the TLS upgrade of the control channel.
var MsgSecureControlChannel InternalMsg = msgSecureControlChannel{}

type msgPlaintextControlChannel struct{}

func (msgPlaintextControlChannel) isInternalMsg() {}

// MsgPlaintextControlChannel requests the CCC downgrade back to plaintext.
var MsgPlaintextControlChannel InternalMsg = msgPlaintextControlChannel{}

// MsgCommandChannelReply lets a handler or the switchboard push an
// unsolicited reply through the loop's single writer: PASV/EPSV in PROXY
// mode use this to deliver their 227/229 (or 425) after the switchboard
// registers the reservation, since the reservation itself races concurrent
// data-connection rendezvous and cannot be reported synchronously.
type MsgCommandChannelReply struct {
	Code    ReplyCode
	Message string
}

func (MsgCommandChannelReply) isInternalMsg() {}

// MsgAuthSuccess/MsgAuthFailed are not currently produced (PASS is handled
// synchronously) but are kept as part of the InternalMsg union: a future
// Authenticator implementation that performs network I/O can raise these
// asynchronously without changing the loop.
type MsgAuthSuccess struct{ User string }

func (MsgAuthSuccess) isInternalMsg() {}

type MsgAuthFailed struct{}

func (MsgAuthFailed) isInternalMsg() {}

// Data-transfer completion messages, raised by the byte pump (transfer.go)
// and consumed by the event loop to produce the final 226/426/451/550 reply.
type MsgSendingData struct{}

func (MsgSendingData) isInternalMsg() {}

type MsgWrittenData struct{ Bytes int64 }

func (MsgWrittenData) isInternalMsg() {}

type MsgDirectorySuccessfullyListed struct{}

func (MsgDirectorySuccessfullyListed) isInternalMsg() {}

type MsgWriteFailed struct{ Err error }

func (MsgWriteFailed) isInternalMsg() {}

type MsgConnectionReset struct{}

func (MsgConnectionReset) isInternalMsg() {}

type MsgUnknownRetrieveError struct{ Err error }

func (MsgUnknownRetrieveError) isInternalMsg() {}

type MsgStorageError struct{ Kind StorageErrorKind }

func (MsgStorageError) isInternalMsg() {}
