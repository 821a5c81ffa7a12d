package server

import (
	"errors"
	"io/fs"
)

// StorageErrorKind classifies a failure returned by the Storage interface.
type StorageErrorKind int

const (
	StorageTransientFileNotAvailable StorageErrorKind = iota
	StoragePermanentFileNotAvailable
	StoragePermissionDenied
	StorageLocalError
	StoragePageTypeUnknown
	StorageInsufficientStorageSpace
	StorageExceededStorageAllocation
	StorageFileNameNotAllowed
)

// StorageError wraps a StorageErrorKind as a Go error, the way backends
// implementing the Storage interface should report failures.
type StorageError struct {
	Kind StorageErrorKind
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "storage error"
}

func (e *StorageError) Unwrap() error { return e.Err }

func newStorageError(kind StorageErrorKind, err error) *StorageError {
	return &StorageError{Kind: kind, Err: err}
}

// storageErrorFromErr classifies a generic error (e.g. from the bundled
// os-backed FSDriver) into a StorageErrorKind using
// os.IsNotExist/IsPermission/IsExist.
func storageErrorFromErr(err error) *StorageError {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return newStorageError(StoragePermanentFileNotAvailable, err)
	case errors.Is(err, fs.ErrPermission):
		return newStorageError(StoragePermissionDenied, err)
	case errors.Is(err, fs.ErrExist):
		return newStorageError(StoragePermanentFileNotAvailable, err)
	default:
		return newStorageError(StorageLocalError, err)
	}
}

// storageReply translates a Storage error into its corresponding Reply.
func storageReply(err error) Reply {
	se := storageErrorFromErr(err)
	if se == nil {
		return ReplyLine(CodeLocalError, "Local error in processing.")
	}
	switch se.Kind {
	case StorageTransientFileNotAvailable:
		return ReplyLine(CodeFileUnavailable, "Transient file not available.")
	case StoragePermanentFileNotAvailable:
		return ReplyLine(CodeFileNotFound, "File not found.")
	case StoragePermissionDenied:
		return ReplyLine(CodeFileNotFound, "Permission denied.")
	case StorageLocalError:
		return ReplyLine(CodeLocalError, "Local error in processing.")
	case StoragePageTypeUnknown:
		return ReplyLine(CodePageTypeUnknown, "Page type unknown.")
	case StorageInsufficientStorageSpace:
		return ReplyLine(CodeInsufficientStorage, "Insufficient storage space.")
	case StorageExceededStorageAllocation:
		return ReplyLine(CodeExceededStorage, "Exceeded storage allocation.")
	case StorageFileNameNotAllowed:
		return ReplyLine(CodeFileNameNotAllowed, "File name not allowed.")
	default:
		return ReplyLine(CodeLocalError, "Local error in processing.")
	}
}

// ControlChanErrorKind classifies a failure in the control-channel loop
// itself, as opposed to a Storage failure.
type ControlChanErrorKind int

const (
	ErrIO ControlChanErrorKind = iota
	ErrParseUnknownCommand
	ErrParseInvalidCommand
	ErrParseInvalidUTF8
	ErrAuthentication
	ErrControlChannelTimeout
	ErrInternalServer
	ErrInternalMsgUnmapped
)

// ControlChanError is the error type threaded through the event loop and
// dispatch chain.
type ControlChanError struct {
	Kind ControlChanErrorKind
	Err  error
}

func (e *ControlChanError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "control channel error"
}

func (e *ControlChanError) Unwrap() error { return e.Err }

func newControlChanError(kind ControlChanErrorKind, err error) *ControlChanError {
	return &ControlChanError{Kind: kind, Err: err}
}

// controlChanErrorFromParseErr maps a ParseError into a ControlChanError.
func controlChanErrorFromParseErr(err error) *ControlChanError {
	var pe *ParseError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case ParseUnknownCommand:
			return newControlChanError(ErrParseUnknownCommand, err)
		case ParseInvalidUTF8:
			return newControlChanError(ErrParseInvalidUTF8, err)
		default:
			return newControlChanError(ErrParseInvalidCommand, err)
		}
	}
	return newControlChanError(ErrIO, err)
}

// controlChanReply is the single site that translates a ControlChanError
// into the Reply to emit; it never decides whether to close the connection
// — the event loop does that based on Kind.
func controlChanReply(e *ControlChanError) Reply {
	switch e.Kind {
	case ErrIO:
		return ReplyLine(CodeServiceNotAvailable, "Service not available, closing control connection.")
	case ErrParseUnknownCommand:
		return ReplyLine(CodeCommandNotImpl, "Command not implemented.")
	case ErrParseInvalidCommand:
		return ReplyLine(CodeInvalidParam, "Invalid parameter.")
	case ErrParseInvalidUTF8:
		return ReplyLine(CodeInvalidParam, "Invalid UTF8.")
	case ErrAuthentication:
		return ReplyLine(CodeNotLoggedIn, "Not logged in.")
	case ErrControlChannelTimeout:
		return ReplyLine(CodeSessionTimedOut, "Session timed out. Closing control connection.")
	case ErrInternalMsgUnmapped:
		return ReplyLine(CodeLocalError, "Local error in processing.")
	default:
		return ReplyLine(CodeLocalError, "Local error in processing.")
	}
}

// closesConnection reports whether kind closes the control connection
// rather than just producing a reply.
func (k ControlChanErrorKind) closesConnection() bool {
	return k == ErrIO || k == ErrControlChannelTimeout
}
