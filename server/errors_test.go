package server

import (
	"errors"
	"io/fs"
	"testing"
)

func TestStorageErrorFromErrClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want StorageErrorKind
	}{
		{"not exist", fs.ErrNotExist, StoragePermanentFileNotAvailable},
		{"permission", fs.ErrPermission, StoragePermissionDenied},
		{"exist", fs.ErrExist, StoragePermanentFileNotAvailable},
		{"generic", errors.New("boom"), StorageLocalError},
		{"already typed", &StorageError{Kind: StorageInsufficientStorageSpace}, StorageInsufficientStorageSpace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := storageErrorFromErr(tt.err)
			if got.Kind != tt.want {
				t.Errorf("storageErrorFromErr(%v).Kind = %v, want %v", tt.err, got.Kind, tt.want)
			}
		})
	}
}

func TestStorageReplyNilError(t *testing.T) {
	r := storageReply(nil)
	if r.Code != CodeLocalError {
		t.Fatalf("storageReply(nil).Code = %v, want %v", r.Code, CodeLocalError)
	}
}

func TestControlChanErrorFromParseErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ControlChanErrorKind
	}{
		{"unknown command", &ParseError{Kind: ParseUnknownCommand}, ErrParseUnknownCommand},
		{"invalid utf8", &ParseError{Kind: ParseInvalidUTF8}, ErrParseInvalidUTF8},
		{"invalid command", &ParseError{Kind: ParseInvalidCommand}, ErrParseInvalidCommand},
		{"not a parse error", errors.New("eof"), ErrIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := controlChanErrorFromParseErr(tt.err)
			if got.Kind != tt.want {
				t.Errorf("controlChanErrorFromParseErr(%v).Kind = %v, want %v", tt.err, got.Kind, tt.want)
			}
		})
	}
}

func TestControlChanReplyCodes(t *testing.T) {
	tests := []struct {
		kind ControlChanErrorKind
		want ReplyCode
	}{
		{ErrIO, CodeServiceNotAvailable},
		{ErrParseUnknownCommand, CodeCommandNotImpl},
		{ErrParseInvalidCommand, CodeInvalidParam},
		{ErrParseInvalidUTF8, CodeInvalidParam},
		{ErrAuthentication, CodeNotLoggedIn},
		{ErrControlChannelTimeout, CodeSessionTimedOut},
		{ErrInternalMsgUnmapped, CodeLocalError},
	}
	for _, tt := range tests {
		got := controlChanReply(newControlChanError(tt.kind, nil))
		if got.Code != tt.want {
			t.Errorf("controlChanReply(%v).Code = %v, want %v", tt.kind, got.Code, tt.want)
		}
	}
}

func TestControlChanReplyIOClosesConnection(t *testing.T) {
	cce := newControlChanError(ErrIO, errors.New("read: connection reset"))
	reply := controlChanReply(cce)
	if reply.Code != CodeServiceNotAvailable {
		t.Fatalf("controlChanReply(ErrIO).Code = %v, want %v", reply.Code, CodeServiceNotAvailable)
	}
	if !cce.Kind.closesConnection() {
		t.Fatal("ErrIO must close the connection, not just reply 421")
	}
}

func TestControlChanErrorClosesConnection(t *testing.T) {
	tests := []struct {
		kind ControlChanErrorKind
		want bool
	}{
		{ErrIO, true},
		{ErrControlChannelTimeout, true},
		{ErrParseUnknownCommand, false},
		{ErrParseInvalidCommand, false},
		{ErrAuthentication, false},
	}
	for _, tt := range tests {
		if got := tt.kind.closesConnection(); got != tt.want {
			t.Errorf("%v.closesConnection() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}
