package server

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Command
		wantErr ControlChanErrorKind
	}{
		{
			name: "verb and arg",
			line: "USER anonymous",
			want: Command{Verb: VerbUSER, Arg: "anonymous"},
		},
		{
			name: "lowercase verb folded",
			line: "pwd",
			want: Command{Verb: VerbPWD, Arg: ""},
		},
		{
			name: "extra whitespace trimmed",
			line: "  TYPE   I  ",
			want: Command{Verb: VerbTYPE, Arg: "I"},
		},
		{
			name:    "empty line",
			line:    "",
			wantErr: ErrParseInvalidCommand,
		},
		{
			name:    "unknown verb",
			line:    "FROB nicate",
			wantErr: ErrParseUnknownCommand,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := parseCommand(tt.line)
			if tt.wantErr != 0 || err != nil {
				if err == nil {
					t.Fatalf("parseCommand(%q) = nil error, want kind %v", tt.line, tt.wantErr)
				}
				cce := controlChanErrorFromParseErr(err)
				if cce.Kind != tt.wantErr {
					t.Fatalf("parseCommand(%q) kind = %v, want %v", tt.line, cce.Kind, tt.wantErr)
				}
				return
			}
			if cmd != tt.want {
				t.Fatalf("parseCommand(%q) = %+v, want %+v", tt.line, cmd, tt.want)
			}
		})
	}
}

func TestCodecDecode(t *testing.T) {
	input := "USER bob\r\nPASS secret\r\n"
	tnet := newTelnetReader(strings.NewReader(input))
	c := newCodec(tnet, bufio.NewReader(tnet), bufio.NewWriter(&bytes.Buffer{}))

	cmd, err := c.decode()
	if err != nil {
		t.Fatalf("decode() error: %v", err)
	}
	if cmd.Verb != VerbUSER || cmd.Arg != "bob" {
		t.Fatalf("decode() = %+v, want USER bob", cmd)
	}

	cmd, err = c.decode()
	if err != nil {
		t.Fatalf("decode() error: %v", err)
	}
	if cmd.Verb != VerbPASS || cmd.Arg != "secret" {
		t.Fatalf("decode() = %+v, want PASS secret", cmd)
	}
}

func TestCodecWriteReply(t *testing.T) {
	var buf bytes.Buffer
	c := newCodec(nil, nil, bufio.NewWriter(&buf))
	if err := c.writeReply(ReplyLine(CodeCommandOK, "Command okay.")); err != nil {
		t.Fatalf("writeReply() error: %v", err)
	}
	if got, want := buf.String(), "200 Command okay.\r\n"; got != want {
		t.Fatalf("writeReply() wrote %q, want %q", got, want)
	}

	buf.Reset()
	if err := c.writeReply(NoReply()); err != nil {
		t.Fatalf("writeReply(NoReply) error: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("writeReply(NoReply) wrote %q, want nothing", buf.String())
	}
}

func TestCodecLongLineRejected(t *testing.T) {
	input := strings.Repeat("A", MaxCommandLength+10) + "\r\n"
	tnet := newTelnetReader(strings.NewReader(input))
	c := newCodec(tnet, bufio.NewReader(tnet), bufio.NewWriter(&bytes.Buffer{}))

	if _, err := c.decode(); err == nil {
		t.Fatal("decode() of an oversized line succeeded, want error")
	}
}
