package server

import (
	"bufio"
	"strings"
	"unicode/utf8"
)

// MaxCommandLength caps a single control-channel line, guarding against an
// unbounded read on a client that never sends CRLF.
const MaxCommandLength = 4096

// codec frames the control channel: it reads CRLF-terminated lines off a
// telnet-filtered reader and decodes them into Commands, and renders Replies
// back onto a bufio.Writer. It holds no session state of its own, acting as
// a pure, swappable collaborator of the event loop.
type codec struct {
	tnet   *telnetReader
	reader *bufio.Reader
	writer *bufio.Writer
}

func newCodec(tnet *telnetReader, reader *bufio.Reader, writer *bufio.Writer) *codec {
	return &codec{tnet: tnet, reader: reader, writer: writer}
}

// readLine reads one CRLF-terminated (or bare-LF-terminated) line, byte by
// byte, up to MaxCommandLength.
func (c *codec) readLine() (string, error) {
	var line []byte
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			return "", err
		}
		if b == '\n' {
			break
		}
		if b != '\r' {
			line = append(line, b)
		}
		if len(line) > MaxCommandLength {
			return "", &ParseError{Kind: ParseInvalidCommand}
		}
	}
	return string(line), nil
}

// decode reads the next line and parses it into a Command.
func (c *codec) decode() (Command, error) {
	line, err := c.readLine()
	if err != nil {
		return Command{}, err
	}
	return parseCommand(line)
}

func parseCommand(line string) (Command, error) {
	if !utf8.ValidString(line) {
		return Command{}, &ParseError{Kind: ParseInvalidUTF8}
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, &ParseError{Kind: ParseInvalidCommand}
	}
	verb, arg, _ := strings.Cut(line, " ")
	verb = strings.ToUpper(verb)
	if !knownVerb(Verb(verb)) {
		return Command{}, &ParseError{Kind: ParseUnknownCommand, Command: verb}
	}
	return Command{Verb: Verb(verb), Arg: strings.TrimSpace(arg)}, nil
}

func knownVerb(v Verb) bool {
	switch v {
	case VerbUSER, VerbPASS, VerbQUIT, VerbSYST, VerbTYPE, VerbSTRU, VerbMODE,
		VerbNOOP, VerbACCT, VerbALLO, VerbHELP, VerbFEAT, VerbPWD, VerbCWD,
		VerbCDUP, VerbMKD, VerbRMD, VerbDELE, VerbRNFR, VerbRNTO, VerbSIZE,
		VerbMDTM, VerbREST, VerbPASV, VerbEPSV, VerbPORT, VerbEPRT, VerbRETR,
		VerbSTOR, VerbSTOU, VerbAPPE, VerbLIST, VerbNLST, VerbABOR, VerbAUTH,
		VerbPBSZ, VerbPROT, VerbCCC:
		return true
	}
	return false
}

// writeReply encodes and flushes a Reply. A suppressed reply is a no-op.
func (c *codec) writeReply(r Reply) error {
	encoded := r.Encode()
	if encoded == "" {
		return nil
	}
	if _, err := c.writer.WriteString(encoded); err != nil {
		return err
	}
	return c.writer.Flush()
}

// rebind swaps the underlying reader/writer pair, used by the TLS upgrade
// (C6 step 3) to re-frame the codec over a new transport without losing the
// telnet filter.
func (c *codec) rebind(tnet *telnetReader, reader *bufio.Reader, writer *bufio.Writer) {
	c.tnet = tnet
	c.reader = reader
	c.writer = writer
}
