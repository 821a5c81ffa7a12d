package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// dataConnWait bounds how long a data command waits for its data
// connection to materialise before failing the transfer.
const dataConnWait = 30 * time.Second

var (
	errDataConnTimeout   = errors.New("timed out waiting for data connection")
	errNoPassiveListener = errors.New("no passive listener; send PASV or EPSV first")
)

// SessionState is the session's control-channel state machine.
type SessionState int

const (
	StateStart SessionState = iota
	StateWaitPass
	StateWaitCmd
)

// protLevel is the PROT command's data-channel protection level.
type protLevel int

const (
	protClear protLevel = iota
	protPrivate
)

// Session is the per-connection mutable state shared between the event loop
// and data-channel tasks, protected by mu. Handlers hold mu only across
// fast state reads/writes, never across socket I/O.
type Session struct {
	ID string

	mu sync.Mutex

	state       SessionState
	pendingUser string // set while state == StateWaitPass
	user        string // set only once state == StateWaitCmd

	cwd        string
	restartOff int64
	renameFrom string

	cmdTLS  bool
	dataTLS protLevel

	// dataAbort, when non-nil, cancels the single active data transfer.
	// Present iff a transfer is in flight.
	dataAbort  context.CancelFunc
	transferWG sync.WaitGroup

	// internal is the channel data tasks and the switchboard use to deliver
	// InternalMsg back to this session's event loop. Kept as a direct
	// channel handle rather than a weak/indirect capability: Go's garbage
	// collector reclaims the loop<->session cycle this creates (see
	// DESIGN.md).
	internal chan InternalMsg

	remoteAddr net.Addr
	// proxyReservedPort is set once a PROXY-mode PASV reservation for this
	// session has been made, so data commands can check that one exists.
	proxyReservedPort int

	// dataConnCh delivers the rendezvoused data connection in PROXY mode
	// (see Switchboard.HandleConn / deliverDataConn) to the handler that is
	// waiting for it inside a data-pump task.
	dataConnCh chan net.Conn

	// pasvListener is the normal-mode (non-PROXY) passive listener opened
	// by PASV/EPSV, consumed by the next data command's openDataConn.
	pasvListener net.Listener
}

func newSession(remoteAddr net.Addr) *Session {
	return &Session{
		ID:         uuid.NewString(),
		state:      StateStart,
		cwd:        "/",
		remoteAddr: remoteAddr,
		internal:   make(chan InternalMsg, 1), // bounded capacity 1, back-pressure
		dataConnCh: make(chan net.Conn, 1),
	}
}

func (s *Session) withLock(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f()
}

// State returns the current FSM state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BeginAuth transitions Start|WaitCmd -(USER n)-> WaitPass(n).
func (s *Session) BeginAuth(user string) {
	s.withLock(func() {
		s.state = StateWaitPass
		s.pendingUser = user
		s.user = ""
	})
}

// CompleteAuth transitions WaitPass(n) -(PASS ok)-> WaitCmd.
func (s *Session) CompleteAuth() {
	s.withLock(func() {
		s.user = s.pendingUser
		s.pendingUser = ""
		s.state = StateWaitCmd
	})
}

// FailAuth transitions WaitPass(n) -(PASS fail)-> Start.
func (s *Session) FailAuth() {
	s.withLock(func() {
		s.pendingUser = ""
		s.state = StateStart
	})
}

// PendingUser returns the username bound by the most recent USER command.
func (s *Session) PendingUser() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingUser
}

// User returns the authenticated username, valid only once State is WaitCmd.
func (s *Session) User() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) Cwd() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cwd
}

func (s *Session) SetCwd(p string) {
	s.withLock(func() { s.cwd = p })
}

// TakeRestartOffset returns and clears the restart offset, matching the
// invariant that it is consumed by one RETR/STOR.
func (s *Session) TakeRestartOffset() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	off := s.restartOff
	s.restartOff = 0
	return off
}

func (s *Session) SetRestartOffset(n int64) {
	s.withLock(func() { s.restartOff = n })
}

// RenameFrom and friends maintain the RNFR/RNTO invariant: non-empty iff the
// last accepted command was RNFR and nothing intervening reset it.
func (s *Session) RenameFrom() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renameFrom, s.renameFrom != ""
}

func (s *Session) SetRenameFrom(p string) {
	s.withLock(func() { s.renameFrom = p })
}

func (s *Session) ClearRenameFrom() {
	s.withLock(func() { s.renameFrom = "" })
}

func (s *Session) CmdTLS() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmdTLS
}

func (s *Session) SetCmdTLS(v bool) {
	s.withLock(func() { s.cmdTLS = v })
}

func (s *Session) DataProtected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataTLS == protPrivate
}

func (s *Session) SetDataProtected(v bool) {
	s.withLock(func() {
		if v {
			s.dataTLS = protPrivate
		} else {
			s.dataTLS = protClear
		}
	})
}

// BeginTransfer records the abort func for a newly-started data transfer.
// It returns false if a transfer is already active (at most one per
// session).
func (s *Session) BeginTransfer(cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataAbort != nil {
		return false
	}
	s.dataAbort = cancel
	s.transferWG.Add(1)
	return true
}

// EndTransfer clears the abort func once the data pump has terminated.
func (s *Session) EndTransfer() {
	s.withLock(func() { s.dataAbort = nil })
	s.transferWG.Done()
}

// Abort takes the current abort func, if any, and invokes it. Idempotent:
// calling Abort with no active transfer is a no-op.
func (s *Session) Abort() (hadTransfer bool) {
	s.mu.Lock()
	cancel := s.dataAbort
	s.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// WaitTransfers blocks until any in-flight data pump has observed
// cancellation and returned, used during session close.
func (s *Session) WaitTransfers() { s.transferWG.Wait() }

// Internal returns the channel data tasks use to deliver InternalMsg back
// to this session's event loop.
func (s *Session) Internal() chan<- InternalMsg { return s.internal }

func (s *Session) setProxyReservedPort(p int) {
	s.withLock(func() { s.proxyReservedPort = p })
}

// hasProxyReservedPort reports whether a PASV/EPSV reservation is currently
// outstanding, without consuming it.
func (s *Session) hasProxyReservedPort() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proxyReservedPort != 0
}

func (s *Session) takeProxyReservedPort() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.proxyReservedPort
	s.proxyReservedPort = 0
	return p
}

// SetPasvListener stores the listener opened by PASV/EPSV for the next data
// command to Accept from. Replacing a previous listener closes it.
func (s *Session) SetPasvListener(l net.Listener) {
	s.mu.Lock()
	old := s.pasvListener
	s.pasvListener = l
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// TakePasvListener returns and clears the stored passive listener.
func (s *Session) TakePasvListener() net.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.pasvListener
	s.pasvListener = nil
	return l
}

// openDataConn returns the data connection for the transfer about to start:
// in PROXY mode it waits for the switchboard to rendezvous a connection; in
// normal mode it accepts on the listener PASV/EPSV opened.
func (s *Session) openDataConn(ctx *CommandContext) (net.Conn, error) {
	if ctx.Switchboard != nil {
		select {
		case conn := <-s.dataConnCh:
			return conn, nil
		case <-time.After(dataConnWait):
			return nil, errDataConnTimeout
		}
	}
	l := s.TakePasvListener()
	if l == nil {
		return nil, errNoPassiveListener
	}
	defer l.Close()
	type acceptResult struct {
		conn net.Conn
		err  error
	}
	ch := make(chan acceptResult, 1)
	go func() {
		conn, err := l.Accept()
		ch <- acceptResult{conn, err}
	}()
	select {
	case r := <-ch:
		return r.conn, r.err
	case <-time.After(dataConnWait):
		return nil, errDataConnTimeout
	}
}

// deliverDataConn hands a rendezvoused PROXY-mode data connection to
// whichever data-pump task is waiting for one. It never blocks: a
// connection arriving with nobody waiting is dropped, the same "if not
// found, log and close" policy the switchboard applies one level up (here
// the mismatch is timing rather than identity).
func (s *Session) deliverDataConn(conn net.Conn) {
	select {
	case s.dataConnCh <- conn:
	default:
		conn.Close()
	}
}
