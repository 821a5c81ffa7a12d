package server

import (
	"fmt"
	"net"
	"sync"
	"time"

	proxyproto "github.com/pires/go-proxyproto"
)

// reservationTTL is the default lifetime of a PASV port reservation before
// it is reclaimed lazily by the allocator.
const reservationTTL = 60 * time.Second

// switchboardReservation is one entry of reserved ports: port mapped to the
// session that reserved it and its expiry.
type switchboardReservation struct {
	session *Session
	expiry  time.Time
}

// Switchboard demultiplexes control and data connections arriving on a
// single PROXY-protocol-fronted listener, pairing data connections back to
// the session that reserved their destination port: two maps protected by
// one mutex, a rotating cursor for free-port scanning, and lazy expiry on
// allocation.
type Switchboard struct {
	externalIP     net.IP
	controlPort    int
	minPort        int
	maxPort        int

	mu      sync.Mutex
	cursor  int
	byPort  map[int]*switchboardReservation
	bySrc   map[srcPortKey]*switchboardReservation
}

type srcPortKey struct {
	srcIP   string
	dstPort int
}

// NewSwitchboard constructs a switchboard for the given external address and
// control port, allocating passive ports from [minPort, maxPort].
func NewSwitchboard(externalIP net.IP, controlPort, minPort, maxPort int) *Switchboard {
	return &Switchboard{
		externalIP:  externalIP,
		controlPort: controlPort,
		minPort:     minPort,
		maxPort:     maxPort,
		cursor:      minPort,
		byPort:      make(map[int]*switchboardReservation),
		bySrc:       make(map[srcPortKey]*switchboardReservation),
	}
}

// Reserve allocates the next free port in range for sess using the
// rotating cursor policy. Returns (0, false) when the range is exhausted
// (the caller replies 425).
func (sb *Switchboard) Reserve(sess *Session) (port int, ok bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.reclaimExpiredLocked()

	span := sb.maxPort - sb.minPort + 1
	for i := 0; i < span; i++ {
		candidate := sb.minPort + (sb.cursor-sb.minPort+i)%span
		if _, taken := sb.byPort[candidate]; taken {
			continue
		}
		sb.cursor = candidate + 1
		if sb.cursor > sb.maxPort {
			sb.cursor = sb.minPort
		}
		r := &switchboardReservation{session: sess, expiry: time.Now().Add(reservationTTL)}
		sb.byPort[candidate] = r
		return candidate, true
	}
	return 0, false
}

// ReservePassive allocates a passive port for sess and delivers the 227/229
// reply asynchronously via MsgCommandChannelReply once the reservation is
// registered, rather than handing the Reply back to the calling handler.
// PASV/EPSV in PROXY mode therefore reply through the same unsolicited-reply
// path the switchboard uses for everything else it tells a session, instead
// of racing the handler's own return value against a concurrent reservation.
func (sb *Switchboard) ReservePassive(sess *Session, extended bool) {
	port, ok := sb.Reserve(sess)
	if !ok {
		sess.Internal() <- MsgCommandChannelReply{
			Code:    CodeCantOpenData,
			Message: "No passive ports available.",
		}
		return
	}
	sess.setProxyReservedPort(port)

	var msg string
	if extended {
		msg = fmt.Sprintf("Entering Extended Passive Mode (|||%d|).", port)
	} else {
		msg = fmt.Sprintf("Entering Passive Mode (%s,%d,%d).", pasvIPFields(sb.externalIP.String()), port/256, port%256)
	}
	sess.Internal() <- MsgCommandChannelReply{Code: CodeEnteringPassive, Message: msg}
}

// Revoke drops any reservation owned by sess, used when a session closes
// while a PASV reservation is outstanding.
func (sb *Switchboard) Revoke(sess *Session) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	for port, r := range sb.byPort {
		if r.session == sess {
			delete(sb.byPort, port)
		}
	}
	for key, r := range sb.bySrc {
		if r.session == sess {
			delete(sb.bySrc, key)
		}
	}
}

func (sb *Switchboard) reclaimExpiredLocked() {
	now := time.Now()
	for port, r := range sb.byPort {
		if now.After(r.expiry) {
			delete(sb.byPort, port)
		}
	}
}

// ExternalIP is the advertised address used in PASV replies.
func (sb *Switchboard) ExternalIP() net.IP { return sb.externalIP }

// HandleConn routes an already PROXY-header-parsed connection (conn must be
// a *proxyproto.Conn, as produced by the PROXY-mode listener): control
// connections are returned to the caller for ordinary session handling,
// data connections are rendezvoused with their reserving session and handed
// off, consuming conn.
//
// Returns (nil, nil) when conn was a data connection and has been consumed.
func (sb *Switchboard) HandleConn(conn *proxyproto.Conn) (net.Conn, error) {
	header := conn.ProxyHeader()
	if header == nil {
		conn.Close()
		return nil, fmt.Errorf("proxy protocol: missing header")
	}
	srcAddr, ok := header.SourceAddr.(*net.TCPAddr)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("proxy protocol: non-TCP source address")
	}
	dstAddr, ok := header.DestinationAddr.(*net.TCPAddr)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("proxy protocol: non-TCP destination address")
	}
	srcIP := srcAddr.IP.String()
	dstPort := dstAddr.Port

	if dstPort == sb.controlPort {
		return conn, nil
	}

	sb.mu.Lock()
	key := srcPortKey{srcIP: srcIP, dstPort: dstPort}
	r, found := sb.bySrc[key]
	if !found {
		// First contact for this port: look it up by port, accept it only
		// from the reserving session's client address, and bind the source
		// IP. The port->session entry is created by PASV and promoted to the
		// source-keyed map on first use.
		if pr, ok := sb.byPort[dstPort]; ok && remoteHost(pr.session) == srcIP {
			sb.bySrc[key] = pr
			delete(sb.byPort, dstPort)
			r = pr
			found = true
		}
	}
	if found {
		delete(sb.bySrc, key)
	}
	sb.mu.Unlock()

	if !found {
		conn.Close()
		return nil, fmt.Errorf("proxy protocol: no reservation for %s:%d", srcIP, dstPort)
	}

	r.session.deliverDataConn(conn)
	return nil, nil
}
