package core

import (
	"sync"

	"github.com/vovakirdan/wirechat-irc/internal/proto"
)

// SessionState is the registration progress of a connection.
type SessionState int

const (
	StateConnecting SessionState = iota
	StateRegistering
	StateRegistered
	StateClosing
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateRegistering:
		return "registering"
	case StateRegistered:
		return "registered"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// User is one live connection as seen by the directory.
//
// Identity fields, away status, the current channel and the session state
// are guarded by the Directory's user-table lock and must only be touched
// through Directory methods. The outbound queue has its own guard.
type User struct {
	ID     string
	Remote string

	nick     string
	username string
	hostname string
	realname string
	away     string
	isAway   bool
	// channel is the name of the joined channel, empty when in none. It does
	// not keep the channel alive.
	channel string
	state   SessionState

	conn Conn

	outMu       sync.Mutex
	out         chan []byte
	outClosed   bool
	closeReason string
}

// NewUser builds a user whose outbound queue holds up to queueSize lines.
func NewUser(id string, conn Conn, queueSize int) *User {
	if queueSize <= 0 {
		queueSize = 1
	}
	u := &User{
		ID:   id,
		conn: conn,
		out:  make(chan []byte, queueSize),
	}
	if conn != nil {
		u.Remote = conn.RemoteAddr()
	}
	return u
}

func (u *User) prefixLocked() proto.Prefix {
	return proto.Prefix{Name: u.nick, User: u.username, Host: u.hostname}
}

func (u *User) targetLocked() string {
	if u.nick == "" {
		return "*"
	}
	return u.nick
}

// promoteLocked moves the session to Registered once both nickname and
// username are known. It reports whether the transition happened now.
func (u *User) promoteLocked() bool {
	if u.state == StateRegistered || u.state == StateClosing {
		return false
	}
	if u.nick != "" && u.username != "" {
		u.state = StateRegistered
		return true
	}
	return false
}

// enqueue hands one encoded line to the writer. It never blocks.
func (u *User) enqueue(line []byte) error {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	if u.outClosed {
		return errSessionClosed
	}
	select {
	case u.out <- line:
		return nil
	default:
		return ErrSendQueueExceeded
	}
}

// closeOutbound stops accepting lines. Lines already queued are still
// written. The first recorded reason wins.
func (u *User) closeOutbound(reason string) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	if u.closeReason == "" {
		u.closeReason = reason
	}
	if u.outClosed {
		return
	}
	u.outClosed = true
	close(u.out)
}

func (u *User) setCloseReason(reason string) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	if u.closeReason == "" {
		u.closeReason = reason
	}
}

func (u *User) reason(fallback string) string {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	if u.closeReason != "" {
		return u.closeReason
	}
	return fallback
}
