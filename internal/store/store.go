package store

import (
	"context"
	"time"
)

// Session is the audit record of one client connection. It never holds
// message content.
type Session struct {
	ID             string
	Remote         string
	Transport      string
	Nickname       string
	QuitReason     string
	ConnectedAt    time.Time
	DisconnectedAt *time.Time
}

// SessionStore persists connection audit records.
type SessionStore interface {
	// RecordConnect inserts a record for a freshly accepted connection.
	RecordConnect(ctx context.Context, s *Session) error

	// RecordDisconnect closes the record with the last nickname and the reason.
	RecordDisconnect(ctx context.Context, id, nickname, reason string, at time.Time) error

	// ListSessions returns the most recent records first.
	ListSessions(ctx context.Context, limit int) ([]*Session, error)
}

// Store combines all store interfaces.
type Store interface {
	SessionStore

	// Close closes the underlying database connection.
	Close() error
}
