package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/wirechat-irc/internal/store"
)

// Schema creates the tables used by SQLiteStore.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id              TEXT PRIMARY KEY,
	remote          TEXT NOT NULL,
	transport       TEXT NOT NULL,
	nickname        TEXT NOT NULL DEFAULT '',
	quit_reason     TEXT NOT NULL DEFAULT '',
	connected_at    DATETIME NOT NULL,
	disconnected_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_sessions_connected_at ON sessions (connected_at);
`

// ErrSessionNotFound is returned when a disconnect names an unknown session.
var ErrSessionNotFound = errors.New("session not found")

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database at dbPath and applies Schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup opens the database and runs setup before the first ping.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps an
	// in-memory database alive across queries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordConnect inserts a record for a freshly accepted connection.
func (s *SQLiteStore) RecordConnect(ctx context.Context, sess *store.Session) error {
	query := `
		INSERT INTO sessions (id, remote, transport, connected_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, sess.ID, sess.Remote, sess.Transport, sess.ConnectedAt.UTC()); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// RecordDisconnect closes the record with the last nickname and the reason.
func (s *SQLiteStore) RecordDisconnect(ctx context.Context, id, nickname, reason string, at time.Time) error {
	query := `
		UPDATE sessions
		SET nickname = ?, quit_reason = ?, disconnected_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, nickname, reason, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// ListSessions returns the most recent records first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]*store.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, remote, transport, nickname, quit_reason, connected_at, disconnected_at
		FROM sessions
		ORDER BY connected_at DESC, id
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*store.Session
	for rows.Next() {
		var sess store.Session
		var disconnectedAt sql.NullTime
		if err := rows.Scan(
			&sess.ID,
			&sess.Remote,
			&sess.Transport,
			&sess.Nickname,
			&sess.QuitReason,
			&sess.ConnectedAt,
			&disconnectedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if disconnectedAt.Valid {
			t := disconnectedAt.Time
			sess.DisconnectedAt = &t
		}
		sessions = append(sessions, &sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}
