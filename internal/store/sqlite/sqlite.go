package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/roombroker/internal/store"
)

// Schema is applied by New. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS session_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	origin     TEXT NOT NULL,
	kind       TEXT NOT NULL,
	room_id    INTEGER,
	username   TEXT NOT NULL DEFAULT '',
	detail     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id, id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the journal schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema without migrations.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Set connection pool limits before setup
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	// Test connection
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

// ==== JournalStore implementation ====

// RecordSessionEvent appends a lifecycle event.
func (s *SQLiteStore) RecordSessionEvent(ctx context.Context, ev store.SessionEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO session_events (session_id, origin, kind, room_id, username, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	var roomID sql.NullInt64
	if ev.RoomID != nil {
		roomID = sql.NullInt64{Int64: *ev.RoomID, Valid: true}
	}

	if _, err := s.db.ExecContext(ctx, query,
		ev.SessionID, ev.Origin, string(ev.Kind), roomID, ev.Username, ev.Detail, ev.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert session event: %w", err)
	}
	return nil
}

// ListSessionEvents returns up to limit of the most recent events, newest first.
func (s *SQLiteStore) ListSessionEvents(ctx context.Context, limit int) ([]store.SessionEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, session_id, origin, kind, room_id, username, detail, created_at
		FROM session_events
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	defer rows.Close()

	return scanSessionEvents(rows)
}

// ListSessionEventsFor returns every event recorded for a session, oldest first.
func (s *SQLiteStore) ListSessionEventsFor(ctx context.Context, sessionID string) ([]store.SessionEvent, error) {
	query := `
		SELECT id, session_id, origin, kind, room_id, username, detail, created_at
		FROM session_events
		WHERE session_id = ?
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	defer rows.Close()

	return scanSessionEvents(rows)
}

func scanSessionEvents(rows *sql.Rows) ([]store.SessionEvent, error) {
	events := make([]store.SessionEvent, 0)
	for rows.Next() {
		var ev store.SessionEvent
		var kind string
		var roomID sql.NullInt64
		if err := rows.Scan(
			&ev.ID,
			&ev.SessionID,
			&ev.Origin,
			&kind,
			&roomID,
			&ev.Username,
			&ev.Detail,
			&ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session event: %w", err)
		}
		ev.Kind = store.EventKind(kind)
		if roomID.Valid {
			id := roomID.Int64
			ev.RoomID = &id
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session events: %w", err)
	}
	return events, nil
}
