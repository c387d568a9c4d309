package store

import (
	"context"
	"time"
)

// EventKind names a session lifecycle transition.
type EventKind string

const (
	EventConnect    EventKind = "connect"
	EventEvict      EventKind = "evict"
	EventJoin       EventKind = "join"
	EventLeave      EventKind = "leave"
	EventDisconnect EventKind = "disconnect"
)

// SessionEvent is one journal row. It never carries chat message bodies.
type SessionEvent struct {
	ID        int64
	SessionID string
	Origin    string
	Kind      EventKind
	RoomID    *int64 // set for join/leave
	Username  string
	Detail    string // close reason, evicting session id, etc.
	CreatedAt time.Time
}

// JournalStore records session lifecycle events.
type JournalStore interface {
	RecordSessionEvent(ctx context.Context, ev SessionEvent) error
	// ListSessionEvents returns the newest events first.
	ListSessionEvents(ctx context.Context, limit int) ([]SessionEvent, error)
	// ListSessionEventsFor returns events for one session in insertion order.
	ListSessionEventsFor(ctx context.Context, sessionID string) ([]SessionEvent, error)
}

// Store combines all storage interfaces.
type Store interface {
	JournalStore
	Close() error
}
