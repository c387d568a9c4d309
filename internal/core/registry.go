package core

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SessionInfo is a copy of a registry entry.
type SessionInfo struct {
	ID       string
	Origin   string
	Identity string
}

type session struct {
	conn     Connection
	origin   string
	identity string
}

// Registry tracks one live connection per origin and the display identity of each connection.
// Its session table is the authoritative set of known connections; every other map in the
// core refers to connections by session id only.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session // session id -> entry
	origins  map[string]string   // origin -> session id

	evictionText string
	sendTimeout  time.Duration
	log          *zerolog.Logger
}

// NewRegistry creates an empty registry. evictionText is sent to a displaced connection before it is closed.
func NewRegistry(evictionText string, sendTimeout time.Duration, logger *zerolog.Logger) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Registry{
		sessions:     make(map[string]*session),
		origins:      make(map[string]string),
		evictionText: evictionText,
		sendTimeout:  sendTimeout,
		log:          logger,
	}
}

// Register stores conn under its origin. If another connection already holds that origin it is
// purged, notified and closed with a policy violation, and returned so the caller can drop it
// from room membership. Returns nil when nothing was evicted.
//
// The swap of the origin slot and the purge of the old entry happen under one lock; the notice
// and close are issued after the lock is released.
func (r *Registry) Register(ctx context.Context, conn Connection) Connection {
	id := conn.ID()
	origin := conn.RemoteOrigin()

	var evicted Connection

	r.mu.Lock()
	if prevID, ok := r.origins[origin]; ok && prevID != id {
		if prev, ok := r.sessions[prevID]; ok {
			evicted = prev.conn
			delete(r.sessions, prevID)
		}
	}
	r.origins[origin] = id
	if existing, ok := r.sessions[id]; ok {
		if existing.origin != origin && r.origins[existing.origin] == id {
			delete(r.origins, existing.origin)
		}
		existing.conn = conn
		existing.origin = origin
	} else {
		r.sessions[id] = &session{conn: conn, origin: origin}
	}
	r.mu.Unlock()

	if evicted == nil {
		return nil
	}

	r.log.Warn().
		Str("origin", origin).
		Str("session_id", evicted.ID()).
		Str("replaced_by", id).
		Msg("duplicate origin, evicting previous session")

	r.dismiss(ctx, evicted)
	return evicted
}

// dismiss sends the eviction notice, then closes with a policy violation. With a send timeout
// the whole exchange is bounded by it; a peer that does not finish the close handshake in time
// is aborted if its connection supports that.
func (r *Registry) dismiss(ctx context.Context, conn Connection) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		sendCtx := ctx
		if r.sendTimeout > 0 {
			var cancel context.CancelFunc
			sendCtx, cancel = context.WithTimeout(ctx, r.sendTimeout)
			defer cancel()
		}
		if err := conn.Send(sendCtx, []byte(r.evictionText)); err != nil {
			r.log.Debug().Err(err).Str("session_id", conn.ID()).Msg("eviction notice not delivered")
		}
		if err := conn.Close(ClosePolicyViolation, "duplicate origin"); err != nil {
			r.log.Debug().Err(err).Str("session_id", conn.ID()).Msg("close evicted session")
		}
	}()

	if r.sendTimeout <= 0 {
		<-done
		return
	}

	timer := time.NewTimer(r.sendTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		aborter, ok := conn.(Aborter)
		if !ok {
			r.log.Warn().Str("session_id", conn.ID()).Msg("evicted session still closing")
			return
		}
		if err := aborter.CloseNow(); err != nil {
			r.log.Debug().Err(err).Str("session_id", conn.ID()).Msg("abort evicted session")
		}
		r.log.Warn().Str("session_id", conn.ID()).Msg("evicted session aborted after close timeout")
	}
}

// SetIdentity records the display name for a registered connection.
// Returns false if the session is unknown.
func (r *Registry) SetIdentity(id, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.identity = name
	return true
}

// Identity returns the display name recorded for a session, if any.
func (r *Registry) Identity(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok || s.identity == "" {
		return "", false
	}
	return s.identity, true
}

// Info returns a copy of the entry for id.
func (r *Registry) Info(id string) (SessionInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return SessionInfo{}, false
	}
	return SessionInfo{ID: id, Origin: s.origin, Identity: s.identity}, true
}

// Cleanup removes every entry keyed by or pointing at conn. It is idempotent and reports
// whether anything was removed. The origin slot is released only if conn still owns it, so a
// late cleanup of an evicted connection never disturbs its replacement.
func (r *Registry) Cleanup(conn Connection) bool {
	id := conn.ID()

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	delete(r.sessions, id)
	if owner, ok := r.origins[s.origin]; ok && owner == id {
		delete(r.origins, s.origin)
	}
	return true
}

// Lookup returns the live connection for a session id.
func (r *Registry) Lookup(id string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return s.conn, true
}

// ByOrigin returns the connection currently holding origin.
func (r *Registry) ByOrigin(origin string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.origins[origin]
	if !ok {
		return nil, false
	}
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return s.conn, true
}

// Resolve maps session ids to live connections, skipping ids that are no longer registered.
func (r *Registry) Resolve(ids []string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Connection, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.sessions[id]; ok {
			out = append(out, s.conn)
		}
	}
	return out
}

// Connections returns a snapshot of every registered connection.
func (r *Registry) Connections() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Connection, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.conn)
	}
	return out
}

// Snapshot returns a copy of every entry, ordered by session id.
func (r *Registry) Snapshot() []SessionInfo {
	r.mu.RLock()
	out := make([]SessionInfo, 0, len(r.sessions))
	for id, s := range r.sessions {
		out = append(out, SessionInfo{ID: id, Origin: s.origin, Identity: s.identity})
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b SessionInfo) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
