package core

import (
	"context"

	"github.com/vovakirdan/roombroker/internal/store"
)

// record appends to the journal if one is configured. Failures are logged only.
func (h *Hub) record(ctx context.Context, ev store.SessionEvent) {
	if h.store == nil {
		return
	}
	if err := h.store.RecordSessionEvent(context.WithoutCancel(ctx), ev); err != nil {
		h.log.Warn().Err(err).Str("session_id", ev.SessionID).Str("kind", string(ev.Kind)).Msg("journal write failed")
	}
}

func (h *Hub) recordRoom(ctx context.Context, conn Connection, kind store.EventKind, roomID int64, username string) {
	if h.store == nil {
		return
	}
	room := roomID
	h.record(ctx, store.SessionEvent{
		SessionID: conn.ID(),
		Origin:    conn.RemoteOrigin(),
		Kind:      kind,
		RoomID:    &room,
		Username:  username,
	})
}
