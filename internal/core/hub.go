package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roombroker/internal/metrics"
	"github.com/vovakirdan/roombroker/internal/proto"
	"github.com/vovakirdan/roombroker/internal/store"
)

// HubOptions configures a Hub. Zero values are usable.
type HubOptions struct {
	Store        store.JournalStore // optional session journal
	Logger       *zerolog.Logger
	Metrics      *metrics.Metrics
	SendTimeout  time.Duration
	WelcomeText  string
	EvictionText string
}

// Hub drives connection lifecycle: it is what the transport calls on connect, message and disconnect.
type Hub struct {
	sessions    *Registry
	rooms       *Directory
	broadcaster *Broadcaster

	store       store.JournalStore
	log         *zerolog.Logger
	metrics     *metrics.Metrics
	sendTimeout time.Duration
	welcomeText string
}

// NewHub creates a new hub with empty registry and directory.
func NewHub(opts HubOptions) *Hub {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	welcome := opts.WelcomeText
	if welcome == "" {
		welcome = "connected"
	}
	eviction := opts.EvictionText
	if eviction == "" {
		eviction = "another connection from your address has replaced this session"
	}

	sessions := NewRegistry(eviction, opts.SendTimeout, logger)
	rooms := NewDirectory()

	return &Hub{
		sessions:    sessions,
		rooms:       rooms,
		broadcaster: NewBroadcaster(sessions, rooms, opts.SendTimeout, logger, opts.Metrics),
		store:       opts.Store,
		log:         logger,
		metrics:     opts.Metrics,
		sendTimeout: opts.SendTimeout,
		welcomeText: welcome,
	}
}

// Sessions exposes the session registry.
func (h *Hub) Sessions() *Registry { return h.sessions }

// Rooms exposes the room directory.
func (h *Hub) Rooms() *Directory { return h.rooms }

// Broadcaster exposes the broadcast engine.
func (h *Hub) Broadcaster() *Broadcaster { return h.broadcaster }

// RoomCount returns the live member count of a room.
func (h *Hub) RoomCount(roomID int64) (int, error) {
	count, ok := h.rooms.Count(roomID)
	if !ok {
		return 0, coreError(ErrCodeRoomNotFound, fmt.Sprintf("room %d has no members", roomID))
	}
	return count, nil
}

// OnConnect registers conn, evicting any previous connection from the same origin, and sends the welcome frame.
func (h *Hub) OnConnect(ctx context.Context, conn Connection) error {
	evicted := h.sessions.Register(ctx, conn)
	if evicted != nil {
		h.metrics.Eviction()
		h.record(ctx, store.SessionEvent{
			SessionID: evicted.ID(),
			Origin:    conn.RemoteOrigin(),
			Kind:      store.EventEvict,
			Detail:    "replaced by " + conn.ID(),
		})
		for _, rc := range h.rooms.LeaveAll(evicted.ID()) {
			h.log.Info().
				Str("session_id", evicted.ID()).
				Int64("room_id", rc.RoomID).
				Int("count", rc.Count).
				Msg("evicted session removed from room")
			h.broadcaster.SendRoomCountUpdate(ctx, rc.RoomID, rc.Count)
		}
	}
	h.refreshGauges()

	h.log.Info().Str("session_id", conn.ID()).Str("origin", conn.RemoteOrigin()).Msg("session connected")
	h.record(ctx, store.SessionEvent{
		SessionID: conn.ID(),
		Origin:    conn.RemoteOrigin(),
		Kind:      store.EventConnect,
	})

	if err := h.sendDirect(ctx, conn, []byte(h.welcomeText)); err != nil {
		return fmt.Errorf("send welcome: %w", err)
	}
	return nil
}

// OnMessage applies one inbound frame. A malformed frame is reported as an error wrapping
// proto.ErrMalformedMessage and changes nothing; the connection stays open.
func (h *Hub) OnMessage(ctx context.Context, conn Connection, raw []byte) error {
	id := conn.ID()
	if _, ok := h.sessions.Lookup(id); !ok {
		return ErrUnknownSession
	}

	msg, err := proto.DecodeChatMessage(raw)
	if err != nil {
		h.metrics.Malformed()
		return err
	}
	h.metrics.Inbound(string(msg.MeetingType))
	h.log.Debug().Str("session_id", id).Bytes("payload", raw).Msg("message received")

	switch msg.MeetingType {
	case proto.MeetingTypeJoin:
		if !h.sessions.SetIdentity(id, msg.Username) {
			return ErrUnknownSession
		}
		count := h.rooms.Join(msg.ChatRoomID, id)
		// an eviction may have purged the session after the lookup above
		if _, ok := h.sessions.Lookup(id); !ok {
			h.rooms.Leave(msg.ChatRoomID, id)
			return ErrUnknownSession
		}
		h.log.Info().
			Str("session_id", id).
			Str("username", msg.Username).
			Int64("room_id", msg.ChatRoomID).
			Int("count", count).
			Msg("joined room")
		h.recordRoom(ctx, conn, store.EventJoin, msg.ChatRoomID, msg.Username)
		h.broadcaster.SendRoomCountUpdate(ctx, msg.ChatRoomID, count)

	case proto.MeetingTypeLeave:
		before, _ := h.rooms.Count(msg.ChatRoomID)
		count := h.rooms.Leave(msg.ChatRoomID, id)
		h.log.Info().
			Str("session_id", id).
			Int64("room_id", msg.ChatRoomID).
			Int("before", before).
			Int("count", count).
			Msg("left room")
		h.recordRoom(ctx, conn, store.EventLeave, msg.ChatRoomID, msg.Username)
		h.broadcaster.SendRoomCountUpdate(ctx, msg.ChatRoomID, count)

	case proto.MeetingTypeTalk:
		// relay only
	}
	h.refreshGauges()

	if msg.Username == "" {
		if name, ok := h.sessions.Identity(id); ok {
			msg.Username = name
		}
	}

	payload, err := proto.EncodeChatMessage(msg)
	if err != nil {
		return fmt.Errorf("encode chat message: %w", err)
	}
	h.broadcaster.BroadcastToRoom(ctx, msg.ChatRoomID, payload)
	return nil
}

// OnDisconnect removes conn from every room, announces the new counts and forgets the session.
// Safe to call more than once.
func (h *Hub) OnDisconnect(ctx context.Context, conn Connection, reason string) {
	id := conn.ID()
	info, known := h.sessions.Info(id)

	for _, rc := range h.rooms.LeaveAll(id) {
		h.log.Info().
			Str("session_id", id).
			Int64("room_id", rc.RoomID).
			Int("count", rc.Count).
			Msg("disconnect removed session from room")
		h.broadcaster.SendRoomCountUpdate(ctx, rc.RoomID, rc.Count)
	}

	if h.sessions.Cleanup(conn) {
		h.record(ctx, store.SessionEvent{
			SessionID: id,
			Origin:    info.Origin,
			Kind:      store.EventDisconnect,
			Username:  info.Identity,
			Detail:    reason,
		})
	}
	h.refreshGauges()

	h.log.Info().
		Str("session_id", id).
		Bool("registered", known).
		Str("reason", reason).
		Msg("session disconnected")
}

// CloseAll closes every registered connection in parallel and waits for the close handshakes.
// Used on shutdown.
func (h *Hub) CloseAll(code CloseCode, reason string) {
	var wg sync.WaitGroup
	for _, conn := range h.sessions.Connections() {
		wg.Add(1)
		go func(conn Connection) {
			defer wg.Done()
			if err := conn.Close(code, reason); err != nil {
				h.log.Debug().Err(err).Str("session_id", conn.ID()).Msg("close session")
			}
		}(conn)
	}
	wg.Wait()
}

func (h *Hub) sendDirect(ctx context.Context, conn Connection, payload []byte) error {
	if h.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.sendTimeout)
		defer cancel()
	}
	return conn.Send(ctx, payload)
}

func (h *Hub) refreshGauges() {
	h.metrics.SetSessions(h.sessions.Count())
	h.metrics.SetRooms(h.rooms.Len())
}
