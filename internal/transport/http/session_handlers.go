package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roombroker/internal/core"
	"github.com/vovakirdan/roombroker/internal/store"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// SessionHandlers exposes live sessions and the session journal.
type SessionHandlers struct {
	hub     *core.Hub
	journal store.JournalStore
	log     *zerolog.Logger
}

// NewSessionHandlers creates a new session handlers instance. journal may be nil.
func NewSessionHandlers(hub *core.Hub, journal store.JournalStore, logger *zerolog.Logger) *SessionHandlers {
	return &SessionHandlers{
		hub:     hub,
		journal: journal,
		log:     logger,
	}
}

// SessionResponse represents a live session in API responses.
type SessionResponse struct {
	SessionID string  `json:"sessionId"`
	Origin    string  `json:"origin"`
	Username  string  `json:"username,omitempty"`
	Rooms     []int64 `json:"rooms"`
}

// EventResponse represents a journal row in API responses.
type EventResponse struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"sessionId"`
	Origin     string    `json:"origin"`
	Kind       string    `json:"kind"`
	ChatRoomID *int64    `json:"chatRoomId,omitempty"`
	Username   string    `json:"username,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ListSessions returns every registered session with its room memberships.
// GET /api/sessions
func (h *SessionHandlers) ListSessions(c *gin.Context) {
	infos := h.hub.Sessions().Snapshot()

	response := make([]SessionResponse, 0, len(infos))
	for _, info := range infos {
		rooms := h.hub.Rooms().RoomsOf(info.ID)
		if rooms == nil {
			rooms = []int64{}
		}
		response = append(response, SessionResponse{
			SessionID: info.ID,
			Origin:    info.Origin,
			Username:  info.Identity,
			Rooms:     rooms,
		})
	}

	c.JSON(http.StatusOK, response)
}

// ListEvents returns the newest journal events.
// GET /api/sessions/events?limit=N
// GET /api/sessions/events?session=ID returns one session's history in order.
func (h *SessionHandlers) ListEvents(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "journal disabled"})
		return
	}

	var (
		events []store.SessionEvent
		err    error
	)
	if sessionID := c.Query("session"); sessionID != "" {
		events, err = h.journal.ListSessionEventsFor(c.Request.Context(), sessionID)
	} else {
		limit := defaultEventLimit
		if raw := c.Query("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit", Code: core.ErrCodeBadRequest})
				return
			}
			if limit > maxEventLimit {
				limit = maxEventLimit
			}
		}
		events, err = h.journal.ListSessionEvents(c.Request.Context(), limit)
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list session events")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		response = append(response, EventResponse{
			ID:         ev.ID,
			SessionID:  ev.SessionID,
			Origin:     ev.Origin,
			Kind:       string(ev.Kind),
			ChatRoomID: ev.RoomID,
			Username:   ev.Username,
			Detail:     ev.Detail,
			CreatedAt:  ev.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, response)
}
