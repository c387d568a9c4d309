package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roombroker/internal/core"
)

// RoomHandlers provides read-only HTTP handlers over live room membership.
type RoomHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub *core.Hub, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub: hub,
		log: logger,
	}
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ChatRoomID int64 `json:"chatRoomId"`
	Count      int   `json:"count"`
}

// ListRooms returns every room that currently has members.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms := h.hub.Rooms().Rooms()

	response := make([]RoomResponse, 0, len(rooms))
	for _, rc := range rooms {
		response = append(response, RoomResponse{ChatRoomID: rc.RoomID, Count: rc.Count})
	}

	h.log.Debug().Int("room_count", len(response)).Msg("rooms listed")
	c.JSON(http.StatusOK, response)
}

// GetRoom returns the live member count of one room.
// GET /api/rooms/:id
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room id", Code: core.ErrCodeBadRequest})
		return
	}

	count, err := h.hub.RoomCount(roomID)
	if err != nil {
		var coreErr *core.CoreError
		if errors.As(err, &coreErr) && coreErr.Code == core.ErrCodeRoomNotFound {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: coreErr.Message, Code: coreErr.Code})
			return
		}
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to get room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, RoomResponse{ChatRoomID: roomID, Count: count})
}
