package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roombroker/internal/metrics"
	"github.com/vovakirdan/roombroker/internal/proto"
)

// Broadcaster fans payloads out to room members.
//
// Delivery is at most once and best effort: each recipient is sent to independently, a failed
// send is logged and skipped, and nothing is retried. A failed send never changes membership.
type Broadcaster struct {
	sessions    *Registry
	rooms       *Directory
	sendTimeout time.Duration
	log         *zerolog.Logger
	metrics     *metrics.Metrics
}

// NewBroadcaster builds a broadcaster over the given registry and directory.
// sendTimeout bounds each individual send; zero disables the bound.
func NewBroadcaster(sessions *Registry, rooms *Directory, sendTimeout time.Duration, logger *zerolog.Logger, m *metrics.Metrics) *Broadcaster {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Broadcaster{
		sessions:    sessions,
		rooms:       rooms,
		sendTimeout: sendTimeout,
		log:         logger,
		metrics:     m,
	}
}

// BroadcastToRoom sends payload to a snapshot of roomID's members and returns how many sends succeeded.
// No lock is held while sending.
func (b *Broadcaster) BroadcastToRoom(ctx context.Context, roomID int64, payload []byte) int {
	recipients := b.sessions.Resolve(b.rooms.Members(roomID))

	delivered := 0
	for _, conn := range recipients {
		if err := b.send(ctx, conn, payload); err != nil {
			b.metrics.SendFailed()
			b.log.Error().
				Err(err).
				Str("session_id", conn.ID()).
				Int64("room_id", roomID).
				Msg("broadcast send failed")
			continue
		}
		b.metrics.Delivered()
		delivered++
	}
	return delivered
}

// SendRoomCountUpdate pushes a ROOM_COUNT_UPDATE notice to roomID.
// It does nothing once the room has emptied and been dropped.
func (b *Broadcaster) SendRoomCountUpdate(ctx context.Context, roomID int64, count int) int {
	if _, ok := b.rooms.Count(roomID); !ok {
		return 0
	}

	payload, err := proto.EncodeRoomCountUpdate(roomID, count)
	if err != nil {
		b.log.Error().Err(err).Int64("room_id", roomID).Msg("encode room count update")
		return 0
	}

	delivered := b.BroadcastToRoom(ctx, roomID, payload)
	b.log.Info().Int64("room_id", roomID).Int("count", count).Int("delivered", delivered).Msg("room count update sent")
	return delivered
}

func (b *Broadcaster) send(ctx context.Context, conn Connection, payload []byte) error {
	if b.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.sendTimeout)
		defer cancel()
	}
	if err := conn.Send(ctx, payload); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailure, err)
	}
	return nil
}
