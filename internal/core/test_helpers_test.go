package core

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/vovakirdan/roombroker/internal/proto"
)

var errBrokenPipe = errors.New("broken pipe")

// fakeConn records every frame sent to it. Sends fail once fail is set.
type fakeConn struct {
	id     string
	origin string

	mu          sync.Mutex
	frames      [][]byte
	fail        bool
	closed      bool
	closeCode   CloseCode
	closeReason string
}

func newFakeConn(id, origin string) *fakeConn {
	return &fakeConn{id: id, origin: origin}
}

func (c *fakeConn) ID() string           { return c.id }
func (c *fakeConn) RemoteOrigin() string { return c.origin }

func (c *fakeConn) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail || c.closed {
		return errBrokenPipe
	}
	c.frames = append(c.frames, append([]byte(nil), payload...))
	return nil
}

func (c *fakeConn) Close(code CloseCode, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	return nil
}

func (c *fakeConn) setFail(fail bool) {
	c.mu.Lock()
	c.fail = fail
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() (bool, CloseCode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.closeCode
}

func (c *fakeConn) sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

// counts returns the ROOM_COUNT_UPDATE notices received for roomID, in order.
func (c *fakeConn) counts(t *testing.T, roomID int64) []int {
	t.Helper()

	var out []int
	for _, frame := range c.sent() {
		var notice proto.RoomCountUpdate
		if err := json.Unmarshal(frame, &notice); err != nil {
			continue
		}
		if notice.Type == proto.OutboundTypeRoomCountUpdate && notice.ChatRoomID == roomID {
			out = append(out, notice.Count)
		}
	}
	return out
}

// chats returns the relayed chat messages received, in order.
func (c *fakeConn) chats(t *testing.T) []proto.ChatMessage {
	t.Helper()

	var out []proto.ChatMessage
	for _, frame := range c.sent() {
		var msg proto.ChatMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			continue
		}
		if msg.MeetingType.Valid() {
			out = append(out, msg)
		}
	}
	return out
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
