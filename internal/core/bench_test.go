package core

import (
	"context"
	"fmt"
	"testing"
)

// discardConn accepts every frame and drops it.
type discardConn struct {
	id     string
	origin string
}

func (c discardConn) ID() string                         { return c.id }
func (c discardConn) RemoteOrigin() string               { return c.origin }
func (c discardConn) Send(context.Context, []byte) error { return nil }
func (c discardConn) Close(CloseCode, string) error      { return nil }

func benchmarkRoomBroadcast(b *testing.B, recipients int) {
	ctx := context.Background()
	hub := NewHub(HubOptions{})

	for i := range recipients {
		c := discardConn{id: fmt.Sprintf("c%d", i), origin: fmt.Sprintf("origin-%d", i)}
		if err := hub.OnConnect(ctx, c); err != nil {
			b.Fatalf("connect: %v", err)
		}
		hub.Rooms().Join(1, c.ID())
	}

	payload := []byte(`{"meetingType":"TALK","chatRoomId":1,"username":"bench","message":"payload"}`)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		hub.Broadcaster().BroadcastToRoom(ctx, 1, payload)
	}
}

func BenchmarkRoomBroadcast_10(b *testing.B)  { benchmarkRoomBroadcast(b, 10) }
func BenchmarkRoomBroadcast_100(b *testing.B) { benchmarkRoomBroadcast(b, 100) }
func BenchmarkRoomBroadcast_500(b *testing.B) { benchmarkRoomBroadcast(b, 500) }
