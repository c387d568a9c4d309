package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/roombroker/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "username to join with")
	room := flag.Int64("room", 1, "chat room id")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	_, welcome, err := conn.Read(ctx)
	if err != nil {
		return fmt.Errorf("read welcome: %w", err)
	}
	fmt.Printf("Welcome: %s\n", welcome)

	for _, msg := range []proto.ChatMessage{
		{MeetingType: proto.MeetingTypeJoin, ChatRoomID: *room, Username: *user},
		{MeetingType: proto.MeetingTypeTalk, ChatRoomID: *room, Username: *user, Message: *text},
	} {
		if err := wsjson.Write(ctx, conn, msg); err != nil {
			return fmt.Errorf("send %s: %w", msg.MeetingType, err)
		}
	}

	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var notice proto.RoomCountUpdate
		if err := json.Unmarshal(raw, &notice); err == nil && notice.Type == proto.OutboundTypeRoomCountUpdate {
			fmt.Printf("Count: room=%d count=%d\n", notice.ChatRoomID, notice.Count)
			continue
		}

		var msg proto.ChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			fmt.Printf("Raw data: %s\n", raw)
			return fmt.Errorf("unmarshal message: %w", err)
		}
		fmt.Printf("%s: room=%d user=%s text=%q\n", msg.MeetingType, msg.ChatRoomID, msg.Username, msg.Message)
		if msg.MeetingType == proto.MeetingTypeTalk {
			return nil
		}
	}
}
