package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/roombroker/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "username")
	room := flag.Int64("room", 1, "chat room id to join")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := wsjson.Write(ctx, conn, proto.ChatMessage{
		MeetingType: proto.MeetingTypeJoin,
		ChatRoomID:  *room,
		Username:    *user,
	}); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	fmt.Printf("Connected to %s as %s in room %d\n", *addr, *user, *room)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *room, *user)

	// best effort LEAVE so peers see the count drop before the close
	_ = wsjson.Write(context.WithoutCancel(ctx), conn, proto.ChatMessage{
		MeetingType: proto.MeetingTypeLeave,
		ChatRoomID:  *room,
		Username:    *user,
	})

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			case websocket.StatusPolicyViolation:
				fmt.Println("session replaced by another connection from this address")
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		var notice proto.RoomCountUpdate
		if err := json.Unmarshal(raw, &notice); err == nil && notice.Type == proto.OutboundTypeRoomCountUpdate {
			fmt.Printf("[room %d] %d online\n", notice.ChatRoomID, notice.Count)
			continue
		}

		var msg proto.ChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil || !msg.MeetingType.Valid() {
			// welcome and eviction notices are plain text
			fmt.Println(string(raw))
			continue
		}

		switch msg.MeetingType {
		case proto.MeetingTypeTalk:
			fmt.Printf("[room %d] %s: %s\n", msg.ChatRoomID, msg.Username, msg.Message)
		case proto.MeetingTypeJoin:
			fmt.Printf("[room %d] %s joined\n", msg.ChatRoomID, msg.Username)
		case proto.MeetingTypeLeave:
			fmt.Printf("[room %d] %s left\n", msg.ChatRoomID, msg.Username)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, room int64, user string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			msg := proto.ChatMessage{
				MeetingType: proto.MeetingTypeTalk,
				ChatRoomID:  room,
				Username:    user,
				Message:     text,
			}
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
