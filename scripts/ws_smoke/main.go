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

	"github.com/vovakirdan/wireroom-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "display name to join with")
	room := flag.String("room", "general", "room id")
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

	send := func(typ string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	if err := send(proto.InboundJoinRoom, proto.JoinRoomData{RoomID: *room, Username: *user}); err != nil {
		return err
	}
	stroke := []map[string]any{
		{"x": 0, "y": 0, "color": "#000", "width": 2},
		{"x": 10, "y": 10, "color": "#000", "width": 2},
	}
	if err := send(proto.InboundWhiteboardDraw, stroke); err != nil {
		return err
	}
	if err := send(proto.InboundSendMessage, proto.SendMessageData{RoomID: *room, Sender: *user, Text: *text}); err != nil {
		return err
	}

	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received: type=%s room=%s version=%d", outbound.Type, outbound.Room, outbound.Version)
		if outbound.Revision != 0 {
			fmt.Printf(" revision=%d", outbound.Revision)
		}
		fmt.Println()

		if outbound.Error != nil {
			fmt.Printf("Error: %s: %s\n", outbound.Error.Code, outbound.Error.Msg)
			continue
		}

		raw, err := json.Marshal(outbound.Data)
		if err != nil {
			return fmt.Errorf("marshal outbound data: %w", err)
		}

		switch outbound.Type {
		case "message:new":
			var msg proto.Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				fmt.Printf("Raw data: %s\n", string(raw))
				return fmt.Errorf("unmarshal message: %w", err)
			}
			fmt.Printf("Message: sender=%s text=%q ts=%d\n", msg.Sender, msg.Text, msg.Timestamp)
			return nil
		case "users:update":
			var users []proto.User
			if err := json.Unmarshal(raw, &users); err == nil {
				fmt.Printf("Users: %d in room\n", len(users))
			}
		case "whiteboard:sync":
			var strokes []json.RawMessage
			if err := json.Unmarshal(raw, &strokes); err == nil {
				fmt.Printf("Whiteboard: %d strokes\n", len(strokes))
			}
		default:
			// keep looping for the chat echo
		}
	}
}
