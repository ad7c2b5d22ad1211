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

	"github.com/vovakirdan/wireroom-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "display name")
	room := flag.String("room", "general", "room to join")
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

	if err := send(ctx, conn, proto.InboundJoinRoom, proto.JoinRoomData{RoomID: *room, Username: *user}); err != nil {
		return err
	}

	fmt.Printf("Connected to %s as %s in room %s\n", *addr, *user, *room)
	fmt.Println("Type messages and press Enter to send. Commands: /add <text>, /toggle <id>, /undo, /redo, /clear. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *room, *user)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	return wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload})
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if outbound.Error != nil {
			fmt.Printf("[error] %s: %s\n", outbound.Error.Code, outbound.Error.Msg)
			continue
		}

		raw, err := json.Marshal(outbound.Data)
		if err != nil {
			log.Printf("marshal outbound data: %v", err)
			continue
		}

		switch outbound.Type {
		case "message:new":
			var msg proto.Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				log.Printf("unmarshal message: %v", err)
				continue
			}
			fmt.Printf("[%s] %s: %s\n", outbound.Room, msg.Sender, msg.Text)
		case "messages:initial":
			var history []proto.Message
			if err := json.Unmarshal(raw, &history); err != nil {
				log.Printf("unmarshal history: %v", err)
				continue
			}
			for _, msg := range history {
				fmt.Printf("[%s] %s: %s\n", outbound.Room, msg.Sender, msg.Text)
			}
		case "users:update":
			var users []proto.User
			if err := json.Unmarshal(raw, &users); err != nil {
				log.Printf("unmarshal users: %v", err)
				continue
			}
			names := make([]string, 0, len(users))
			for _, u := range users {
				names = append(names, u.Name)
			}
			fmt.Printf("[room %s] online: %s\n", outbound.Room, strings.Join(names, ", "))
		case "tasks:update":
			var cols map[string][]proto.Task
			if err := json.Unmarshal(raw, &cols); err != nil {
				log.Printf("unmarshal tasks: %v", err)
				continue
			}
			fmt.Printf("[room %s] tasks rev %d:\n", outbound.Room, outbound.Revision)
			for _, col := range []string{"todo", "inprogress", "done"} {
				for _, t := range cols[col] {
					fmt.Printf("  %-10s %s  %s (%s)\n", col, t.ID, t.Text, t.Status)
				}
			}
		default:
			fmt.Printf("[room %s] %s v%d\n", outbound.Room, outbound.Type, outbound.Version)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, room, user string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	ref := proto.RoomRef{RoomID: room}
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

			var err error
			cmd, arg, _ := strings.Cut(text, " ")
			switch cmd {
			case "/undo":
				err = send(ctx, conn, proto.InboundWhiteboardUndo, ref)
			case "/redo":
				err = send(ctx, conn, proto.InboundWhiteboardRedo, ref)
			case "/clear":
				err = send(ctx, conn, proto.InboundWhiteboardClear, ref)
			case "/add":
				err = send(ctx, conn, proto.InboundTaskAdd, proto.TaskOpData{RoomID: room, Text: arg})
			case "/toggle":
				err = send(ctx, conn, proto.InboundTaskToggle, proto.TaskOpData{RoomID: room, TaskID: arg})
			default:
				err = send(ctx, conn, proto.InboundSendMessage, proto.SendMessageData{RoomID: room, Sender: user, Text: text})
			}
			if err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
