package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wireroom-server/internal/config"
	"github.com/vovakirdan/wireroom-server/internal/core"
	"github.com/vovakirdan/wireroom-server/internal/proto"
)

// testOutbound mirrors proto.Outbound with the payload left raw.
type testOutbound struct {
	Type     string          `json:"type"`
	Room     string          `json:"room"`
	Version  uint64          `json:"version"`
	Revision uint64          `json:"revision"`
	Data     json.RawMessage `json:"data"`
	Error    *proto.Error    `json:"error"`
}

func startTestServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, *core.Hub) {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = ":0"
	if mutate != nil {
		mutate(&cfg)
	}

	logger := zerolog.Nop()
	hub := core.NewHub(core.Options{RoomInboxSize: cfg.RoomInboxSize}, &logger)
	t.Cleanup(hub.Close)

	server := NewServer(hub, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, hub
}

func dialTestServer(t *testing.T, ctx context.Context, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func sendFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil reads frames until one of the given type arrives.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) testOutbound {
	t.Helper()

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	for {
		var out testOutbound
		if err := wsjson.Read(readCtx, conn, &out); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if out.Type == typ {
			return out
		}
	}
}

func joinRoom(t *testing.T, ctx context.Context, conn *websocket.Conn, room, user string) {
	t.Helper()

	sendFrame(t, ctx, conn, proto.InboundJoinRoom, proto.JoinRoomData{RoomID: room, Username: user})
	readUntil(t, ctx, conn, "users:update")
}
