package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/vovakirdan/wireroom-server/internal/core"
	"github.com/vovakirdan/wireroom-server/internal/proto"
)

func testDecoder() *decoder {
	d := newDecoder(3)
	d.newID = func() string { return "generated" }
	return d
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		data    string
		current string
		want    error
	}{
		{name: "unknown type", typ: "whiteboard:erase", data: `{}`, current: "r1", want: errUnknownType},
		{name: "join without room", typ: proto.InboundJoinRoom, data: `{"username":"a"}`, want: errMalformed},
		{name: "join bad json", typ: proto.InboundJoinRoom, data: `[1,2]`, want: errMalformed},
		{name: "blank message", typ: proto.InboundSendMessage, data: `{"roomId":"r1","text":"   "}`, want: errMalformed},
		{name: "message outside room", typ: proto.InboundSendMessage, data: `{"text":"hi"}`, want: errMalformed},
		{name: "draw empty stroke", typ: proto.InboundWhiteboardDraw, data: `[]`, current: "r1", want: errMalformed},
		{name: "draw too many points", typ: proto.InboundWhiteboardDraw, data: `[{"x":1},{"x":2},{"x":3},{"x":4}]`, current: "r1", want: errMalformed},
		{name: "draw negative width", typ: proto.InboundWhiteboardDraw, data: `[{"x":1,"y":1,"width":-1}]`, current: "r1", want: errMalformed},
		{name: "draw not a stroke", typ: proto.InboundWhiteboardDraw, data: `"oops"`, current: "r1", want: errMalformed},
		{name: "tasks without document", typ: proto.InboundTasksUpdate, data: `{"roomId":"r1"}`, want: errMalformed},
		{name: "tasks unknown column", typ: proto.InboundTasksUpdate, data: `{"roomId":"r1","tasks":{"backlog":[]}}`, want: errMalformed},
		{name: "tasks duplicate id", typ: proto.InboundTasksUpdate, data: `{"roomId":"r1","tasks":{"todo":[{"id":"1"}],"done":[{"id":"1"}]}}`, want: errMalformed},
		{name: "add without text", typ: proto.InboundTaskAdd, data: `{"roomId":"r1"}`, want: errMalformed},
		{name: "move to unknown column", typ: proto.InboundTaskMove, data: `{"roomId":"r1","taskId":"1","column":"backlog"}`, want: errMalformed},
		{name: "toggle without id", typ: proto.InboundTaskToggle, data: `{"roomId":"r1"}`, want: errMalformed},
		{name: "room id too long", typ: proto.InboundWhiteboardClear, data: fmt.Sprintf(`{"roomId":%q}`, strings.Repeat("x", maxRoomIDLen+1)), want: errMalformed},
	}

	d := testDecoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.decode(proto.Inbound{Type: tt.typ, Data: json.RawMessage(tt.data)}, tt.current)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecodeResolvesCurrentRoom(t *testing.T) {
	d := testDecoder()

	// Undo frames from browser clients carry the local stroke list.
	cmd, err := d.decode(proto.Inbound{Type: proto.InboundWhiteboardUndo, Data: json.RawMessage(`[[{"x":1}]]`)}, "r1")
	if err != nil {
		t.Fatalf("decode undo: %v", err)
	}
	if cmd.Kind != core.CommandUndo || cmd.Room != "r1" {
		t.Fatalf("unexpected command: %+v", cmd)
	}

	cmd, err = d.decode(proto.Inbound{Type: proto.InboundWhiteboardGet}, "r1")
	if err != nil {
		t.Fatalf("decode get: %v", err)
	}
	if cmd.Kind != core.CommandWhiteboardGet || cmd.Room != "r1" {
		t.Fatalf("unexpected command: %+v", cmd)
	}

	cmd, err = d.decode(proto.Inbound{Type: proto.InboundWhiteboardClear, Data: json.RawMessage(`{"roomId":"r2"}`)}, "r1")
	if err != nil {
		t.Fatalf("decode clear: %v", err)
	}
	if cmd.Room != "r2" {
		t.Fatalf("explicit room should win, got %q", cmd.Room)
	}
}

func TestDecodeDraw(t *testing.T) {
	d := testDecoder()

	cmd, err := d.decode(proto.Inbound{
		Type: proto.InboundWhiteboardDraw,
		Data: json.RawMessage(`{"roomId":"r9","stroke":[{"x":1,"y":2,"color":"#fff","brushSize":5}]}`),
	}, "r1")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cmd.Room != "r9" || len(cmd.Stroke) != 1 || cmd.Stroke[0].Width != 5 {
		t.Fatalf("unexpected command: %+v", cmd)
	}

	cmd, err = d.decode(proto.Inbound{
		Type: proto.InboundWhiteboardDraw,
		Data: json.RawMessage(`[{"x":1,"y":2,"color":"#fff","width":2},{"x":3,"y":4,"color":"#fff","width":2}]`),
	}, "r1")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cmd.Room != "r1" || len(cmd.Stroke) != 2 {
		t.Fatalf("unexpected command: %+v", cmd)
	}
}

func TestDecodeTaskOps(t *testing.T) {
	d := testDecoder()

	cmd, err := d.decode(proto.Inbound{Type: proto.InboundTaskAdd, Data: json.RawMessage(`{"text":" new "}`)}, "r1")
	if err != nil {
		t.Fatalf("decode add: %v", err)
	}
	if cmd.Task.TaskID != "generated" || cmd.Task.Text != "new" || cmd.Task.Index != math.MaxInt {
		t.Fatalf("unexpected add: %+v", cmd.Task)
	}

	cmd, err = d.decode(proto.Inbound{
		Type: proto.InboundTaskMove,
		Data: json.RawMessage(`{"taskId":"1","column":"done","index":0,"expectedRevision":4}`),
	}, "r1")
	if err != nil {
		t.Fatalf("decode move: %v", err)
	}
	if cmd.Task.Column != core.ColumnDone || cmd.Task.Index != 0 {
		t.Fatalf("unexpected move: %+v", cmd.Task)
	}
	if cmd.Task.ExpectedRevision == nil || *cmd.Task.ExpectedRevision != 4 {
		t.Fatalf("expected revision 4, got %v", cmd.Task.ExpectedRevision)
	}
}

func TestDecodeTasksUpdateFillsColumns(t *testing.T) {
	d := testDecoder()

	cmd, err := d.decode(proto.Inbound{
		Type: proto.InboundTasksUpdate,
		Data: json.RawMessage(`{"roomId":"r1","tasks":{"todo":[{"id":"1","text":"a"}]},"username":"alice"}`),
	}, "")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cmd.Kind != core.CommandTasksReplace {
		t.Fatalf("unexpected kind %v", cmd.Kind)
	}
	for _, c := range core.BoardColumns {
		if _, ok := cmd.Columns[c]; !ok {
			t.Fatalf("column %s missing", c)
		}
	}
	if got := cmd.Columns[core.ColumnTodo]; len(got) != 1 || got[0].Column != core.ColumnTodo {
		t.Fatalf("unexpected todo column: %+v", got)
	}
}

func TestOutboundFromEvent(t *testing.T) {
	out := outboundFromEvent(&core.Event{Kind: core.EventWhiteboardUndo, Room: "r1", Version: 7})
	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"data":[]`) || !strings.Contains(string(data), `"type":"whiteboard:undo"`) {
		t.Fatalf("unexpected undo frame: %s", data)
	}

	out = outboundFromEvent(&core.Event{Kind: core.EventTasksUpdate, Room: "r1", Revision: 3, Tasks: core.Columns{}})
	cols, ok := out.Data.(map[string][]proto.Task)
	if !ok || len(cols) != len(core.BoardColumns) || out.Revision != 3 {
		t.Fatalf("unexpected tasks frame: %+v", out)
	}

	out = outboundFromEvent(&core.Event{Kind: core.EventError, Room: "r1"})
	if out.Type != proto.OutboundTypeError || out.Error == nil || out.Error.Code != core.ErrCodeInternal {
		t.Fatalf("unexpected error frame: %+v", out)
	}
}
