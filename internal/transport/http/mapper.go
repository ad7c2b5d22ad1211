package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/vovakirdan/wireroom-server/internal/core"
	"github.com/vovakirdan/wireroom-server/internal/proto"
)

const maxRoomIDLen = 128

var (
	errMalformed   = errors.New("malformed payload")
	errUnknownType = errors.New("unknown message type")
)

// decodeFunc turns one inbound payload into a room command. current is the
// room the connection is in, used when the payload names none.
type decodeFunc func(d *decoder, data json.RawMessage, current string) (*core.Command, error)

var inboundTable = map[string]decodeFunc{
	proto.InboundJoinRoom:        decodeJoin,
	proto.InboundLeaveRoom:       decodeLeave,
	proto.InboundSendMessage:     decodeSendMessage,
	proto.InboundTasksGet:        decodeRoomOnly(core.CommandTasksGet),
	proto.InboundTasksUpdate:     decodeTasksUpdate,
	proto.InboundTaskAdd:         decodeTaskOp(core.CommandTaskAdd),
	proto.InboundTaskMove:        decodeTaskOp(core.CommandTaskMove),
	proto.InboundTaskToggle:      decodeTaskOp(core.CommandTaskToggle),
	proto.InboundTaskDelete:      decodeTaskOp(core.CommandTaskDelete),
	proto.InboundWhiteboardDraw:  decodeDraw,
	proto.InboundWhiteboardUndo:  decodeRoomOnly(core.CommandUndo),
	proto.InboundWhiteboardRedo:  decodeRoomOnly(core.CommandRedo),
	proto.InboundWhiteboardClear: decodeRoomOnly(core.CommandClear),
	proto.InboundWhiteboardGet:   decodeRoomOnly(core.CommandWhiteboardGet),
}

// decoder validates inbound payloads against the configured limits.
type decoder struct {
	maxStrokePoints int
	newID           func() string
}

func newDecoder(maxStrokePoints int) *decoder {
	return &decoder{maxStrokePoints: maxStrokePoints, newID: uuid.NewString}
}

func (d *decoder) decode(in proto.Inbound, current string) (*core.Command, error) {
	fn, ok := inboundTable[in.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownType, in.Type)
	}
	return fn(d, in.Data, current)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errMalformed, fmt.Sprintf(format, args...))
}

func resolveRoom(explicit, current string) (string, error) {
	room := explicit
	if strings.TrimSpace(room) == "" {
		room = current
	}
	if strings.TrimSpace(room) == "" {
		return "", malformed("roomId is required")
	}
	if len(room) > maxRoomIDLen {
		return "", malformed("roomId longer than %d bytes", maxRoomIDLen)
	}
	return room, nil
}

// isObject reports whether raw holds a JSON object. Several events accept
// either an object with roomId or a bare value from older clients.
func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func decodeJoin(_ *decoder, data json.RawMessage, _ string) (*core.Command, error) {
	var join proto.JoinRoomData
	if err := json.Unmarshal(data, &join); err != nil {
		return nil, malformed("join-room: %v", err)
	}
	room, err := resolveRoom(join.RoomID, "")
	if err != nil {
		return nil, err
	}
	return &core.Command{
		Kind:        core.CommandJoinRoom,
		Room:        room,
		DisplayName: strings.TrimSpace(join.Username),
	}, nil
}

func decodeLeave(_ *decoder, _ json.RawMessage, current string) (*core.Command, error) {
	return &core.Command{Kind: core.CommandLeaveRoom, Room: current}, nil
}

func decodeSendMessage(_ *decoder, data json.RawMessage, current string) (*core.Command, error) {
	var msg proto.SendMessageData
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, malformed("send-message: %v", err)
	}
	room, err := resolveRoom(msg.RoomID, current)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg.Text) == "" {
		return nil, malformed("text is required")
	}
	return &core.Command{
		Kind: core.CommandSendMessage,
		Room: room,
		Message: core.Message{
			Sender: strings.TrimSpace(msg.Sender),
			Text:   msg.Text,
		},
	}, nil
}

func decodeRoomOnly(kind core.CommandKind) decodeFunc {
	return func(_ *decoder, data json.RawMessage, current string) (*core.Command, error) {
		var ref proto.RoomRef
		if isObject(data) {
			if err := json.Unmarshal(data, &ref); err != nil {
				return nil, malformed("%v", err)
			}
		}
		room, err := resolveRoom(ref.RoomID, current)
		if err != nil {
			return nil, err
		}
		return &core.Command{Kind: kind, Room: room}, nil
	}
}

func decodeTasksUpdate(_ *decoder, data json.RawMessage, current string) (*core.Command, error) {
	var upd proto.TasksUpdateData
	if err := json.Unmarshal(data, &upd); err != nil {
		return nil, malformed("tasks:update: %v", err)
	}
	room, err := resolveRoom(upd.RoomID, current)
	if err != nil {
		return nil, err
	}
	if upd.Tasks == nil {
		return nil, malformed("tasks is required")
	}

	cols := core.EmptyColumns()
	for name, tasks := range upd.Tasks {
		col := core.Column(name)
		converted := make([]core.Task, 0, len(tasks))
		for _, t := range tasks {
			converted = append(converted, core.Task{ID: t.ID, Text: t.Text, Done: t.Done, Status: t.Status, Column: col})
		}
		cols[col] = converted
	}
	if err := core.ValidateColumns(cols); err != nil {
		return nil, malformed("%v", err)
	}
	return &core.Command{Kind: core.CommandTasksReplace, Room: room, Columns: cols}, nil
}

func decodeTaskOp(kind core.CommandKind) decodeFunc {
	return func(d *decoder, data json.RawMessage, current string) (*core.Command, error) {
		var op proto.TaskOpData
		if err := json.Unmarshal(data, &op); err != nil {
			return nil, malformed("%v", err)
		}
		room, err := resolveRoom(op.RoomID, current)
		if err != nil {
			return nil, err
		}

		task := core.TaskOp{
			TaskID:           strings.TrimSpace(op.TaskID),
			Text:             strings.TrimSpace(op.Text),
			Column:           core.Column(op.Column),
			Index:            math.MaxInt,
			ExpectedRevision: op.ExpectedRevision,
		}
		if op.Index != nil {
			task.Index = *op.Index
		}

		switch kind {
		case core.CommandTaskAdd:
			if task.Text == "" {
				return nil, malformed("text is required")
			}
			if task.TaskID == "" {
				task.TaskID = d.newID()
			}
		case core.CommandTaskMove:
			if !task.Column.Valid() {
				return nil, malformed("unknown column %q", op.Column)
			}
			fallthrough
		default:
			if task.TaskID == "" {
				return nil, malformed("taskId is required")
			}
		}
		return &core.Command{Kind: kind, Room: room, Task: task}, nil
	}
}

func decodeDraw(d *decoder, data json.RawMessage, current string) (*core.Command, error) {
	var (
		roomID string
		raw    = data
	)
	if isObject(data) {
		var wrapped proto.StrokeData
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, malformed("whiteboard:draw: %v", err)
		}
		roomID, raw = wrapped.RoomID, wrapped.Stroke
	}
	room, err := resolveRoom(roomID, current)
	if err != nil {
		return nil, err
	}

	var stroke core.Stroke
	if err := json.Unmarshal(raw, &stroke); err != nil {
		return nil, malformed("stroke: %v", err)
	}
	if len(stroke) == 0 {
		return nil, malformed("stroke has no points")
	}
	if d.maxStrokePoints > 0 && len(stroke) > d.maxStrokePoints {
		return nil, malformed("stroke has %d points, limit is %d", len(stroke), d.maxStrokePoints)
	}
	for i, p := range stroke {
		if p.Width < 0 || math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return nil, malformed("invalid point %d", i)
		}
	}
	return &core.Command{Kind: core.CommandDraw, Room: room, Stroke: stroke}, nil
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	out := proto.Outbound{
		Type:    event.Kind.String(),
		Room:    event.Room,
		Version: event.Version,
	}

	switch event.Kind {
	case core.EventUsersUpdate:
		users := make([]proto.User, 0, len(event.Members))
		for _, m := range event.Members {
			users = append(users, proto.User{ID: m.ConnectionID, Name: m.DisplayName})
		}
		out.Data = users
	case core.EventMessageNew:
		out.Data = messageToProto(event.Message)
	case core.EventMessagesInitial:
		messages := make([]proto.Message, 0, len(event.Messages))
		for _, m := range event.Messages {
			messages = append(messages, messageToProto(m))
		}
		out.Data = messages
	case core.EventTasksUpdate:
		out.Revision = event.Revision
		out.Data = columnsToProto(event.Tasks)
	case core.EventWhiteboardDraw:
		out.Data = event.Stroke
	case core.EventWhiteboardUndo, core.EventWhiteboardRedo, core.EventWhiteboardSync:
		strokes := event.Strokes
		if strokes == nil {
			strokes = []core.Stroke{}
		}
		out.Data = strokes
	case core.EventWhiteboardClear:
		// room id only
	case core.EventError:
		out.Type = proto.OutboundTypeError
		if event.Error == nil {
			out.Error = &proto.Error{Code: core.ErrCodeInternal, Msg: "unknown error"}
		} else {
			out.Error = &proto.Error{Code: event.Error.Code, Msg: event.Error.Message}
		}
	}
	return out
}

func messageToProto(m core.Message) proto.Message {
	return proto.Message{
		Sender:    m.Sender,
		Text:      m.Text,
		Timestamp: m.Timestamp.UnixMilli(),
	}
}

func columnsToProto(cols core.Columns) map[string][]proto.Task {
	out := make(map[string][]proto.Task, len(core.BoardColumns))
	for _, c := range core.BoardColumns {
		tasks := make([]proto.Task, 0, len(cols[c]))
		for _, t := range cols[c] {
			tasks = append(tasks, proto.Task{
				ID:     t.ID,
				Text:   t.Text,
				Done:   t.Done,
				Status: t.Status,
				Column: string(t.Column),
			})
		}
		out[string(c)] = tasks
	}
	return out
}
