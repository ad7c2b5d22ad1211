package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundJoinRoom        = "join-room"
	InboundLeaveRoom       = "leave-room"
	InboundSendMessage     = "send-message"
	InboundTasksGet        = "tasks:get"
	InboundTasksUpdate     = "tasks:update"
	InboundTaskAdd         = "tasks:add"
	InboundTaskMove        = "tasks:move"
	InboundTaskToggle      = "tasks:toggle"
	InboundTaskDelete      = "tasks:delete"
	InboundWhiteboardDraw  = "whiteboard:draw"
	InboundWhiteboardUndo  = "whiteboard:undo"
	InboundWhiteboardRedo  = "whiteboard:redo"
	InboundWhiteboardClear = "whiteboard:clear"
	InboundWhiteboardGet   = "whiteboard:get"

	OutboundTypeError = "error"
)

// JoinRoomData requests to join a room.
type JoinRoomData struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

// RoomRef is any payload that only names a room.
type RoomRef struct {
	RoomID string `json:"roomId"`
}

// SendMessageData is a chat message from the client.
type SendMessageData struct {
	RoomID string `json:"roomId"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// TasksUpdateData replaces a whole task board.
type TasksUpdateData struct {
	RoomID   string            `json:"roomId"`
	Tasks    map[string][]Task `json:"tasks"`
	Username string            `json:"username"`
}

// TaskOpData is the payload of the structured task operations. Fields that do
// not apply to an operation are ignored.
type TaskOpData struct {
	RoomID           string  `json:"roomId"`
	TaskID           string  `json:"taskId"`
	Text             string  `json:"text"`
	Column           string  `json:"column"`
	Index            *int    `json:"index,omitempty"`
	ExpectedRevision *uint64 `json:"expectedRevision,omitempty"`
}

// StrokeData wraps a stroke with an explicit room. Clients may also send the
// bare point array.
type StrokeData struct {
	RoomID string          `json:"roomId"`
	Stroke json.RawMessage `json:"stroke"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type     string `json:"type"`
	Room     string `json:"room,omitempty"`
	Version  uint64 `json:"version,omitempty"`
	Revision uint64 `json:"revision,omitempty"`
	Data     any    `json:"data,omitempty"`
	Error    *Error `json:"error,omitempty"`
}

// User is one entry of users:update.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Message is a chat message as seen by clients.
type Message struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Task is a task board card as seen by clients.
type Task struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Done   bool   `json:"done"`
	Status string `json:"status,omitempty"`
	Column string `json:"column,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
