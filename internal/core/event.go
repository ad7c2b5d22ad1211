package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventUsersUpdate carries the room's full member list.
	EventUsersUpdate EventKind = iota
	// EventMessageNew delivers one accepted chat message.
	EventMessageNew
	// EventMessagesInitial delivers the chat history to a joining client.
	EventMessagesInitial
	// EventTasksUpdate carries the full task board document.
	EventTasksUpdate
	// EventWhiteboardDraw carries a single new stroke.
	EventWhiteboardDraw
	// EventWhiteboardUndo carries the full stroke list after an undo.
	EventWhiteboardUndo
	// EventWhiteboardRedo carries the full stroke list after a redo.
	EventWhiteboardRedo
	// EventWhiteboardClear signals that the board was wiped.
	EventWhiteboardClear
	// EventWhiteboardSync carries the full stroke list on join or request.
	EventWhiteboardSync
	// EventError notifies a client about a rejected request.
	EventError
)

var eventNames = map[EventKind]string{
	EventUsersUpdate:     "users:update",
	EventMessageNew:      "message:new",
	EventMessagesInitial: "messages:initial",
	EventTasksUpdate:     "tasks:update",
	EventWhiteboardDraw:  "whiteboard:draw",
	EventWhiteboardUndo:  "whiteboard:undo",
	EventWhiteboardRedo:  "whiteboard:redo",
	EventWhiteboardClear: "whiteboard:clear",
	EventWhiteboardSync:  "whiteboard:sync",
	EventError:           "error",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// Droppable reports whether the event may be skipped for a saturated
// connection. Only presence updates qualify; the next one supersedes it.
func (k EventKind) Droppable() bool {
	return k == EventUsersUpdate
}

// Event is sent to clients to describe what happened in a room. Events are
// shared between recipients and must not be modified after creation.
type Event struct {
	Kind     EventKind
	Room     string
	Version  uint64
	Revision uint64 // task board revision, set on EventTasksUpdate

	Members  []Member
	Message  Message
	Messages []Message
	Tasks    Columns
	Stroke   Stroke
	Strokes  []Stroke
	Error    *CoreError
}
