package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom adds the client to a room and delivers the snapshot.
	CommandJoinRoom CommandKind = iota
	// CommandLeaveRoom removes the client from a room.
	CommandLeaveRoom
	// CommandSendMessage appends a chat message.
	CommandSendMessage
	// CommandTasksGet re-sends the task board to the requester.
	CommandTasksGet
	// CommandTasksReplace adopts a whole task board document.
	CommandTasksReplace
	// CommandTaskAdd creates a task in the todo column.
	CommandTaskAdd
	// CommandTaskMove moves a task to a column and position.
	CommandTaskMove
	// CommandTaskToggle flips a task's done flag.
	CommandTaskToggle
	// CommandTaskDelete removes a task.
	CommandTaskDelete
	// CommandDraw appends a stroke.
	CommandDraw
	// CommandUndo removes the newest stroke.
	CommandUndo
	// CommandRedo restores the last undone stroke.
	CommandRedo
	// CommandClear wipes the whiteboard.
	CommandClear
	// CommandWhiteboardGet re-sends the stroke list to the requester.
	CommandWhiteboardGet
	// CommandSnapshot reads the whole room state.
	CommandSnapshot

	commandReap
)

// TaskOp carries the arguments of a structured task board operation.
type TaskOp struct {
	TaskID string
	Text   string
	Column Column
	Index  int
	// ExpectedRevision, when set, must equal the board revision for the
	// operation to apply.
	ExpectedRevision *uint64
}

// Command represents an action requested by a client. Client is nil for
// internal reads such as CommandSnapshot.
type Command struct {
	Kind        CommandKind
	Room        string
	Client      *Client
	DisplayName string
	Message     Message
	Columns     Columns
	Task        TaskOp
	Stroke      Stroke

	reply chan RoomSnapshot
}

// RoomSnapshot is the complete state of a room at one point of its order.
type RoomSnapshot struct {
	ID           string
	Version      uint64
	Members      []Member
	Strokes      []Stroke
	Tasks        Columns
	TaskRevision uint64
	Messages     []Message
}

// RoomInfo is a cheap summary of a room for listings.
type RoomInfo struct {
	ID      string
	Members int
	Version uint64
}
