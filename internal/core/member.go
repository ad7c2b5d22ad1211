package core

import "time"

// Member is a connection's presence in a room.
type Member struct {
	ConnectionID string
	DisplayName  string
	JoinedAt     time.Time
}
