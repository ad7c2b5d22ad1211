package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wireroom-server/internal/core"
	"github.com/vovakirdan/wireroom-server/internal/proto"
)

const snapshotTimeout = 5 * time.Second

// roomDirectory is the read side of the hub used by the REST handlers.
type roomDirectory interface {
	Rooms() []core.RoomInfo
	Snapshot(ctx context.Context, roomID string) (core.RoomSnapshot, error)
}

// RoomHandlers provides read-only HTTP handlers for room inspection.
type RoomHandlers struct {
	rooms roomDirectory
	log   *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(rooms roomDirectory, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		rooms: rooms,
		log:   logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RoomSummary is one entry of the room list.
type RoomSummary struct {
	ID      string `json:"id"`
	Members int    `json:"members"`
	Version uint64 `json:"version"`
}

// MemberResponse describes a room member.
type MemberResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	JoinedAt string `json:"joined_at"`
}

// RoomResponse is the full state of a room.
type RoomResponse struct {
	ID           string                  `json:"id"`
	Version      uint64                  `json:"version"`
	Members      []MemberResponse        `json:"members"`
	Strokes      []core.Stroke           `json:"strokes"`
	Tasks        map[string][]proto.Task `json:"tasks"`
	TaskRevision uint64                  `json:"task_revision"`
	Messages     []proto.Message         `json:"messages"`
}

// ListRooms returns every active room.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	infos := h.rooms.Rooms()
	out := make([]RoomSummary, 0, len(infos))
	for _, info := range infos {
		out = append(out, RoomSummary{ID: info.ID, Members: info.Members, Version: info.Version})
	}
	c.JSON(http.StatusOK, out)
}

// GetRoom returns a room snapshot taken in the room's own order.
// GET /api/rooms/:id
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	roomID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), snapshotTimeout)
	defer cancel()

	snap, err := h.rooms.Snapshot(ctx, roomID)
	if err != nil {
		if errors.Is(err, core.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found", Code: core.ErrCodeRoomNotFound})
			return
		}
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to snapshot room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: core.ErrCodeInternal})
		return
	}

	members := make([]MemberResponse, 0, len(snap.Members))
	for _, m := range snap.Members {
		members = append(members, MemberResponse{
			ID:       m.ConnectionID,
			Name:     m.DisplayName,
			JoinedAt: m.JoinedAt.UTC().Format(time.RFC3339),
		})
	}
	messages := make([]proto.Message, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		messages = append(messages, messageToProto(m))
	}
	strokes := snap.Strokes
	if strokes == nil {
		strokes = []core.Stroke{}
	}

	c.JSON(http.StatusOK, RoomResponse{
		ID:           snap.ID,
		Version:      snap.Version,
		Members:      members,
		Strokes:      strokes,
		Tasks:        columnsToProto(snap.Tasks),
		TaskRevision: snap.TaskRevision,
		Messages:     messages,
	})
}
