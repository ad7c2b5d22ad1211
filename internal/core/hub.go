package core

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInboxSize is the room command queue used when none is configured.
const DefaultInboxSize = 128

// ErrRoomNotFound is returned by read-only lookups for unknown rooms.
var ErrRoomNotFound = errors.New("room not found")

// Options tunes hub and room behaviour.
type Options struct {
	RoomInboxSize    int
	ChatHistoryLimit int
	// RoomIdleTTL reaps rooms empty for this long. Zero keeps them until shutdown.
	RoomIdleTTL time.Duration
}

// Hub is the room registry. It creates rooms on first use, tracks which room
// each connection belongs to and routes commands to the owning room actor.
// Rooms never share a lock, so commands for different rooms run in parallel.
type Hub struct {
	opts Options
	log  *zerolog.Logger

	mu       sync.RWMutex
	rooms    map[string]*Room
	clients  map[string]*Client
	memberOf map[string]string
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a new hub. A nil logger disables logging.
func NewHub(opts Options, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		opts:     opts,
		log:      logger,
		rooms:    make(map[string]*Room),
		clients:  make(map[string]*Client),
		memberOf: make(map[string]string),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run blocks until ctx is cancelled, then stops every room actor.
func (h *Hub) Run(ctx context.Context) {
	if h.opts.RoomIdleTTL > 0 {
		go h.reapLoop(ctx)
	}
	<-ctx.Done()
	h.Close()
}

// Close stops all rooms, waits for their actors to exit and kicks every
// registered connection. Safe to call more than once.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	count := len(h.rooms)
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	h.cancel()
	h.wg.Wait()
	// Room state is gone; connections still open have nothing left to sync.
	for _, c := range clients {
		c.Kick(KickShutdown)
	}
	h.log.Info().Int("rooms", count).Int("clients", len(clients)).Msg("hub stopped")
}

// RegisterClient records a live connection.
func (h *Hub) RegisterClient(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug().Str("client_id", c.ID).Int("clients", n).Msg("client registered")
}

// UnregisterClient removes the connection from its room and forgets it.
func (h *Hub) UnregisterClient(c *Client) {
	h.Leave(context.Background(), c)
	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()
}

// Join moves c into roomID, creating the room if needed. A connection
// belongs to at most one room, so any previous room is left first.
func (h *Hub) Join(ctx context.Context, c *Client, roomID, displayName string) error {
	h.mu.Lock()
	prev, had := h.memberOf[c.ID]
	h.memberOf[c.ID] = roomID
	h.mu.Unlock()

	if had && prev != roomID {
		if err := h.Dispatch(ctx, &Command{Kind: CommandLeaveRoom, Room: prev, Client: c}); err != nil {
			h.log.Warn().Err(err).Str("room_id", prev).Str("client_id", c.ID).Msg("leave previous room")
		}
	}
	return h.Dispatch(ctx, &Command{Kind: CommandJoinRoom, Room: roomID, Client: c, DisplayName: displayName})
}

// Leave removes c from whatever room it is in. It is a no-op when c is in no room.
func (h *Hub) Leave(ctx context.Context, c *Client) {
	h.mu.Lock()
	roomID, had := h.memberOf[c.ID]
	delete(h.memberOf, c.ID)
	h.mu.Unlock()

	if !had {
		return
	}
	if err := h.Dispatch(ctx, &Command{Kind: CommandLeaveRoom, Room: roomID, Client: c}); err != nil {
		h.log.Debug().Err(err).Str("room_id", roomID).Str("client_id", c.ID).Msg("leave dispatch")
	}
}

// CurrentRoom returns the room c last joined.
func (h *Hub) CurrentRoom(c *Client) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	roomID, ok := h.memberOf[c.ID]
	return roomID, ok
}

// Dispatch queues cmd on its room, creating the room when it does not exist.
// Commands from one caller are applied in the order they were dispatched.
func (h *Hub) Dispatch(ctx context.Context, cmd *Command) error {
	if cmd == nil || cmd.Room == "" {
		return ErrBadRequest
	}
	for {
		room, err := h.room(cmd.Room, true)
		if err != nil {
			return err
		}
		err = room.enqueue(ctx, cmd)
		if !errors.Is(err, ErrRoomClosed) {
			return err
		}
		// The room retired between lookup and enqueue; start over on a fresh one.
		h.forget(room)
		if h.ctx.Err() != nil {
			return ErrHubClosed
		}
	}
}

// Snapshot reads a room's full state through its actor.
func (h *Hub) Snapshot(ctx context.Context, roomID string) (RoomSnapshot, error) {
	room, err := h.room(roomID, false)
	if err != nil {
		return RoomSnapshot{}, err
	}
	reply := make(chan RoomSnapshot, 1)
	if err := room.enqueue(ctx, &Command{Kind: CommandSnapshot, Room: roomID, reply: reply}); err != nil {
		if errors.Is(err, ErrRoomClosed) {
			return RoomSnapshot{}, ErrRoomNotFound
		}
		return RoomSnapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-room.done:
		return RoomSnapshot{}, ErrRoomNotFound
	case <-ctx.Done():
		return RoomSnapshot{}, ctx.Err()
	}
}

// Rooms lists active rooms sorted by id.
func (h *Hub) Rooms() []RoomInfo {
	h.mu.RLock()
	out := make([]RoomInfo, 0, len(h.rooms))
	for id, r := range h.rooms {
		out = append(out, RoomInfo{ID: id, Members: r.MemberCount(), Version: r.Version()})
	}
	h.mu.RUnlock()

	slices.SortFunc(out, func(a, b RoomInfo) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) room(id string, create bool) (*Room, error) {
	h.mu.RLock()
	r, ok := h.rooms[id]
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return nil, ErrHubClosed
	}
	if ok {
		return r, nil
	}
	if !create {
		return nil, ErrRoomNotFound
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	if r, ok := h.rooms[id]; ok {
		return r, nil
	}
	r = newRoom(id, h.opts, h.log)
	r.onRetire = h.forget
	h.rooms[id] = r
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		r.run(h.ctx)
	}()
	h.log.Info().Str("room_id", id).Msg("room created")
	return r, nil
}

// forget drops r from the registry if it is still the registered instance.
func (h *Hub) forget(r *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.rooms[r.ID]; ok && cur == r {
		delete(h.rooms, r.ID)
	}
}

func (h *Hub) reapLoop(ctx context.Context) {
	interval := max(h.opts.RoomIdleTTL/2, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.reapIdle()
		}
	}
}

// reapIdle asks every empty room to retire itself; busy rooms ignore it.
func (h *Hub) reapIdle() {
	h.mu.RLock()
	candidates := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		if r.MemberCount() == 0 {
			candidates = append(candidates, r)
		}
	}
	h.mu.RUnlock()

	for _, r := range candidates {
		r.offer(&Command{Kind: commandReap, Room: r.ID})
	}
}
