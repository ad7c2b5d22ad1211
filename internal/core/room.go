package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Room owns one room's shared state and applies commands to it one at a
// time from its inbox. Every broadcast is queued to members from inside the
// actor, so all members observe mutations in the same order.
type Room struct {
	ID string

	inbox chan *Command
	done  chan struct{}

	// gate lets retire confirm that no enqueue is in flight.
	gate    sync.RWMutex
	retired bool

	members map[string]*Member
	order   []string
	clients map[string]*Client

	whiteboard *Whiteboard
	tasks      *TaskBoard
	chat       *ChatLog

	version    uint64
	emptySince time.Time
	idleTTL    time.Duration
	now        func() time.Time

	memberCount atomic.Int64
	lastVersion atomic.Uint64

	onRetire func(*Room)
	log      zerolog.Logger
}

func newRoom(id string, opts Options, logger *zerolog.Logger) *Room {
	inboxSize := opts.RoomInboxSize
	if inboxSize <= 0 {
		inboxSize = DefaultInboxSize
	}
	return &Room{
		ID:         id,
		inbox:      make(chan *Command, inboxSize),
		done:       make(chan struct{}),
		members:    make(map[string]*Member),
		clients:    make(map[string]*Client),
		whiteboard: NewWhiteboard(),
		tasks:      NewTaskBoard(),
		chat:       NewChatLog(opts.ChatHistoryLimit),
		idleTTL:    opts.RoomIdleTTL,
		now:        time.Now,
		emptySince: time.Now(),
		log:        logger.With().Str("room_id", id).Logger(),
	}
}

// enqueue hands cmd to the actor, waiting while the inbox is full.
func (r *Room) enqueue(ctx context.Context, cmd *Command) error {
	r.gate.RLock()
	defer r.gate.RUnlock()
	if r.retired {
		return ErrRoomClosed
	}
	select {
	case r.inbox <- cmd:
		return nil
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// offer is enqueue without waiting.
func (r *Room) offer(cmd *Command) bool {
	r.gate.RLock()
	defer r.gate.RUnlock()
	if r.retired {
		return false
	}
	select {
	case r.inbox <- cmd:
		return true
	default:
		return false
	}
}

// run processes commands until ctx is cancelled or the room retires.
func (r *Room) run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-r.inbox:
			if r.handle(cmd) {
				if r.onRetire != nil {
					r.onRetire(r)
				}
				r.log.Info().Msg("room retired")
				return
			}
		}
	}
}

// handle applies one command. A panic is contained to this command; the room
// keeps serving. It reports true when the room has retired.
func (r *Room) handle(cmd *Command) (retired bool) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().
				Str("panic", fmt.Sprint(p)).
				Bytes("stack", debug.Stack()).
				Int("command", int(cmd.Kind)).
				Msg("room command panicked")
			retired = false
		}
	}()

	switch cmd.Kind {
	case CommandJoinRoom:
		r.join(cmd)
	case CommandLeaveRoom:
		r.leave(cmd)
	case CommandSendMessage:
		r.sendMessage(cmd)
	case CommandTasksGet:
		cmd.Client.Deliver(r.tasksEvent())
	case CommandTasksReplace:
		r.replaceTasks(cmd)
	case CommandTaskAdd, CommandTaskMove, CommandTaskToggle, CommandTaskDelete:
		r.applyTaskOp(cmd)
	case CommandDraw:
		r.draw(cmd)
	case CommandUndo:
		if r.whiteboard.Undo() {
			r.broadcast(&Event{Kind: EventWhiteboardUndo, Room: r.ID, Version: r.bump(), Strokes: r.whiteboard.Strokes()}, "")
		}
	case CommandRedo:
		if r.whiteboard.Redo() {
			r.broadcast(&Event{Kind: EventWhiteboardRedo, Room: r.ID, Version: r.bump(), Strokes: r.whiteboard.Strokes()}, "")
		}
	case CommandClear:
		r.whiteboard.Clear()
		r.broadcast(&Event{Kind: EventWhiteboardClear, Room: r.ID, Version: r.bump()}, "")
	case CommandWhiteboardGet:
		cmd.Client.Deliver(r.syncEvent())
	case CommandSnapshot:
		cmd.reply <- r.snapshot()
	case commandReap:
		return r.tryRetire()
	default:
		r.log.Warn().Int("command", int(cmd.Kind)).Msg("unknown command")
	}
	return false
}

func (r *Room) bump() uint64 {
	r.version++
	r.lastVersion.Store(r.version)
	return r.version
}

// broadcast queues ev to every member except the one with id skip.
func (r *Room) broadcast(ev *Event, skip string) {
	for _, id := range r.order {
		if id == skip {
			continue
		}
		c := r.clients[id]
		if c.Deliver(ev) {
			continue
		}
		r.log.Debug().
			Str("client_id", id).
			Str("event", ev.Kind.String()).
			Str("kick_reason", c.KickReason()).
			Msg("event not delivered")
	}
}

func (r *Room) join(cmd *Command) {
	c := cmd.Client
	if c == nil {
		return
	}
	name := cmd.DisplayName
	if name == "" {
		name = c.ID
	}
	if m, ok := r.members[c.ID]; ok {
		m.DisplayName = name
	} else {
		r.members[c.ID] = &Member{ConnectionID: c.ID, DisplayName: name, JoinedAt: r.now()}
		r.order = append(r.order, c.ID)
		r.clients[c.ID] = c
	}
	r.emptySince = time.Time{}
	r.memberCount.Store(int64(len(r.members)))

	c.Deliver(&Event{Kind: EventMessagesInitial, Room: r.ID, Version: r.version, Messages: r.chat.History()})
	c.Deliver(r.tasksEvent())
	c.Deliver(r.syncEvent())

	r.broadcast(r.usersEvent(), "")
	r.log.Info().Str("client_id", c.ID).Str("name", name).Int("members", len(r.members)).Msg("member joined")
}

func (r *Room) leave(cmd *Command) {
	c := cmd.Client
	if c == nil {
		return
	}
	if _, ok := r.members[c.ID]; !ok {
		return
	}
	delete(r.members, c.ID)
	delete(r.clients, c.ID)
	for i, id := range r.order {
		if id == c.ID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.memberCount.Store(int64(len(r.members)))
	if len(r.members) == 0 {
		r.emptySince = r.now()
	}

	r.broadcast(r.usersEvent(), "")
	r.log.Info().Str("client_id", c.ID).Int("members", len(r.members)).Msg("member left")
}

func (r *Room) sendMessage(cmd *Command) {
	msg := cmd.Message
	msg.Room = r.ID
	if msg.Sender == "" && cmd.Client != nil {
		if m, ok := r.members[cmd.Client.ID]; ok {
			msg.Sender = m.DisplayName
		} else {
			msg.Sender = cmd.Client.ID
		}
	}
	msg = r.chat.Append(msg)
	r.broadcast(&Event{Kind: EventMessageNew, Room: r.ID, Version: r.bump(), Message: msg}, "")
}

func (r *Room) replaceTasks(cmd *Command) {
	if err := r.tasks.Replace(cmd.Columns); err != nil {
		r.log.Warn().Err(err).Msg("rejected task board document")
		cmd.Client.Deliver(&Event{Kind: EventError, Room: r.ID, Error: coreError(ErrCodeBadRequest, err.Error())})
		return
	}
	r.bump()
	r.broadcast(r.tasksEvent(), "")
}

func (r *Room) applyTaskOp(cmd *Command) {
	op := cmd.Task
	if op.ExpectedRevision != nil && *op.ExpectedRevision != r.tasks.Revision() {
		cmd.Client.Deliver(&Event{
			Kind:  EventError,
			Room:  r.ID,
			Error: coreError(ErrCodeVersionConflict, fmt.Sprintf("board is at revision %d", r.tasks.Revision())),
		})
		cmd.Client.Deliver(r.tasksEvent())
		return
	}

	var err error
	switch cmd.Kind {
	case CommandTaskAdd:
		_, err = r.tasks.Add(op.TaskID, op.Text)
	case CommandTaskMove:
		_, err = r.tasks.Move(op.TaskID, op.Column, op.Index)
	case CommandTaskToggle:
		_, err = r.tasks.Toggle(op.TaskID)
	case CommandTaskDelete:
		err = r.tasks.Delete(op.TaskID)
	}
	if err != nil {
		r.log.Debug().Err(err).Str("task_id", op.TaskID).Msg("task operation rejected")
		cmd.Client.Deliver(&Event{Kind: EventError, Room: r.ID, Error: errorFor(err)})
		return
	}
	r.bump()
	r.broadcast(r.tasksEvent(), "")
}

func (r *Room) draw(cmd *Command) {
	r.whiteboard.AddStroke(cmd.Stroke)
	skip := ""
	if cmd.Client != nil {
		skip = cmd.Client.ID
	}
	strokes := r.whiteboard.Strokes()
	r.broadcast(&Event{Kind: EventWhiteboardDraw, Room: r.ID, Version: r.bump(), Stroke: strokes[len(strokes)-1]}, skip)
}

func (r *Room) usersEvent() *Event {
	members := make([]Member, 0, len(r.order))
	for _, id := range r.order {
		members = append(members, *r.members[id])
	}
	return &Event{Kind: EventUsersUpdate, Room: r.ID, Version: r.bump(), Members: members}
}

func (r *Room) tasksEvent() *Event {
	return &Event{Kind: EventTasksUpdate, Room: r.ID, Version: r.version, Revision: r.tasks.Revision(), Tasks: r.tasks.Snapshot()}
}

func (r *Room) syncEvent() *Event {
	return &Event{Kind: EventWhiteboardSync, Room: r.ID, Version: r.version, Strokes: r.whiteboard.Strokes()}
}

func (r *Room) snapshot() RoomSnapshot {
	members := make([]Member, 0, len(r.order))
	for _, id := range r.order {
		members = append(members, *r.members[id])
	}
	return RoomSnapshot{
		ID:           r.ID,
		Version:      r.version,
		Members:      members,
		Strokes:      r.whiteboard.Strokes(),
		Tasks:        r.tasks.Snapshot(),
		TaskRevision: r.tasks.Revision(),
		Messages:     r.chat.History(),
	}
}

// tryRetire closes the room if it has been empty for idleTTL and nothing is
// waiting to be enqueued.
func (r *Room) tryRetire() bool {
	if r.idleTTL <= 0 || len(r.members) > 0 || r.emptySince.IsZero() {
		return false
	}
	if r.now().Sub(r.emptySince) < r.idleTTL {
		return false
	}
	if !r.gate.TryLock() {
		return false
	}
	defer r.gate.Unlock()
	if len(r.inbox) > 0 {
		return false
	}
	r.retired = true
	return true
}

// MemberCount is safe to call from any goroutine.
func (r *Room) MemberCount() int {
	return int(r.memberCount.Load())
}

// Version is the last broadcast version; safe to call from any goroutine.
func (r *Room) Version() uint64 {
	return r.lastVersion.Load()
}
