package core

import (
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the outbound buffer used when none is configured.
const DefaultQueueSize = 256

// Client is a connection as seen by the core layer. The room actors write
// to Events; the transport drains it.
type Client struct {
	ID     string
	Events chan *Event

	kicked     chan struct{}
	kickOnce   sync.Once
	kickReason atomic.Value
	dropped    atomic.Uint64
}

// NewClient constructs a client with an outbound queue of the given size.
func NewClient(id string, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Client{
		ID:     id,
		Events: make(chan *Event, queueSize),
		kicked: make(chan struct{}),
	}
}

// Deliver queues an event without blocking. A full queue drops presence
// events and kicks the client for anything else, so a slow reader never
// stalls the room or misses a mutation silently.
func (c *Client) Deliver(ev *Event) bool {
	if c == nil || ev == nil {
		return false
	}
	select {
	case <-c.kicked:
		return false
	default:
	}

	select {
	case c.Events <- ev:
		return true
	default:
	}

	c.dropped.Add(1)
	if !ev.Kind.Droppable() {
		c.Kick(ErrCodeQueueOverflow)
	}
	return false
}

// Kick marks the client for disconnection. Only the first reason is kept.
func (c *Client) Kick(reason string) {
	c.kickOnce.Do(func() {
		c.kickReason.Store(reason)
		close(c.kicked)
	})
}

// Kicked is closed once the client has been kicked.
func (c *Client) Kicked() <-chan struct{} {
	return c.kicked
}

// KickReason returns the reason passed to the first Kick call.
func (c *Client) KickReason() string {
	if v, ok := c.kickReason.Load().(string); ok {
		return v
	}
	return ""
}

// Dropped counts events that could not be queued.
func (c *Client) Dropped() uint64 {
	return c.dropped.Load()
}
