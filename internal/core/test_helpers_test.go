package core

import (
	"context"
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// nextEvent returns whatever the client receives next.
func nextEvent(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()

	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("no event received")
		return nil
	}
}

func newTestHub(t *testing.T, opts Options) *Hub {
	t.Helper()

	hub := NewHub(opts, nil)
	t.Cleanup(hub.Close)
	return hub
}

// joinAndSettle joins c to room and consumes its join snapshot.
func joinAndSettle(t *testing.T, hub *Hub, c *Client, room, name string) {
	t.Helper()

	hub.RegisterClient(c)
	if err := hub.Join(context.Background(), c, room, name); err != nil {
		t.Fatalf("join %s: %v", c.ID, err)
	}
	mustEvent(t, c.Events, EventUsersUpdate)
}

func dispatch(t *testing.T, hub *Hub, cmd *Command) {
	t.Helper()

	if err := hub.Dispatch(context.Background(), cmd); err != nil {
		t.Fatalf("dispatch %v: %v", cmd.Kind, err)
	}
}

func line(x0, y0, x1, y1 float64) Stroke {
	return Stroke{
		{X: x0, Y: y0, Color: "#000", Width: 2},
		{X: x1, Y: y1, Color: "#000", Width: 2},
	}
}
