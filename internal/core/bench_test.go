package core

import (
	"context"
	"fmt"
	"testing"
)

func benchmarkRoomBroadcast(b *testing.B, recipients int) {
	hub := NewHub(Options{}, nil)
	defer hub.Close()
	ctx := context.Background()

	sender := NewClient("sender", 0)
	hub.RegisterClient(sender)
	_ = hub.Join(ctx, sender, "bench", "sender")
	go func() {
		for range sender.Events {
		}
	}()

	clients := make([]*Client, 0, recipients)
	for i := range recipients {
		c := NewClient(fmt.Sprintf("c%d", i), 0)
		hub.RegisterClient(c)
		_ = hub.Join(ctx, c, "bench", "client")
		clients = append(clients, c)
	}

	// Drain events for all but the first recipient to avoid kicks.
	target := clients[0]
	for _, c := range clients[1:] {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}
	for len(target.Events) > 0 {
		<-target.Events
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = hub.Dispatch(ctx, &Command{
			Kind:    CommandSendMessage,
			Room:    "bench",
			Client:  sender,
			Message: Message{Text: "payload"},
		})
		for {
			if ev := <-target.Events; ev.Kind == EventMessageNew {
				break
			}
		}
	}
}

func BenchmarkRoomBroadcast_10(b *testing.B)  { benchmarkRoomBroadcast(b, 10) }
func BenchmarkRoomBroadcast_100(b *testing.B) { benchmarkRoomBroadcast(b, 100) }
func BenchmarkRoomBroadcast_500(b *testing.B) { benchmarkRoomBroadcast(b, 500) }

func BenchmarkWhiteboardUndoRedo(b *testing.B) {
	w := NewWhiteboard()
	for range 1000 {
		w.AddStroke(Stroke{{X: 1, Y: 1, Width: 1}})
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Undo()
		w.Redo()
	}
}
