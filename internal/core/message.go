package core

import "time"

// Message is the domain model for a chat message.
type Message struct {
	Room      string
	Sender    string
	Text      string
	Timestamp time.Time
}

// ChatLog is a room's append-only message history. Timestamps have
// millisecond resolution and strictly increase in append order, even if the
// wall clock stalls or steps back.
type ChatLog struct {
	messages []Message
	limit    int
	last     time.Time
	now      func() time.Time
}

// NewChatLog returns an empty log. A positive limit keeps only the newest
// limit messages.
func NewChatLog(limit int) *ChatLog {
	return &ChatLog{limit: limit, now: time.Now}
}

// Append stamps msg and adds it to the log.
func (l *ChatLog) Append(msg Message) Message {
	ts := l.now().Truncate(time.Millisecond)
	if !ts.After(l.last) {
		ts = l.last.Add(time.Millisecond)
	}
	l.last = ts
	msg.Timestamp = ts

	l.messages = append(l.messages, msg)
	if l.limit > 0 && len(l.messages) > l.limit {
		drop := len(l.messages) - l.limit
		l.messages = append(l.messages[:0:0], l.messages[drop:]...)
	}
	return msg
}

// History returns a copy of the log, oldest first.
func (l *ChatLog) History() []Message {
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of retained messages.
func (l *ChatLog) Len() int {
	return len(l.messages)
}
