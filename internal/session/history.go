package session

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"couchsync/internal/fanout"
	"couchsync/internal/protocol"
)

const DefaultHistoryCap = 50

// ChatMessage is immutable once appended. ConnID is the sender's
// connection, not a stable user id.
type ChatMessage struct {
	ID        string            `json:"id"`
	Identity  protocol.Identity `json:"identity"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	ConnID    string            `json:"connId"`
}

func (m ChatMessage) wire() protocol.ChatMessage {
	return protocol.ChatMessage{
		ID:       m.ID,
		Identity: m.Identity,
		Content:  m.Content,
		TS:       millis(m.Timestamp),
		ConnID:   m.ConnID,
	}
}

// HistoryBuffer keeps the most recent messages in insertion order. Its
// length never exceeds the cap; the oldest entries go first.
type HistoryBuffer struct {
	limit int
	msgs  []ChatMessage
}

func NewHistoryBuffer(limit int) *HistoryBuffer {
	if limit <= 0 {
		limit = DefaultHistoryCap
	}
	return &HistoryBuffer{
		limit: limit,
		msgs:  make([]ChatMessage, 0, limit+1),
	}
}

func (b *HistoryBuffer) Append(m ChatMessage) {
	b.msgs = append(b.msgs, m)
	if over := len(b.msgs) - b.limit; over > 0 {
		n := copy(b.msgs, b.msgs[over:])
		b.msgs = b.msgs[:n]
	}
}

// Drain returns a copy of the buffer in order without mutating it.
func (b *HistoryBuffer) Drain() []ChatMessage {
	out := make([]ChatMessage, len(b.msgs))
	copy(out, b.msgs)
	return out
}

func (b *HistoryBuffer) Len() int {
	return len(b.msgs)
}

func (b *HistoryBuffer) Cap() int {
	return b.limit
}

// SendChat appends a message from connID and delivers it to everyone, the
// sender included, followed by one trigger effect per matched trigger.
// fallbackName is used only when connID never joined.
func (s *Session) SendChat(connID, content, fallbackName string) ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.presence.Lookup(connID)
	if !ok {
		identity = protocol.Identity{Username: fallbackName}
	}
	msg := ChatMessage{
		ID:        ulid.Make().String(),
		Identity:  identity,
		Content:   content,
		Timestamp: s.stamp(),
		ConnID:    connID,
	}
	s.history.Append(msg)
	log.Debug().Str("module", "session").Str("conn", connID).Str("id", msg.ID).Int("history", s.history.Len()).Msg("chat message")

	s.publish(fanout.RouteChat, connID, protocol.KindChatMessage, msg.wire())
	for _, trigger := range DetectTriggers(content, s.triggers) {
		s.publish(fanout.RouteTrigger, connID, protocol.KindTriggerEffect, protocol.TriggerEffect{Trigger: trigger, By: identity.Username})
	}
	return msg
}

// History returns the buffered messages in order.
func (s *Session) History() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Drain()
}
