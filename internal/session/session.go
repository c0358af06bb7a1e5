// Package session holds the single shared watch session: who is present,
// what is playing, and the recent chat. Every handler takes the acting
// connection id explicitly, mutates state under one lock and publishes the
// derived events through the fan-out policy before returning.
package session

import (
	"sync"
	"time"

	"couchsync/internal/fanout"
	"couchsync/internal/protocol"
)

// Publisher delivers outbound events according to the fan-out policy.
type Publisher interface {
	Publish(d fanout.Delivery) fanout.Result
}

type Session struct {
	mu       sync.Mutex
	out      Publisher
	now      func() time.Time
	triggers []string

	presence *Registry
	playback *PlaybackStore
	history  *HistoryBuffer
}

type Option func(*Session)

// WithClock replaces the wall clock used to stamp writes.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func WithHistoryCap(n int) Option {
	return func(s *Session) { s.history = NewHistoryBuffer(n) }
}

func WithTriggers(words []string) Option {
	return func(s *Session) { s.triggers = words }
}

func New(out Publisher, opts ...Option) *Session {
	s := &Session{
		out:      out,
		now:      time.Now,
		triggers: DefaultTriggers,
		presence: NewRegistry(),
		history:  NewHistoryBuffer(DefaultHistoryCap),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.playback = NewPlaybackStore(s.now().UTC())
	return s
}

// State is a read-only copy of the whole session.
type State struct {
	Playback PlaybackState   `json:"playback"`
	Count    int             `json:"count"`
	Parties  []protocol.Peer `json:"parties"`
	History  []ChatMessage   `json:"history"`
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Playback: s.playback.Snapshot(),
		Count:    s.presence.Len(),
		Parties:  s.presence.Peers(""),
		History:  s.history.Drain(),
	}
}

// Lookup resolves a connection id to the identity it joined with.
func (s *Session) Lookup(connID string) (protocol.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence.Lookup(connID)
}

func (s *Session) stamp() time.Time {
	return s.now().UTC()
}

// nameOf returns the display name for connID or "" when it never joined.
func (s *Session) nameOf(connID string) string {
	id, _ := s.presence.Lookup(connID)
	return id.Username
}

func (s *Session) publish(route fanout.Route, origin, kind string, data interface{}) {
	s.out.Publish(fanout.Delivery{
		Route:    route,
		Origin:   origin,
		Envelope: protocol.Envelope{Kind: kind, Data: data},
	})
}

func (s *Session) publishTo(target, origin, kind string, data interface{}) fanout.Result {
	return s.out.Publish(fanout.Delivery{
		Route:    fanout.RouteSignal,
		Origin:   origin,
		Target:   target,
		Envelope: protocol.Envelope{Kind: kind, Data: data},
	})
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}
