package session

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"couchsync/internal/fanout"
	"couchsync/internal/protocol"
)

// recorder is a connection endpoint that keeps every frame it is sent.
type recorder struct {
	mu     sync.Mutex
	frames []protocol.InboundEnvelope
}

func (r *recorder) TrySend(data []byte) error {
	var env protocol.InboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, env)
	return nil
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = nil
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.frames))
	for _, f := range r.frames {
		out = append(out, f.Kind)
	}
	return out
}

func (r *recorder) ofKind(kind string) []json.RawMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []json.RawMessage
	for _, f := range r.frames {
		if f.Kind == kind {
			out = append(out, f.Data)
		}
	}
	return out
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	hub   *fanout.Hub
	sess  *Session
	clock *fakeClock
	conns map[string]*recorder
}

func newFixture(t *testing.T, ids ...string) *fixture {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)}
	hub := fanout.NewHub()
	f := &fixture{
		hub:   hub,
		sess:  New(hub, WithClock(clock.Now)),
		clock: clock,
		conns: make(map[string]*recorder),
	}
	for _, id := range ids {
		f.attach(id)
	}
	return f
}

func (f *fixture) attach(id string) *recorder {
	r := &recorder{}
	f.conns[id] = r
	f.hub.Attach(id, r)
	return r
}

func (f *fixture) resetAll() {
	for _, r := range f.conns {
		r.reset()
	}
}

func decodeAs[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func last[T any](t *testing.T, r *recorder, kind string) T {
	t.Helper()
	frames := r.ofKind(kind)
	require.NotEmpty(t, frames, "no %s frame", kind)
	return decodeAs[T](t, frames[len(frames)-1])
}

func ptr[T any](v T) *T { return &v }
