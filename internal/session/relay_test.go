package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"couchsync/internal/protocol"
)

func TestRelayDeliversToTargetOnly(t *testing.T) {
	f := newFixture(t, "a", "b", "c")
	joinAll(f)

	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	ok := f.sess.Relay(SignalOffer, "a", "b", offer)

	assert.True(t, ok)
	relayed := last[protocol.SignalRelay](t, f.conns["b"], protocol.KindSignalOffer)
	assert.Equal(t, "a", relayed.Sender)
	assert.JSONEq(t, string(offer), string(relayed.Payload))
	assert.Empty(t, f.conns["a"].kinds())
	assert.Empty(t, f.conns["c"].kinds())
}

func TestRelayKinds(t *testing.T) {
	f := newFixture(t, "a", "b")
	f.sess.Join("a", protocol.Identity{Username: "Alice"})
	f.sess.Join("b", protocol.Identity{Username: "Bob"})
	f.resetAll()

	f.sess.Relay(SignalAnswer, "b", "a", json.RawMessage(`{"type":"answer"}`))
	f.sess.Relay(SignalICE, "b", "a", json.RawMessage(`{"candidate":"c1"}`))

	assert.Equal(t, []string{protocol.KindSignalAnswer, protocol.KindSignalICE}, f.conns["a"].kinds())
}

func TestRelayToAbsentTargetIsDropped(t *testing.T) {
	f := newFixture(t, "a", "b", "stranger")
	f.sess.Join("a", protocol.Identity{Username: "Alice"})
	f.sess.Join("b", protocol.Identity{Username: "Bob"})
	f.resetAll()

	assert.NotPanics(t, func() {
		assert.False(t, f.sess.Relay(SignalOffer, "a", "gone", json.RawMessage(`{}`)))
		// attached but never joined
		assert.False(t, f.sess.Relay(SignalICE, "a", "stranger", json.RawMessage(`{}`)))
	})

	for id, r := range f.conns {
		assert.Empty(t, r.kinds(), id)
	}
}

func TestRelayAfterTargetLeft(t *testing.T) {
	f := newFixture(t, "a", "b")
	f.sess.Join("a", protocol.Identity{Username: "Alice"})
	f.sess.Join("b", protocol.Identity{Username: "Bob"})
	f.sess.Leave("b")
	f.resetAll()

	assert.False(t, f.sess.Relay(SignalOffer, "a", "b", json.RawMessage(`{}`)))
	assert.Empty(t, f.conns["b"].kinds())
}
