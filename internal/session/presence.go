package session

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"couchsync/internal/fanout"
	"couchsync/internal/protocol"
)

// Party is one joined connection.
type Party struct {
	ConnID   string
	Identity protocol.Identity
	JoinedAt time.Time
}

// Registry maps connection ids to parties. An id is present iff its
// connection has joined and not yet disconnected. Callers serialize access.
type Registry struct {
	parties map[string]*Party
}

func NewRegistry() *Registry {
	return &Registry{parties: make(map[string]*Party)}
}

func (r *Registry) Insert(connID string, identity protocol.Identity, now time.Time) {
	if p, ok := r.parties[connID]; ok {
		p.Identity = identity
		return
	}
	r.parties[connID] = &Party{ConnID: connID, Identity: identity, JoinedAt: now}
}

func (r *Registry) Remove(connID string) (Party, bool) {
	p, ok := r.parties[connID]
	if !ok {
		return Party{}, false
	}
	delete(r.parties, connID)
	return *p, true
}

func (r *Registry) Lookup(connID string) (protocol.Identity, bool) {
	p, ok := r.parties[connID]
	if !ok {
		return protocol.Identity{}, false
	}
	return p.Identity, true
}

func (r *Registry) Len() int {
	return len(r.parties)
}

// Peers lists every party except the one named, oldest join first.
func (r *Registry) Peers(except string) []protocol.Peer {
	parties := make([]*Party, 0, len(r.parties))
	for id, p := range r.parties {
		if id == except {
			continue
		}
		parties = append(parties, p)
	}
	sort.Slice(parties, func(i, j int) bool {
		if parties[i].JoinedAt.Equal(parties[j].JoinedAt) {
			return parties[i].ConnID < parties[j].ConnID
		}
		return parties[i].JoinedAt.Before(parties[j].JoinedAt)
	})
	out := make([]protocol.Peer, 0, len(parties))
	for _, p := range parties {
		out = append(out, protocol.Peer{ConnID: p.ConnID, Identity: p.Identity})
	}
	return out
}

// Join registers connID under identity. The count goes to everyone, the
// announcement and peer-discovery to everyone else, and the snapshot,
// history replay and peer list to the joiner alone.
func (s *Session) Join(connID string, identity protocol.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.presence.Insert(connID, identity, s.stamp())
	log.Info().Str("module", "session").Str("conn", connID).Str("username", identity.Username).Int("count", s.presence.Len()).Msg("party joined")

	s.publish(fanout.RoutePresenceCount, connID, protocol.KindPresenceCount, protocol.PresenceCount{N: s.presence.Len()})
	s.publish(fanout.RoutePresenceAnnounce, connID, protocol.KindPresenceJoined, protocol.PresenceChange{Identity: identity})

	s.publish(fanout.RouteJoinSnapshot, connID, protocol.KindPlaybackSnapshot, s.playback.Snapshot().wire())
	for _, msg := range s.history.Drain() {
		s.publish(fanout.RouteJoinHistory, connID, protocol.KindChatMessage, msg.wire())
	}

	s.publish(fanout.RoutePeerJoined, connID, protocol.KindPeerJoined, protocol.Peer{ConnID: connID, Identity: identity})
	s.publish(fanout.RoutePeerList, connID, protocol.KindPeerList, protocol.PeerList{Peers: s.presence.Peers(connID)})
}

// Leave unregisters connID. Duplicate or pre-join disconnects are no-ops.
func (s *Session) Leave(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	party, ok := s.presence.Remove(connID)
	if !ok {
		return
	}
	log.Info().Str("module", "session").Str("conn", connID).Str("username", party.Identity.Username).Int("count", s.presence.Len()).Msg("party left")

	s.publish(fanout.RoutePresenceCount, connID, protocol.KindPresenceCount, protocol.PresenceCount{N: s.presence.Len()})
	s.publish(fanout.RoutePresenceAnnounce, connID, protocol.KindPresenceLeft, protocol.PresenceChange{Identity: party.Identity})
	s.publish(fanout.RoutePeerLeft, connID, protocol.KindPeerLeft, protocol.PeerLeft{ConnID: connID})
}

// SetTyping tells everyone else that connID started or stopped typing.
// Connections that never joined have no name to show and are ignored.
func (s *Session) SetTyping(connID string, typing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.presence.Lookup(connID)
	if !ok {
		return
	}
	s.publish(fanout.RouteTyping, connID, protocol.KindTypingState, protocol.TypingState{Identity: identity, IsTyping: typing})
}

// SetVoiceStatus tells everyone else whether connID is talking on the
// voice channel.
func (s *Session) SetVoiceStatus(connID string, talking bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, _ := s.presence.Lookup(connID)
	s.publish(fanout.RouteVoiceStatus, connID, protocol.KindPeerVoiceStatus, protocol.PeerVoiceStatus{
		ConnID:    connID,
		IsTalking: talking,
		Identity:  identity,
	})
}
