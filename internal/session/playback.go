package session

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"couchsync/internal/fanout"
	"couchsync/internal/protocol"
)

// PlaybackState is the one authoritative record of what is loaded and
// where it is. LastUpdate is always the wall-clock time of the last
// accepted write; writes are never rejected as stale.
type PlaybackState struct {
	Ref        protocol.VideoRef `json:"ref"`
	Playing    bool              `json:"playing"`
	Position   float64           `json:"position"`
	LastUpdate time.Time         `json:"lastUpdate"`
}

func (p PlaybackState) wire() protocol.PlaybackSnapshot {
	return protocol.PlaybackSnapshot{
		Ref:      p.Ref,
		Playing:  p.Playing,
		Position: p.Position,
		TS:       millis(p.LastUpdate),
	}
}

// PlaybackStore applies last-writer-wins updates. Callers serialize access.
type PlaybackStore struct {
	state PlaybackState
}

func NewPlaybackStore(now time.Time) *PlaybackStore {
	return &PlaybackStore{
		state: PlaybackState{
			Ref:        protocol.VideoRef{Kind: protocol.VideoGeneric},
			LastUpdate: now,
		},
	}
}

func (ps *PlaybackStore) Load(ref protocol.VideoRef, now time.Time) {
	ref.Kind = NormalizeKind(ref.Kind)
	ps.state = PlaybackState{
		Ref:        ref,
		Playing:    false,
		Position:   0,
		LastUpdate: now,
	}
}

func (ps *PlaybackStore) Set(playing bool, position float64, now time.Time) {
	ps.state.Playing = playing
	ps.state.Position = position
	ps.state.LastUpdate = now
}

func (ps *PlaybackStore) Tick(position float64, now time.Time) {
	ps.state.Position = position
	ps.state.LastUpdate = now
}

// Absorb writes whichever observed fields are present. Nothing is stamped
// when neither is.
func (ps *PlaybackStore) Absorb(playing *bool, position *float64, now time.Time) {
	if playing == nil && position == nil {
		return
	}
	if playing != nil {
		ps.state.Playing = *playing
	}
	if position != nil {
		ps.state.Position = *position
	}
	ps.state.LastUpdate = now
}

func (ps *PlaybackStore) Snapshot() PlaybackState {
	return ps.state
}

// NormalizeKind maps a source kind tag onto the known set; anything
// unrecognised is generic.
func NormalizeKind(kind string) string {
	switch k := strings.ToLower(strings.TrimSpace(kind)); k {
	case protocol.VideoYouTube, protocol.VideoDrive, protocol.VideoVimeo:
		return k
	default:
		return protocol.VideoGeneric
	}
}

// LoadVideo replaces the loaded video and rewinds it paused to zero.
// fallbackName attributes the load when connID never joined.
func (s *Session) LoadVideo(connID string, ref protocol.VideoRef, fallbackName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playback.Load(ref, s.stamp())
	loaded := s.playback.Snapshot().Ref
	log.Info().Str("module", "session").Str("conn", connID).Str("video", loaded.VideoID).Str("kind", loaded.Kind).Msg("video loaded")

	by := fallbackName
	if id, ok := s.presence.Lookup(connID); ok {
		by = id.Username
	}
	s.publish(fanout.RouteVideoLoaded, connID, protocol.KindVideoLoaded, protocol.VideoLoaded{Ref: loaded, By: by})
}

// ChangePlayback records a play/pause observed by connID and forwards it to
// everyone else; the caller already shows this value.
func (s *Session) ChangePlayback(connID string, playing bool, position float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playback.Set(playing, position, s.stamp())
	log.Debug().Str("module", "session").Str("conn", connID).Bool("playing", playing).Float64("position", position).Msg("playback change")

	s.publish(fanout.RoutePlayback, connID, protocol.KindPlaybackSync, protocol.PlaybackSync{Playing: playing, Position: position})
}

// Tick records a position update without touching the playing flag.
func (s *Session) Tick(connID string, position float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playback.Tick(position, s.stamp())
	st := s.playback.Snapshot()

	s.publish(fanout.RoutePlayback, connID, protocol.KindPlaybackSync, protocol.PlaybackSync{Playing: st.Playing, Position: st.Position})
}

// RequestSync absorbs whatever the caller observed and then pushes the full
// snapshot to every connection, the caller included, to force convergence.
func (s *Session) RequestSync(connID string, playing *bool, position *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playback.Absorb(playing, position, s.stamp())
	log.Debug().Str("module", "session").Str("conn", connID).Msg("sync request")

	s.publish(fanout.RouteSyncSnapshot, connID, protocol.KindPlaybackSnapshot, s.playback.Snapshot().wire())
}

// Snapshot returns the current playback state by value.
func (s *Session) Snapshot() PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playback.Snapshot()
}
