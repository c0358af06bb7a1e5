package protocol

import (
	"encoding/json"
)

// Inbound event kinds (party -> server).
const (
	KindJoin           = "join"
	KindChatSend       = "chat-send"
	KindVideoLoad      = "video-load"
	KindPlaybackChange = "playback-change"
	KindPlaybackTick   = "playback-tick"
	KindSyncRequest    = "sync-request"
	KindAwardGive      = "award-give"
	KindSurprise       = "surprise"
	KindTypingStart    = "typing-start"
	KindTypingStop     = "typing-stop"
	KindSignalOffer    = "signal-offer"
	KindSignalAnswer   = "signal-answer"
	KindSignalICE      = "signal-ice"
	KindVoiceStatus    = "voice-status"
	KindDriveLoaded    = "drive-loaded"
	KindVoiceRoomShare = "voice-room-share"
)

// Outbound event kinds (server -> parties). The signal kinds and
// drive-loaded are shared with their inbound counterparts.
const (
	KindPresenceCount    = "presence-count"
	KindPresenceJoined   = "presence-joined"
	KindPresenceLeft     = "presence-left"
	KindPlaybackSnapshot = "playback-snapshot"
	KindVideoLoaded      = "video-loaded"
	KindPlaybackSync     = "playback-sync"
	KindChatMessage      = "chat-message"
	KindTriggerEffect    = "trigger-effect"
	KindAwardGiven       = "award-given"
	KindSurprisePopup    = "surprise-popup"
	KindTypingState      = "typing-state"
	KindPeerList         = "peer-list"
	KindPeerJoined       = "peer-joined"
	KindPeerLeft         = "peer-left"
	KindPeerVoiceStatus  = "peer-voice-status"
	KindVoiceRoomInvite  = "voice-room-invite"
	KindError            = "error"
)

// Video source kinds.
const (
	VideoGeneric = "generic"
	VideoYouTube = "youtube"
	VideoDrive   = "drive"
	VideoVimeo   = "vimeo"
)

type Identity struct {
	Username string `json:"username"`
}

type VideoRef struct {
	URL     string `json:"url"`
	VideoID string `json:"videoId"`
	Kind    string `json:"kind"`
}

// Envelope is the frame written to a connection.
type Envelope struct {
	Kind string      `json:"kind"`
	Data interface{} `json:"data"`
}

// InboundEnvelope is the frame read from a connection; Data is decoded
// according to Kind.
type InboundEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Inbound payloads.

// JoinPayload accepts the identity either nested or as a bare username.
type JoinPayload struct {
	Identity Identity `json:"identity"`
	Username string   `json:"username,omitempty"`
}

func (p JoinPayload) Resolve() Identity {
	if p.Identity.Username != "" {
		return p.Identity
	}
	return Identity{Username: p.Username}
}

type ChatSendPayload struct {
	Content  string `json:"content"`
	Username string `json:"username,omitempty"`
}

type VideoLoadPayload struct {
	Ref      VideoRef `json:"ref"`
	Username string   `json:"username,omitempty"`
}

type PlaybackChangePayload struct {
	Playing  bool    `json:"playing"`
	Position float64 `json:"position"`
}

type PlaybackTickPayload struct {
	Position float64 `json:"position"`
}

type SyncRequestPayload struct {
	Playing  *bool    `json:"playing,omitempty"`
	Position *float64 `json:"position,omitempty"`
}

type AwardGivePayload struct {
	Award json.RawMessage `json:"award"`
}

type SurprisePayload struct {
	Message string `json:"message"`
}

type SignalPayload struct {
	Target    string          `json:"target"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

type VoiceStatusPayload struct {
	IsTalking bool `json:"isTalking"`
}

// Outbound payloads.

type PresenceCount struct {
	N int `json:"n"`
}

type PresenceChange struct {
	Identity Identity `json:"identity"`
}

type PlaybackSnapshot struct {
	Ref      VideoRef `json:"ref"`
	Playing  bool     `json:"playing"`
	Position float64  `json:"position"`
	TS       int64    `json:"ts"`
}

type VideoLoaded struct {
	Ref VideoRef `json:"ref"`
	By  string   `json:"by"`
}

type PlaybackSync struct {
	Playing  bool    `json:"playing"`
	Position float64 `json:"position"`
}

type ChatMessage struct {
	ID       string   `json:"id"`
	Identity Identity `json:"identity"`
	Content  string   `json:"content"`
	TS       int64    `json:"ts"`
	ConnID   string   `json:"connId"`
}

type TriggerEffect struct {
	Trigger string `json:"trigger"`
	By      string `json:"by"`
}

type AwardGiven struct {
	Award json.RawMessage `json:"award"`
	By    string          `json:"by"`
}

type SurprisePopup struct {
	Message string `json:"message"`
	By      string `json:"by"`
}

type TypingState struct {
	Identity Identity `json:"identity"`
	IsTyping bool     `json:"isTyping"`
}

type Peer struct {
	ConnID   string   `json:"connId"`
	Identity Identity `json:"identity"`
}

type PeerList struct {
	Peers []Peer `json:"peers"`
}

type PeerLeft struct {
	ConnID string `json:"connId"`
}

type SignalRelay struct {
	Payload json.RawMessage `json:"payload"`
	Sender  string          `json:"sender"`
}

type PeerVoiceStatus struct {
	ConnID    string   `json:"connId"`
	IsTalking bool     `json:"isTalking"`
	Identity  Identity `json:"identity"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
