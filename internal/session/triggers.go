package session

import (
	"encoding/json"
	"strings"

	"couchsync/internal/fanout"
	"couchsync/internal/protocol"
)

var DefaultTriggers = []string{"love", "heart", "lol", "haha", "cute", "fire", "wow"}

// DetectTriggers returns, in trigger order, every trigger that occurs in
// text as a case-insensitive substring.
func DetectTriggers(text string, triggers []string) []string {
	lower := strings.ToLower(text)
	var hits []string
	for _, t := range triggers {
		if t == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(t)) {
			hits = append(hits, t)
		}
	}
	return hits
}

// GiveAward announces an award from connID to everyone.
func (s *Session) GiveAward(connID string, award json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(fanout.RouteAward, connID, protocol.KindAwardGiven, protocol.AwardGiven{Award: award, By: s.nameOf(connID)})
}

// Surprise pops a message from connID up for everyone.
func (s *Session) Surprise(connID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(fanout.RouteSurprise, connID, protocol.KindSurprisePopup, protocol.SurprisePopup{Message: message, By: s.nameOf(connID)})
}

// ShareDrive passes a drive-player notice through to everyone else untouched.
func (s *Session) ShareDrive(connID string, data json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(fanout.RouteDriveLoaded, connID, protocol.KindDriveLoaded, data)
}

// ShareVoiceRoom invites everyone else into connID's voice room.
func (s *Session) ShareVoiceRoom(connID string, data json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(fanout.RouteVoiceInvite, connID, protocol.KindVoiceRoomInvite, data)
}
