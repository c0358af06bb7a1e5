package session

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"couchsync/internal/protocol"
)

type SignalKind int

const (
	SignalOffer SignalKind = iota
	SignalAnswer
	SignalICE
)

func (k SignalKind) outboundKind() string {
	switch k {
	case SignalAnswer:
		return protocol.KindSignalAnswer
	case SignalICE:
		return protocol.KindSignalICE
	default:
		return protocol.KindSignalOffer
	}
}

func (k SignalKind) String() string {
	return k.outboundKind()
}

// Relay forwards an opaque negotiation payload from senderID to targetID
// and nobody else. A target that is not a joined party is dropped
// silently; the sender's negotiation simply never completes. It reports
// whether the payload was handed to the target's connection.
func (s *Session) Relay(kind SignalKind, senderID, targetID string, payload json.RawMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.presence.Lookup(targetID); !ok {
		log.Debug().Str("module", "session").Str("kind", kind.String()).Str("from", senderID).Str("to", targetID).Msg("relay target absent")
		return false
	}
	res := s.publishTo(targetID, senderID, kind.outboundKind(), protocol.SignalRelay{Payload: payload, Sender: senderID})
	return res.SentTo == 1
}
