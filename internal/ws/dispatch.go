package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"couchsync/internal/fanout"
	"couchsync/internal/protocol"
	"couchsync/internal/session"
)

var (
	ErrUnknownKind    = errors.New("unknown event kind")
	ErrEmptyUsername  = errors.New("username is required")
	ErrMalformedFrame = errors.New("malformed frame")
)

// Dispatcher decodes inbound frames and calls the matching session
// handler with the acting connection id.
type Dispatcher struct {
	session *session.Session
	out     session.Publisher
}

func NewDispatcher(s *session.Session, out session.Publisher) *Dispatcher {
	return &Dispatcher{session: s, out: out}
}

func (d *Dispatcher) Dispatch(connID string, frame []byte) error {
	var in protocol.InboundEnvelope
	if err := json.Unmarshal(frame, &in); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch in.Kind {
	case protocol.KindJoin:
		var p protocol.JoinPayload
		decode(in.Data, &p)
		identity := p.Resolve()
		identity.Username = strings.TrimSpace(identity.Username)
		if identity.Username == "" {
			d.reject(connID, "invalid_identity", ErrEmptyUsername.Error())
			return ErrEmptyUsername
		}
		d.session.Join(connID, identity)

	case protocol.KindChatSend:
		var p protocol.ChatSendPayload
		decode(in.Data, &p)
		d.session.SendChat(connID, p.Content, p.Username)

	case protocol.KindVideoLoad:
		var p protocol.VideoLoadPayload
		decode(in.Data, &p)
		d.session.LoadVideo(connID, p.Ref, p.Username)

	case protocol.KindPlaybackChange:
		var p protocol.PlaybackChangePayload
		decode(in.Data, &p)
		d.session.ChangePlayback(connID, p.Playing, p.Position)

	case protocol.KindPlaybackTick:
		var p protocol.PlaybackTickPayload
		decode(in.Data, &p)
		d.session.Tick(connID, p.Position)

	case protocol.KindSyncRequest:
		var p protocol.SyncRequestPayload
		decode(in.Data, &p)
		d.session.RequestSync(connID, p.Playing, p.Position)

	case protocol.KindAwardGive:
		var p protocol.AwardGivePayload
		decode(in.Data, &p)
		d.session.GiveAward(connID, p.Award)

	case protocol.KindSurprise:
		var p protocol.SurprisePayload
		decode(in.Data, &p)
		d.session.Surprise(connID, p.Message)

	case protocol.KindTypingStart:
		d.session.SetTyping(connID, true)

	case protocol.KindTypingStop:
		d.session.SetTyping(connID, false)

	case protocol.KindSignalOffer:
		var p protocol.SignalPayload
		decode(in.Data, &p)
		d.session.Relay(session.SignalOffer, connID, p.Target, p.Offer)

	case protocol.KindSignalAnswer:
		var p protocol.SignalPayload
		decode(in.Data, &p)
		d.session.Relay(session.SignalAnswer, connID, p.Target, p.Answer)

	case protocol.KindSignalICE:
		var p protocol.SignalPayload
		decode(in.Data, &p)
		d.session.Relay(session.SignalICE, connID, p.Target, p.Candidate)

	case protocol.KindVoiceStatus:
		var p protocol.VoiceStatusPayload
		decode(in.Data, &p)
		d.session.SetVoiceStatus(connID, p.IsTalking)

	case protocol.KindDriveLoaded:
		d.session.ShareDrive(connID, in.Data)

	case protocol.KindVoiceRoomShare:
		d.session.ShareVoiceRoom(connID, in.Data)

	default:
		d.reject(connID, "unknown_kind", "unsupported event kind")
		return fmt.Errorf("%w: %q", ErrUnknownKind, in.Kind)
	}
	return nil
}

// Disconnect is the implicit event raised when a connection goes away.
func (d *Dispatcher) Disconnect(connID string) {
	d.session.Leave(connID)
}

func (d *Dispatcher) reject(connID, code, message string) {
	d.out.Publish(fanout.Delivery{
		Route:  fanout.RouteError,
		Origin: connID,
		Envelope: protocol.Envelope{
			Kind: protocol.KindError,
			Data: protocol.ErrorPayload{Code: code, Message: message},
		},
	})
}

// decode fills v from a payload on a best-effort basis. Missing or
// mistyped fields are left at their zero value and the event proceeds.
func decode(data json.RawMessage, v interface{}) {
	if len(data) == 0 {
		return
	}
	_ = json.Unmarshal(data, v)
}
