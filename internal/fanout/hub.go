package fanout

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"couchsync/internal/protocol"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Sender is the transport endpoint of one connection. TrySend must not
// block; a full queue is reported as ErrBackpressure and the frame is lost.
type Sender interface {
	TrySend(data []byte) error
}

// Delivery is one outbound event plus the routing facts the policy needs.
type Delivery struct {
	Route    Route
	Origin   string
	Target   string
	Envelope protocol.Envelope
}

// Result reports how a delivery went. Nothing is retried.
type Result struct {
	SentTo  int
	Dropped []string
}

// Hub is the set of attached connections and applies Policy to every
// delivery.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]Sender
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]Sender),
	}
}

func (h *Hub) Attach(connID string, s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[connID] = s
	log.Debug().Str("module", "fanout").Str("conn", connID).Int("conns", len(h.conns)).Msg("attached")
}

func (h *Hub) Detach(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, connID)
	log.Debug().Str("module", "fanout").Str("conn", connID).Int("conns", len(h.conns)).Msg("detached")
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Publish marshals the envelope once and hands it to every connection the
// route's audience selects.
func (h *Hub) Publish(d Delivery) Result {
	data, err := json.Marshal(d.Envelope)
	if err != nil {
		log.Error().Err(err).Str("module", "fanout").Str("kind", d.Envelope.Kind).Msg("marshal envelope")
		return Result{}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	var res Result
	send := func(id string, s Sender) {
		if err := s.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, id)
			return
		}
		res.SentTo++
	}

	switch AudienceOf(d.Route) {
	case All:
		for id, s := range h.conns {
			send(id, s)
		}
	case Others:
		for id, s := range h.conns {
			if id == d.Origin {
				continue
			}
			send(id, s)
		}
	case Origin:
		if s, ok := h.conns[d.Origin]; ok {
			send(d.Origin, s)
		}
	case Target:
		if s, ok := h.conns[d.Target]; ok {
			send(d.Target, s)
		}
	}

	if len(res.Dropped) > 0 {
		log.Warn().Str("module", "fanout").Str("route", string(d.Route)).Strs("dropped", res.Dropped).Msg("delivery dropped")
	}
	return res
}
