package ws

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"couchsync/internal/fanout"
)

// Handler upgrades net/http requests with gorilla/websocket.
type Handler struct {
	base       context.Context
	hub        *fanout.Hub
	dispatcher *Dispatcher
	opts       Options
	upgrader   websocket.Upgrader
}

// NewHandler binds connection lifetimes to base, so cancelling it closes
// every live socket.
func NewHandler(base context.Context, hub *fanout.Hub, d *Dispatcher, opts Options) *Handler {
	return &Handler{
		base:       base,
		hub:        hub,
		dispatcher: d,
		opts:       opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Warn().Err(err).Str("module", "ws").Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}
	Serve(h.base, conn, h.hub, h.dispatcher, h.opts)
}
