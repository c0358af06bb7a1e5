package hertzws

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/websocket"
	"github.com/rs/zerolog/log"

	"couchsync/internal/fanout"
	"couchsync/internal/ws"
)

// Handler WebSocket处理器
type Handler struct {
	base       context.Context
	hub        *fanout.Hub
	dispatcher *ws.Dispatcher
	opts       ws.Options
	upgrader   websocket.HertzUpgrader
}

// NewHandler 创建新的WebSocket处理器
func NewHandler(base context.Context, hub *fanout.Hub, d *ws.Dispatcher, opts ws.Options) *Handler {
	return &Handler{
		base:       base,
		hub:        hub,
		dispatcher: d,
		opts:       opts,
		upgrader: websocket.HertzUpgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(ctx *app.RequestContext) bool {
				return true
			},
		},
	}
}

// HandleWebSocket 处理WebSocket连接
func (h *Handler) HandleWebSocket(c context.Context, ctx *app.RequestContext) {
	// 连接在回调返回前一直占用, 生命周期绑定到服务器的base context
	err := h.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		ws.Serve(h.base, conn, h.hub, h.dispatcher, h.opts)
	})
	if err != nil {
		log.Warn().Err(err).Str("module", "hertzws").Str("remote", ctx.ClientIP()).Msg("upgrade failed")
	}
}
