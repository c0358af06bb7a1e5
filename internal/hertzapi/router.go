package hertzapi

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/RanFeng/ilog"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog/log"

	"couchsync/internal/hertzws"
	"couchsync/internal/session"
)

// NewRouter 初始化Hertz路由
func NewRouter(h *server.Hertz, sess *session.Session, wsHandler *hertzws.Handler, staticPath string) *server.Hertz {
	// 注册中间件
	h.Use(recoveryMiddleware())
	h.Use(loggerMiddleware())

	// 健康检查接口
	h.GET("/healthz", func(c context.Context, ctx *app.RequestContext) {
		ctx.String(consts.StatusOK, "ok")
	})

	// API路由组
	api := h.Group("/api")
	{
		api.GET("/session", handleGetSession(sess))
	}

	// WebSocket路由
	h.GET("/ws", wsHandler.HandleWebSocket)

	// 静态资源
	if info, err := os.Stat(staticPath); err == nil && info.IsDir() {
		h.Static("/static", staticPath)
		h.GET("/", func(c context.Context, ctx *app.RequestContext) {
			ctx.File(filepath.Join(staticPath, "index.html"))
		})
	}

	return h
}

// recoveryMiddleware 恢复中间件
func recoveryMiddleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("panic", err).Str("module", "hertzapi").Str("path", string(ctx.Path())).Msg("recovered")
				ctx.String(consts.StatusInternalServerError, "Internal Server Error")
			}
		}()
		ctx.Next(c)
	}
}

// loggerMiddleware 日志中间件
func loggerMiddleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)
		log.Debug().
			Str("module", "hertzapi").
			Str("method", string(ctx.Method())).
			Str("path", string(ctx.Path())).
			Int("status", ctx.Response.StatusCode()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// handleGetSession 获取会话状态处理函数
func handleGetSession(sess *session.Session) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		state := sess.State()
		ilog.EventInfo(c, "GetSession", "count", state.Count, "history", len(state.History))
		ctx.JSON(consts.StatusOK, state)
	}
}
