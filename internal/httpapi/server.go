package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/RanFeng/ilog"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"couchsync/internal/protocol"
	"couchsync/internal/session"
)

type Server struct {
	session *session.Session
	ws      http.Handler
	router  *echo.Echo
}

func NewServer(sess *session.Session, wsHandler http.Handler, staticPath string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug().
				Str("module", "httpapi").
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())

	server := &Server{
		session: sess,
		ws:      wsHandler,
		router:  e,
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/api/session", server.handleGetSession)
	e.GET("/ws", server.handleWebSocket)

	if info, err := os.Stat(staticPath); err == nil && info.IsDir() {
		e.Static("/static", staticPath)
		e.GET("/", func(c echo.Context) error {
			return c.File(filepath.Join(staticPath, "index.html"))
		})
	}

	e.HTTPErrorHandler = server.handleError

	return server
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleGetSession(c echo.Context) error {
	state := s.session.State()
	ilog.EventInfo(c.Request().Context(), "GetSession", "count", state.Count, "history", len(state.History))
	return c.JSON(http.StatusOK, state)
}

func (s *Server) handleWebSocket(c echo.Context) error {
	// The websocket handler takes over the connection; returning nil keeps
	// echo from writing a response of its own.
	s.ws.ServeHTTP(c.Response(), c.Request())
	return nil
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	code := "internal_error"
	message := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		code = errorCode(he.Code)
		if m, ok := he.Message.(string); ok {
			message = m
		}
	}
	_ = respondError(c, status, code, message)
}

// errorCode turns an HTTP status into a snake_case error code,
// e.g. 404 -> not_found.
func errorCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "http_error"
	}
	return strings.ToLower(strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(text))
}

func respondError(c echo.Context, status int, code, message string) error {
	return c.JSON(status, protocol.Envelope{
		Kind: protocol.KindError,
		Data: protocol.ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}
