package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"couchsync/internal/fanout"
)

// Conn is the subset of a websocket connection the pumps use. Both
// gorilla/websocket and hertz-contrib/websocket connections satisfy it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 64 << 10
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	return o
}

const writeWait = 5 * time.Second

// Client is one live connection: a bounded outbound queue drained by the
// write pump, and a read pump feeding the dispatcher.
type Client struct {
	id   string
	conn Conn
	send chan []byte
	opts Options

	mu     sync.RWMutex
	closed bool
}

func NewClient(id string, conn Conn, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, opts.SendBuffer),
		opts: opts,
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return fanout.ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return fanout.ErrBackpressure
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "ws").Str("conn", c.id).Msg("set write deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "ws").Str("conn", c.id).Msg("write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump(handle func(data []byte)) {
	pongWait := c.opts.PingPeriod * 10 / 9
	c.conn.SetReadLimit(c.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "ws").Str("conn", c.id).Msg("read error")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		handle(data)
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// Serve runs one connection to completion: it assigns a fresh connection
// id, attaches the client to the hub, pumps frames through the dispatcher
// and, once the peer goes away, detaches and leaves the session.
func Serve(ctx context.Context, conn Conn, hub *fanout.Hub, d *Dispatcher, opts Options) {
	c := NewClient(uuid.NewString(), conn, opts)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub.Attach(c.id, c)
	log.Info().Str("module", "ws").Str("conn", c.id).Msg("connected")

	go c.writePump(ctx)
	c.readPump(func(data []byte) {
		if err := d.Dispatch(c.id, data); err != nil {
			log.Warn().Err(err).Str("module", "ws").Str("conn", c.id).Msg("dispatch")
		}
	})

	hub.Detach(c.id)
	d.Disconnect(c.id)
	c.Close()
	log.Info().Str("module", "ws").Str("conn", c.id).Msg("disconnected")
}
