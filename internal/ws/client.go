package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/mcoot/roomhub/internal/realtime"
)

// ErrSendBufferFull is returned when a slow client has not drained its queue
var ErrSendBufferFull = errors.New("send buffer full")

// Time allowed for the disconnect path to finish its store writes
const disconnectTimeout = 10 * time.Second

// Config tunes a single socket
type Config struct {
	// PongWait is how long a connection may stay silent before the read fails
	PongWait time.Duration
	// WriteWait bounds every frame write
	WriteWait time.Duration
	// SendBufferSize is the number of outbound frames queued per connection
	SendBufferSize int
	// MaxFrameBytes caps inbound frames
	MaxFrameBytes int64
	// InboundRate and InboundBurst throttle frames read from one connection
	InboundRate  rate.Limit
	InboundBurst int
}

// DefaultConfig returns the default socket settings
func DefaultConfig() Config {
	return Config{
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		SendBufferSize: 256,
		MaxFrameBytes:  64 * 1024,
		InboundRate:    20,
		InboundBurst:   40,
	}
}

// Client is one WebSocket connection. It satisfies realtime.Conn so the engine can
// register it and the fanout can queue frames on it.
type Client struct {
	id      string
	conn    *websocket.Conn
	handler Handler
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger

	send      chan []byte
	done      chan struct{}
	open      atomic.Bool
	closeOnce sync.Once
}

var _ realtime.Conn = (*Client)(nil)

func newClient(conn *websocket.Conn, handler Handler, cfg Config, logger *slog.Logger) *Client {
	id := uuid.NewString()
	c := &Client{
		id:      id,
		conn:    conn,
		handler: handler,
		cfg:     cfg,
		limiter: rate.NewLimiter(cfg.InboundRate, cfg.InboundBurst),
		logger:  logger.With(slog.String("conn_id", id)),
		send:    make(chan []byte, cfg.SendBufferSize),
		done:    make(chan struct{}),
	}
	c.open.Store(true)
	return c
}

func (c *Client) ID() string { return c.id }

// Send queues a frame for the write pump without blocking
func (c *Client) Send(data []byte) error {
	if !c.open.Load() {
		return realtime.ErrConnClosed
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return realtime.ErrConnClosed
	default:
		return ErrSendBufferFull
	}
}

// Ping writes a ping control frame; WriteControl is safe alongside the write pump
func (c *Client) Ping() error {
	if !c.open.Load() {
		return realtime.ErrConnClosed
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteWait))
}

func (c *Client) IsOpen() bool {
	return c.open.Load()
}

// Close shuts the connection down and runs the disconnect path exactly once
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.open.Store(false)
		close(c.done)

		ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancel()
		c.handler.Disconnect(ctx, c)
		c.logger.Info("connection closed")
	})
}

// run pumps the connection until it closes. Frames are dispatched one at a time so a
// client's events are handled in the order they were sent.
func (c *Client) run(ctx context.Context) {
	go c.writePump()
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer c.Close()

	c.conn.SetReadLimit(c.cfg.MaxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read failed", slog.Any("error", err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		if messageType != websocket.TextMessage {
			continue
		}

		// Wait rather than drop so throttled frames keep their order
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}
		c.handler.Dispatch(ctx, c, data)
	}
}

func (c *Client) writePump() {
	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("write failed", slog.Any("error", err))
				c.Close()
				_ = c.conn.Close()
				return
			}

		case <-c.done:
			deadline := time.Now().Add(c.cfg.WriteWait)
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			_ = c.conn.Close()
			return
		}
	}
}
