package gateway

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrQueueFull = errors.New("send queue full")
	ErrClosed    = errors.New("connection closed")
)

type Config struct {
	SendQueueSize int
	WriteTimeout  time.Duration
	PingInterval  time.Duration
}

func DefaultConfig() Config {
	return Config{
		SendQueueSize: 256,
		WriteTimeout:  10 * time.Second,
		PingInterval:  30 * time.Second,
	}
}

// Conn is a websocket connection with a bounded outbound queue. A single
// writer goroutine drains the queue, so frames leave in enqueue order.
type Conn struct {
	id        string
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	config    Config
	logger    *slog.Logger
}

func newConn(ws *websocket.Conn, config Config, logger *slog.Logger) *Conn {
	id := uuid.NewString()
	return &Conn{
		id:     id,
		ws:     ws,
		send:   make(chan []byte, config.SendQueueSize),
		done:   make(chan struct{}),
		config: config,
		logger: logger.With("conn_id", id),
	}
}

// NewConn wraps ws and starts its writer. The caller keeps reading from ws
// and must call Close when reading stops.
func NewConn(ws *websocket.Conn, config Config, logger *slog.Logger) *Conn {
	c := newConn(ws, config, logger)
	go c.writePump()

	return c
}

func (c *Conn) ID() string {
	return c.id
}

// Done is closed once the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Send enqueues msg without blocking. A full queue closes the connection.
func (c *Conn) Send(msg []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		c.logger.Warn("send queue full, closing connection")
		c.Close()
		return ErrQueueFull
	}
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})

	return nil
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			c.ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.config.WriteTimeout),
			)
			return
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Info("failed to write message", "error", err)
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.config.WriteTimeout)); err != nil {
				c.logger.Info("failed to write ping", "error", err)
				c.Close()
				return
			}
		}
	}
}
