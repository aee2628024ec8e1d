package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchsync/internal/domain"
)

var ErrNotJoined = errors.New("not joined to a room")

type Status int

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Frame is one server message.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Conn is the client side of the room websocket.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	logger       *slog.Logger

	mu     sync.Mutex
	status Status
	code   string
}

// Dial connects to the server websocket endpoint.
func Dial(ctx context.Context, url string, timeout time.Duration, logger *slog.Logger) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	return &Conn{
		ws:           ws,
		writeTimeout: timeout,
		logger:       logger,
		status:       StatusConnected,
	}, nil
}

func (c *Conn) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status
}

func (c *Conn) write(msgType string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusConnected {
		return websocket.ErrCloseSent
	}

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}

	return c.ws.WriteJSON(outbound{Type: msgType, Payload: payload})
}

func (c *Conn) roomCode() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.code == "" {
		return "", ErrNotJoined
	}

	return c.code, nil
}

// Join enters the room. The server answers with a SNAPSHOT.
func (c *Conn) Join(code, username string) error {
	if err := c.write("join", map[string]string{"code": code, "username": username}); err != nil {
		return fmt.Errorf("failed to join: %w", err)
	}

	c.mu.Lock()
	c.code = code
	c.mu.Unlock()

	return nil
}

// Control sends a control event for the joined room.
func (c *Conn) Control(_ context.Context, eventType domain.EventType, payload any) error {
	code, err := c.roomCode()
	if err != nil {
		return err
	}

	return c.write("control", map[string]any{"code": code, "type": eventType, "payload": payload})
}

func (c *Conn) Chat(content string, replyToID string) error {
	code, err := c.roomCode()
	if err != nil {
		return err
	}

	message := map[string]any{"content": content}
	if replyToID != "" {
		message["replyToId"] = replyToID
	}

	return c.write("chat", map[string]any{"code": code, "message": message})
}

func (c *Conn) RequestChats() error {
	code, err := c.roomCode()
	if err != nil {
		return err
	}

	return c.write("GET_CHATS", map[string]string{"code": code})
}

// ReadLoop delivers frames to handle until the connection closes.
func (c *Conn) ReadLoop(handle func(Frame)) error {
	defer c.setStatus(StatusDisconnected)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Warn("failed to decode frame", "error", err)
			continue
		}

		handle(f)
	}
}

func (c *Conn) setStatus(status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = status
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusDisconnected {
		return nil
	}
	c.status = StatusDisconnected

	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))

	return c.ws.Close()
}
