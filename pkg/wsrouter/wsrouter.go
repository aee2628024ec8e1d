package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrUnknownType    = errors.New("unknown message type")
	ErrInvalidPayload = errors.New("invalid payload")
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc[T any] func(ctx context.Context, conn *websocket.Conn, payload T) error

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

// ErrorHandler is called with every error produced while routing a message.
// The connection keeps being served afterwards.
type ErrorHandler func(ctx context.Context, conn *websocket.Conn, err error)

type WSRouter struct {
	routes      map[string]HandlerFunc[any]
	middlewares []Middleware
	onError     ErrorHandler
	readTimeout time.Duration
}

func New() *WSRouter {
	return &WSRouter{
		routes:  make(map[string]HandlerFunc[any]),
		onError: func(context.Context, *websocket.Conn, error) {},
	}
}

func (r *WSRouter) Use(mws ...Middleware) {
	r.middlewares = append(r.middlewares, mws...)
}

func (r *WSRouter) OnError(handler ErrorHandler) {
	r.onError = handler
}

// SetReadTimeout sets how long ServeConn waits for the next frame. Pong
// handlers may extend the deadline in between.
func (r *WSRouter) SetReadTimeout(d time.Duration) {
	r.readTimeout = d
}

// AddRoute registers handler for messageType. The raw payload is decoded
// into T before the handler runs; a missing payload leaves T zero.
func AddRoute[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	r.routes[messageType] = func(ctx context.Context, conn *websocket.Conn, payload any) error {
		var input T
		if raw, ok := payload.(json.RawMessage); ok && len(raw) > 0 {
			if err := json.Unmarshal(raw, &input); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
			}
		}

		return handler(ctx, conn, input)
	}
}

func (r *WSRouter) handler(messageType string) (HandlerFunc[any], bool) {
	h, ok := r.routes[messageType]
	if !ok {
		return nil, false
	}

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}

	return h, true
}

// ServeConn reads frames until the connection fails and dispatches each one
// to its route. It returns the read error.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		if r.readTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(r.readTimeout)); err != nil {
				return err
			}
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			r.onError(ctx, conn, fmt.Errorf("%w: %w", ErrInvalidMessage, err))
			continue
		}
		if msg.Type == "" {
			r.onError(ctx, conn, fmt.Errorf("%w: missing type", ErrInvalidMessage))
			continue
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		handler, ok := r.handler(msg.Type)
		if !ok {
			r.onError(msgCtx, conn, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type))
			continue
		}

		if err := handler(msgCtx, conn, msg.Payload); err != nil {
			r.onError(msgCtx, conn, err)
		}
	}
}
