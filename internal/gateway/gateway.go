package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sharetube/watchsync/internal/repository/connection"
)

// Message is the envelope of every frame sent to clients.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type iConnRepo interface {
	Add(conn connection.Conn) error
	RemoveByID(connID string) (connection.Conn, error)
	GetConn(connID string) (connection.Conn, error)
	All() []connection.Conn
}

type Gateway struct {
	connRepo iConnRepo
	logger   *slog.Logger
}

func New(connRepo iConnRepo, logger *slog.Logger) *Gateway {
	return &Gateway{
		connRepo: connRepo,
		logger:   logger,
	}
}

func (g *Gateway) Register(conn connection.Conn) error {
	if err := g.connRepo.Add(conn); err != nil {
		return fmt.Errorf("failed to add connection: %w", err)
	}

	return nil
}

// Unregister forgets and closes the connection. Unknown ids are ignored.
func (g *Gateway) Unregister(connID string) {
	conn, err := g.connRepo.RemoveByID(connID)
	if err != nil {
		return
	}

	conn.Close()
}

// CloseAll closes every registered connection. Readers notice and run their
// own cleanup.
func (g *Gateway) CloseAll() {
	conns := g.connRepo.All()
	for _, conn := range conns {
		conn.Close()
	}

	g.logger.Info("closed connections", "count", len(conns))
}

func (g *Gateway) enqueue(ctx context.Context, connID string, data []byte) error {
	conn, err := g.connRepo.GetConn(connID)
	if err != nil {
		return err
	}

	if err := conn.Send(data); err != nil {
		g.logger.WarnContext(ctx, "message dropped", "conn_id", connID, "error", err)
		return err
	}

	return nil
}

// Send enqueues msg for one connection.
func (g *Gateway) Send(ctx context.Context, connID string, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := g.enqueue(ctx, connID, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// Broadcast encodes msg once and enqueues it for every connection. Delivery
// is best effort: a failing recipient does not affect the others.
func (g *Gateway) Broadcast(ctx context.Context, connIDs []string, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	for _, connID := range connIDs {
		_ = g.enqueue(ctx, connID, data)
	}

	g.logger.DebugContext(ctx, "message broadcasted", "type", msg.Type, "recipients", len(connIDs))

	return nil
}
