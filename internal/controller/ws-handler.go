package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/internal/gateway"
	"github.com/sharetube/watchsync/internal/service/room"
	"github.com/sharetube/watchsync/pkg/ctxlogger"
)

func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	ws.SetReadLimit(c.config.MaxMessageSize)
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	})

	conn := gateway.NewConn(ws, c.config.Conn, c.logger)
	if err := c.gateway.Register(conn); err != nil {
		c.logger.WarnContext(r.Context(), "failed to register connection", "error", err)
		conn.Close()
		return
	}

	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("conn_id", conn.ID()))
	ctx = context.WithValue(ctx, connIDCtxKey, conn.ID())
	defer c.disconnect(ctx, conn.ID())

	c.logger.InfoContext(ctx, "connection opened")
	if err := c.wsmux.ServeConn(ctx, ws); err != nil {
		c.logger.InfoContext(ctx, "connection closed", "error", err)
	}
}

func (c controller) disconnect(ctx context.Context, connID string) {
	resp, err := c.roomService.Disconnect(ctx, connID)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to disconnect", "error", err)
	}
	c.gateway.Unregister(connID)

	c.logger.DebugContext(ctx, "disconnected", "left_rooms", resp.LeftRooms)
}

type JoinInput struct {
	Code     string `json:"code" validate:"required,max=64"`
	Username string `json:"username" validate:"max=32"`
}

func (c controller) handleJoin(ctx context.Context, _ *websocket.Conn, input JoinInput) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return errs
	}

	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_code", input.Code))
	resp, err := c.roomService.Join(ctx, &room.JoinParams{
		ConnID:   c.getConnIDFromCtx(ctx),
		Code:     input.Code,
		Username: input.Username,
	})
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	c.logger.InfoContext(ctx, "joined room", "username", resp.Member.Username, "members", len(resp.Members))

	return nil
}

type ControlInput struct {
	Code    string          `json:"code" validate:"required,max=64"`
	Type    string          `json:"type" validate:"required"`
	Payload json.RawMessage `json:"payload"`
}

func (c controller) handleControl(ctx context.Context, _ *websocket.Conn, input ControlInput) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return errs
	}

	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_code", input.Code))
	resp, err := c.roomService.Control(ctx, &room.ControlParams{
		ConnID:  c.getConnIDFromCtx(ctx),
		Code:    input.Code,
		Type:    domain.EventType(input.Type),
		Payload: input.Payload,
	})
	if err != nil {
		return fmt.Errorf("failed to process control event: %w", err)
	}

	c.logger.DebugContext(ctx, "control event applied", "event", input.Type, "seq", resp.State.Seq)

	return nil
}

type ChatMessageInput struct {
	Content   string `json:"content" validate:"required,max=2000"`
	Username  string `json:"username" validate:"max=32"`
	ReplyToID string `json:"replyToId"`
}

type ChatInput struct {
	Code    string           `json:"code" validate:"required,max=64"`
	Message ChatMessageInput `json:"message"`
}

func (c controller) handleChat(ctx context.Context, _ *websocket.Conn, input ChatInput) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return errs
	}

	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_code", input.Code))
	if _, err := c.roomService.Chat(ctx, &room.ChatParams{
		ConnID:    c.getConnIDFromCtx(ctx),
		Code:      input.Code,
		Content:   input.Message.Content,
		Username:  input.Message.Username,
		ReplyToID: input.Message.ReplyToID,
	}); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

type GetChatsInput struct {
	Code string `json:"code" validate:"required,max=64"`
}

func (c controller) handleGetChats(ctx context.Context, _ *websocket.Conn, input GetChatsInput) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return errs
	}

	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_code", input.Code))
	if _, err := c.roomService.ChatHistory(ctx, &room.ChatHistoryParams{
		ConnID: c.getConnIDFromCtx(ctx),
		Code:   input.Code,
	}); err != nil {
		return fmt.Errorf("failed to fetch chat history: %w", err)
	}

	return nil
}
