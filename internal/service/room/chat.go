package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/internal/gateway"
	"github.com/sharetube/watchsync/internal/repository/chat"
	"github.com/sharetube/watchsync/internal/repository/room"
	"github.com/sharetube/watchsync/internal/repository/room/inmemory"
)

func toChatMessage(msg chat.Message) domain.ChatMessage {
	out := domain.ChatMessage{
		ID:        msg.ID,
		Content:   msg.Content,
		Username:  msg.Username,
		CreatedAt: time.UnixMilli(msg.CreatedAt).UTC(),
	}
	if msg.ReplyToID != "" {
		replyToID := msg.ReplyToID
		out.ReplyToID = &replyToID
	}

	return out
}

func (s *service) memberUsername(code, connID string) string {
	r, ok := s.roomRepo.Get(code)
	if !ok {
		return ""
	}

	for _, m := range r.Members {
		if m.ConnID == connID {
			return m.Username
		}
	}

	return ""
}

// Chat stores the message and broadcasts it to the room. The author name is
// taken from the message, then from the sender's membership.
func (s *service) Chat(ctx context.Context, params *ChatParams) (ChatResponse, error) {
	if err := validation.Validate(params.Code, RoomCodeRule...); err != nil {
		return ChatResponse{}, fmt.Errorf("%w: code: %w", ErrInvalidParams, err)
	}
	if err := validation.Validate(params.Content, ChatContentRule...); err != nil {
		return ChatResponse{}, fmt.Errorf("%w: content: %w", ErrInvalidParams, err)
	}
	if err := validation.Validate(params.Username, UsernameRule...); err != nil {
		return ChatResponse{}, fmt.Errorf("%w: username: %w", ErrInvalidParams, err)
	}
	if err := validation.Validate(params.ReplyToID, ReplyToIdRule...); err != nil {
		return ChatResponse{}, fmt.Errorf("%w: replyToId: %w", ErrInvalidParams, err)
	}

	username := params.Username
	if username == "" {
		username = s.memberUsername(params.Code, params.ConnID)
	}
	if username == "" {
		username = "Guest"
	}

	msg := chat.Message{
		ID:        uuid.NewString(),
		RoomCode:  params.Code,
		Username:  username,
		Content:   params.Content,
		ReplyToID: params.ReplyToID,
		CreatedAt: s.nowMs(),
	}
	if err := s.chatRepo.AddMessage(ctx, &msg); err != nil {
		return ChatResponse{}, fmt.Errorf("failed to add message: %w", err)
	}

	out := toChatMessage(msg)
	if err := s.roomRepo.Apply(params.Code, func(e *inmemory.Entry) error {
		return s.sender.Broadcast(ctx, e.ConnIDs(""), &gateway.Message{
			Type:    domain.MessageChat,
			Payload: out,
		})
	}); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
		return ChatResponse{}, fmt.Errorf("failed to broadcast message: %w", err)
	}

	return ChatResponse{Message: out}, nil
}

// ChatHistory sends the room's recent messages, oldest first, to the
// requesting connection only.
func (s *service) ChatHistory(ctx context.Context, params *ChatHistoryParams) (ChatHistoryResponse, error) {
	if err := validation.Validate(params.Code, RoomCodeRule...); err != nil {
		return ChatHistoryResponse{}, fmt.Errorf("%w: code: %w", ErrInvalidParams, err)
	}

	stored, err := s.chatRepo.GetMessages(ctx, params.Code, s.config.ChatHistoryLimit)
	if err != nil {
		return ChatHistoryResponse{}, fmt.Errorf("failed to get messages: %w", err)
	}

	messages := make([]domain.ChatMessage, 0, len(stored))
	for _, msg := range stored {
		messages = append(messages, toChatMessage(msg))
	}

	if err := s.sender.Send(ctx, params.ConnID, &gateway.Message{
		Type:    domain.MessageChatHistory,
		Payload: messages,
	}); err != nil {
		return ChatHistoryResponse{}, fmt.Errorf("failed to send chat history: %w", err)
	}

	return ChatHistoryResponse{Messages: messages}, nil
}
