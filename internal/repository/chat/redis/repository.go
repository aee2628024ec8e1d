package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchsync/internal/repository/chat"
)

type repo struct {
	rc           *redis.Client
	ttl          time.Duration
	historyLimit int
	logger       *slog.Logger
}

// NewRepo stores at most historyLimit messages per room; everything expires
// ttl after the last message in the room.
func NewRepo(rc *redis.Client, ttl time.Duration, historyLimit int, logger *slog.Logger) *repo {
	return &repo{
		rc:           rc,
		ttl:          ttl,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

func (r repo) getMessageKey(messageId string) string {
	return "chat:" + messageId
}

func (r repo) getChatKey(roomCode string) string {
	return "room:" + roomCode + ":chat"
}

func (r repo) AddMessage(ctx context.Context, msg *chat.Message) error {
	r.logger.DebugContext(ctx, "called", "message_id", msg.ID, "room_code", msg.RoomCode)
	if msg.Content == "" {
		return chat.ErrEmptyMessage
	}

	pipe := r.rc.TxPipeline()

	messageKey := r.getMessageKey(msg.ID)
	r.hSetStruct(ctx, pipe, messageKey, msg)
	pipe.Expire(ctx, messageKey, r.ttl)

	chatKey := r.getChatKey(msg.RoomCode)
	pipe.RPush(ctx, chatKey, msg.ID)
	pipe.LTrim(ctx, chatKey, -int64(r.historyLimit), -1)
	pipe.Expire(ctx, chatKey, r.ttl)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to store message: %w", err)
	}

	return nil
}

// GetMessages returns up to limit of the most recent messages, oldest first.
// A non-positive limit means the configured history limit.
func (r repo) GetMessages(ctx context.Context, roomCode string, limit int) ([]chat.Message, error) {
	if limit <= 0 || limit > r.historyLimit {
		limit = r.historyLimit
	}

	ids, err := r.rc.LRange(ctx, r.getChatKey(roomCode), -int64(limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get message ids: %w", err)
	}
	if len(ids) == 0 {
		return []chat.Message{}, nil
	}

	pipe := r.rc.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(ids))
	for _, id := range ids {
		cmds = append(cmds, pipe.HGetAll(ctx, r.getMessageKey(id)))
	}
	if err := r.executePipe(ctx, pipe); err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	messages := make([]chat.Message, 0, len(cmds))
	for _, cmd := range cmds {
		// expired independently of the list
		if len(cmd.Val()) == 0 {
			continue
		}

		var msg chat.Message
		if err := cmd.Scan(&msg); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, nil
}
