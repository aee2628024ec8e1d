package room

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/watchsync/internal/gateway"
	"github.com/sharetube/watchsync/internal/repository/chat"
	"github.com/sharetube/watchsync/internal/repository/room"
	"github.com/sharetube/watchsync/internal/repository/room/inmemory"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrInvalidParams = errors.New("invalid params")
)

type iRoomRepo interface {
	Get(code string) (room.Room, bool)
	Apply(code string, mutate func(*inmemory.Entry) error) error
	ApplyOrCreate(code string, mutate func(*inmemory.Entry) error) error
	Codes() []string
}

type iSender interface {
	Send(ctx context.Context, connID string, msg *gateway.Message) error
	Broadcast(ctx context.Context, connIDs []string, msg *gateway.Message) error
}

type iChatRepo interface {
	AddMessage(ctx context.Context, msg *chat.Message) error
	GetMessages(ctx context.Context, roomCode string, limit int) ([]chat.Message, error)
}

type Config struct {
	ChatHistoryLimit int
}

type service struct {
	roomRepo iRoomRepo
	sender   iSender
	chatRepo iChatRepo
	clock    clockwork.Clock
	config   Config
	logger   *slog.Logger
}

func NewService(roomRepo iRoomRepo, sender iSender, chatRepo iChatRepo, clock clockwork.Clock, config Config, logger *slog.Logger) *service {
	return &service{
		roomRepo: roomRepo,
		sender:   sender,
		chatRepo: chatRepo,
		clock:    clock,
		config:   config,
		logger:   logger,
	}
}

func (s *service) nowMs() int64 {
	return s.clock.Now().UnixMilli()
}

func (s *service) RoomCodes() []string {
	return s.roomRepo.Codes()
}
