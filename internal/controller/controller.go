package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/sharetube/watchsync/internal/gateway"
	"github.com/sharetube/watchsync/internal/repository/connection"
	"github.com/sharetube/watchsync/internal/service/room"
	"github.com/sharetube/watchsync/pkg/validator"
	"github.com/sharetube/watchsync/pkg/wsrouter"
	"github.com/sharetube/watchsync/pkg/ytvideodata"
)

type iRoomService interface {
	Join(context.Context, *room.JoinParams) (room.JoinResponse, error)
	Control(context.Context, *room.ControlParams) (room.ControlResponse, error)
	Chat(context.Context, *room.ChatParams) (room.ChatResponse, error)
	ChatHistory(context.Context, *room.ChatHistoryParams) (room.ChatHistoryResponse, error)
	Disconnect(ctx context.Context, connID string) (room.DisconnectResponse, error)
	GetRoom(ctx context.Context, code string) (room.GetRoomResponse, error)
	RoomCodes() []string
}

type iGateway interface {
	Register(conn connection.Conn) error
	Unregister(connID string)
	Send(ctx context.Context, connID string, msg *gateway.Message) error
}

type iVideoData interface {
	Get(ctx context.Context, videoId string) (*ytvideodata.VideoData, error)
}

type Config struct {
	Conn gateway.Config
	// ReadTimeout is how long a connection may stay silent, pongs included.
	ReadTimeout    time.Duration
	MaxMessageSize int64
	CORSOrigins    []string
}

func DefaultConfig() Config {
	return Config{
		Conn:           gateway.DefaultConfig(),
		ReadTimeout:    60 * time.Second,
		MaxMessageSize: 64 * 1024,
	}
}

type controller struct {
	roomService iRoomService
	gateway     iGateway
	videoData   iVideoData
	clock       clockwork.Clock
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsmux       *wsrouter.WSRouter
	config      Config
	logger      *slog.Logger
}

func NewController(roomService iRoomService, gw iGateway, videoData iVideoData, clock clockwork.Clock, config Config, logger *slog.Logger) *controller {
	c := &controller{
		roomService: roomService,
		clock:       clock,
		gateway:     gw,
		videoData:   videoData,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		config:   config,
		logger:   logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
