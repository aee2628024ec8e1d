package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/watchsync/internal/controller"
	"github.com/sharetube/watchsync/internal/gateway"
	chatRedis "github.com/sharetube/watchsync/internal/repository/chat/redis"
	connInmemory "github.com/sharetube/watchsync/internal/repository/connection/inmemory"
	roomInmemory "github.com/sharetube/watchsync/internal/repository/room/inmemory"
	"github.com/sharetube/watchsync/internal/service/room"
	"github.com/sharetube/watchsync/pkg/ctxlogger"
	"github.com/sharetube/watchsync/pkg/redisclient"
	"github.com/sharetube/watchsync/pkg/ytvideodata"
)

type AppConfig struct {
	Host             string        `json:"host"`
	Port             int           `json:"port"`
	LogLevel         string        `json:"log_level"`
	SendQueueSize    int           `json:"send_queue_size"`
	WriteTimeout     time.Duration `json:"write_timeout"`
	ChatHistoryLimit int           `json:"chat_history_limit"`
	ChatTTL          time.Duration `json:"chat_ttl"`
	CORSOrigins      []string      `json:"cors_origins"`
	RedisPort        int           `json:"redis_port"`
	RedisHost        string        `json:"redis_host"`
	RedisPassword    string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if cfg.SendQueueSize < 1 {
		return fmt.Errorf("send queue size must be greater than 0")
	}
	if cfg.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be greater than 0")
	}
	if cfg.ChatHistoryLimit < 1 {
		return fmt.Errorf("chat history limit must be greater than 0")
	}
	if cfg.ChatTTL <= 0 {
		return fmt.Errorf("chat ttl must be greater than 0")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return err
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	clock := clockwork.NewRealClock()
	gw := gateway.New(connInmemory.NewRepo(logger), logger)
	roomService := room.NewService(
		roomInmemory.NewRepo(clock, logger),
		gw,
		chatRedis.NewRepo(rc, cfg.ChatTTL, cfg.ChatHistoryLimit, logger),
		clock,
		room.Config{ChatHistoryLimit: cfg.ChatHistoryLimit},
		logger,
	)

	controllerConfig := controller.DefaultConfig()
	controllerConfig.Conn.SendQueueSize = cfg.SendQueueSize
	controllerConfig.Conn.WriteTimeout = cfg.WriteTimeout
	controllerConfig.CORSOrigins = cfg.CORSOrigins
	controller := controller.NewController(roomService, gw, ytvideodata.NewClient(), clock, controllerConfig, logger)

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}
	// hijacked websocket connections are not closed by Shutdown
	server.RegisterOnShutdown(gw.CloseAll)

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-serverCtx.Done()

	return nil
}
