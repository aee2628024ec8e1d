package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sharetube/watchsync/internal/client"
	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/pkg/ctxlogger"
)

func main() {
	v := viper.New()
	v.SetEnvPrefix("WATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "watch",
		Short: "Join a room and follow its playback with a simulated player",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), v)
		},
		SilenceUsage: true,
	}

	flags := rootCmd.Flags()
	flags.String("url", "ws://localhost:80/api/v1/ws", "Server websocket url")
	flags.String("room", "", "Room code to join")
	flags.String("username", "", "Display name, guest name when empty")
	flags.String("video", "", "Video id or url to load after joining")
	flags.Duration("interval", time.Second, "Reconcile interval")
	flags.Duration("dial-timeout", 10*time.Second, "Handshake timeout")
	flags.String("log-level", "INFO", "Logging level")
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runWatch(ctx context.Context, v *viper.Viper) error {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(strings.ToUpper(v.GetString("log-level")))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger := slog.New(&ctxlogger.ContextHandler{
		Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	})

	code := v.GetString("room")
	if code == "" {
		return errors.New("room is required")
	}

	err := run(ctx, v.GetString("url"), code, v.GetString("username"), v.GetString("video"),
		v.GetDuration("interval"), v.GetDuration("dial-timeout"), logger)
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func run(ctx context.Context, url, code, username, video string, interval, dialTimeout time.Duration, logger *slog.Logger) error {
	clock := clockwork.NewRealClock()

	conn, err := client.Dial(ctx, url, dialTimeout, logger)
	if err != nil {
		return err
	}

	player := client.NewSimPlayer(clock)
	engine := client.NewEngine(player, conn, clock, client.DefaultConfig(), logger)
	player.OnStateChange(func(state domain.PlayerState) {
		if err := engine.OnPlayerStateChange(ctx, state); err != nil {
			logger.Warn("failed to emit player change", "error", err)
		}
	})

	if err := conn.Join(code, username); err != nil {
		conn.Close()
		return err
	}
	logger.Info("joined room", "room_code", code)

	if video != "" {
		if err := engine.SetVideo(ctx, video); err != nil {
			conn.Close()
			return err
		}
	}

	go func() {
		ticker := clock.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				ref, ok := engine.Reference()
				if !ok {
					continue
				}
				logger.Info("playback",
					"video_id", player.VideoID(),
					"state", player.State().String(),
					"position", player.CurrentTime(),
					"target", engine.LiveTarget(),
					"seq", ref.Seq,
				)
			}
		}
	}()

	return client.Run(ctx, conn, engine, clock, interval, func(f client.Frame) {
		logger.Info("message", "type", f.Type, "payload", string(f.Payload))
	}, logger)
}
