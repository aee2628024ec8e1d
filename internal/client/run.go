package client

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/watchsync/internal/domain"
)

// Dispatch routes one server frame. Frames the engine does not consume go to
// other, which may be nil.
func Dispatch(engine *Engine, f Frame, other func(Frame), logger *slog.Logger) {
	eventType := domain.EventType(f.Type)
	switch {
	case f.Type == domain.MessageSnapshot:
		var state domain.PlaybackState
		if err := json.Unmarshal(f.Payload, &state); err != nil {
			logger.Warn("failed to decode snapshot", "error", err)
			return
		}
		engine.OnSnapshot(state)
	case eventType.Valid():
		if err := engine.OnControl(eventType, f.Payload); err != nil {
			if errors.Is(err, ErrStale) {
				logger.Debug("discarded stale broadcast", "type", f.Type)
				return
			}
			logger.Warn("failed to apply broadcast", "type", f.Type, "error", err)
		}
	case f.Type == domain.MessageError:
		logger.Warn("server error", "payload", string(f.Payload))
	default:
		if other != nil {
			other(f)
		}
	}
}

// Run reads frames from conn and reconciles the player every interval until
// ctx is done or the connection drops.
func Run(ctx context.Context, conn *Conn, engine *Engine, clock clockwork.Clock, interval time.Duration, other func(Frame), logger *slog.Logger) error {
	readErr := make(chan error, 1)
	go func() {
		readErr <- conn.ReadLoop(func(f Frame) {
			Dispatch(engine, f, other, logger)
		})
	}()

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close()
			<-readErr
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-ticker.Chan():
			engine.Reconcile()
		}
	}
}
