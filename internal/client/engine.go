package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/pkg/ytvideodata"
)

var ErrStale = errors.New("stale broadcast")

// Emitter sends control events to the room.
type Emitter interface {
	Control(ctx context.Context, eventType domain.EventType, payload any) error
}

type Config struct {
	// Tolerance is the drift in seconds accepted before a hard seek.
	Tolerance          float64
	GuardWindow        time.Duration
	AutoplayCheckDelay time.Duration
	// EstimateSkew offsets the local clock by the difference between the
	// server stamp of the latest broadcast and its local receipt time.
	EstimateSkew bool
}

func DefaultConfig() Config {
	return Config{
		Tolerance:          2,
		GuardWindow:        100 * time.Millisecond,
		AutoplayCheckDelay: 200 * time.Millisecond,
	}
}

type Engine struct {
	player  Player
	emitter Emitter
	clock   clockwork.Clock
	config  Config
	logger  *slog.Logger

	mu       sync.Mutex
	ref      domain.PlaybackState
	hasRef   bool
	skewMs   int64
	autoplay clockwork.Timer

	// guard state has its own lock: player callbacks may fire while mu is
	// held by a reconcile pass.
	guardMu    sync.Mutex
	applying   bool
	guardUntil time.Time
}

func NewEngine(player Player, emitter Emitter, clock clockwork.Clock, config Config, logger *slog.Logger) *Engine {
	return &Engine{
		player:  player,
		emitter: emitter,
		clock:   clock,
		config:  config,
		logger:  logger,
	}
}

// Reference returns the latest authoritative state and whether there is one.
func (e *Engine) Reference() (domain.PlaybackState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.ref, e.hasRef
}

// OnSnapshot replaces the reference state and reconciles.
func (e *Engine) OnSnapshot(state domain.PlaybackState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ref = state
	e.hasRef = true
	e.reconcile()
}

type broadcastMeta struct {
	At  int64  `json:"at"`
	Seq uint64 `json:"seq"`
}

// OnControl applies a control broadcast to the reference state. Broadcasts
// not newer than the reference are dropped with ErrStale.
func (e *Engine) OnControl(eventType domain.EventType, payload json.RawMessage) error {
	var meta broadcastMeta
	if err := json.Unmarshal(payload, &meta); err != nil {
		return fmt.Errorf("failed to decode broadcast: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.hasRef && meta.Seq <= e.ref.Seq {
		return ErrStale
	}

	base := e.ref
	if !e.hasRef {
		base = domain.NewPlaybackState(meta.At)
	}

	next, _, err := domain.Reduce(base, eventType, payload, meta.At)
	if err != nil {
		return fmt.Errorf("failed to apply broadcast: %w", err)
	}
	next.StampMs = meta.At
	next.Seq = meta.Seq

	if e.config.EstimateSkew {
		e.skewMs = meta.At - e.clock.Now().UnixMilli()
	}

	e.ref = next
	e.hasRef = true
	e.reconcile()

	return nil
}

func (e *Engine) liveTarget(now time.Time) float64 {
	return e.ref.LivePosition(now.UnixMilli() + e.skewMs)
}

// LiveTarget is where playback should be right now.
func (e *Engine) LiveTarget() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.liveTarget(e.clock.Now())
}

// Reconcile moves the player towards the reference state.
func (e *Engine) Reconcile() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reconcile()
}

func (e *Engine) reconcile() {
	if !e.hasRef || e.ref.VideoID == "" {
		return
	}

	e.beginApplying()
	defer e.endApplying()

	target := math.Max(0, e.liveTarget(e.clock.Now()))

	if e.player.VideoID() != e.ref.VideoID {
		e.player.Load(e.ref.VideoID, target)
	} else if math.Abs(e.player.CurrentTime()-target) > e.config.Tolerance {
		e.player.Seek(target)
	}

	if e.player.Rate() != e.ref.Rate {
		e.player.SetRate(e.ref.Rate)
	}

	state := e.player.State()
	switch e.ref.PlayerState {
	case domain.PlayerStatePlaying:
		if state != domain.PlayerStatePlaying {
			e.player.Play()
			e.scheduleAutoplayCheck()
		}
	case domain.PlayerStatePaused:
		if state != domain.PlayerStatePaused && state != domain.PlayerStateBuffering {
			e.player.Pause()
		}
	}
}

// scheduleAutoplayCheck retries a refused play muted, which autoplay
// policies allow.
func (e *Engine) scheduleAutoplayCheck() {
	if e.autoplay != nil {
		e.autoplay.Stop()
	}

	e.autoplay = e.clock.AfterFunc(e.config.AutoplayCheckDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		if e.ref.PlayerState != domain.PlayerStatePlaying || e.player.State() == domain.PlayerStatePlaying {
			return
		}

		e.logger.Debug("play refused, retrying muted")
		e.beginApplying()
		e.player.Mute()
		e.player.Play()
		e.player.Unmute()
		e.endApplying()
	})
}

func (e *Engine) beginApplying() {
	e.guardMu.Lock()
	defer e.guardMu.Unlock()

	e.applying = true
}

func (e *Engine) endApplying() {
	e.guardMu.Lock()
	defer e.guardMu.Unlock()

	e.applying = false
	e.guardUntil = e.clock.Now().Add(e.config.GuardWindow)
}

// Suppressed reports whether player callbacks are currently echoes of a
// reconcile pass.
func (e *Engine) Suppressed() bool {
	e.guardMu.Lock()
	defer e.guardMu.Unlock()

	return e.applying || e.clock.Now().Before(e.guardUntil)
}

// OnPlayerStateChange turns a user action on the local player into a control
// event. Changes caused by reconciling are ignored.
func (e *Engine) OnPlayerStateChange(ctx context.Context, state domain.PlayerState) error {
	if e.Suppressed() {
		return nil
	}

	switch state {
	case domain.PlayerStatePlaying:
		return e.Play(ctx)
	case domain.PlayerStatePaused:
		return e.Pause(ctx)
	default:
		return nil
	}
}

func (e *Engine) SetVideo(ctx context.Context, input string) error {
	videoID, err := ytvideodata.ParseID(input)
	if err != nil {
		return err
	}

	return e.emitter.Control(ctx, domain.EventSetVideo, map[string]any{"videoId": videoID})
}

func (e *Engine) Play(ctx context.Context) error {
	return e.emitter.Control(ctx, domain.EventPlay, map[string]any{"position": e.player.CurrentTime()})
}

func (e *Engine) Pause(ctx context.Context) error {
	return e.emitter.Control(ctx, domain.EventPause, map[string]any{"position": e.player.CurrentTime()})
}

func (e *Engine) Seek(ctx context.Context, position float64) error {
	return e.emitter.Control(ctx, domain.EventSeek, map[string]any{"position": position})
}

func (e *Engine) SetRate(ctx context.Context, rate float64) error {
	return e.emitter.Control(ctx, domain.EventRate, map[string]any{"rate": rate})
}
