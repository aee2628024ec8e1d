package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/pkg/ytvideodata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const t0 = 1_700_000_000_000

type sentControl struct {
	Type    domain.EventType
	Payload map[string]any
}

type recordingEmitter struct {
	mu   sync.Mutex
	sent []sentControl
}

func (r *recordingEmitter) Control(_ context.Context, eventType domain.EventType, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sent = append(r.sent, sentControl{Type: eventType, Payload: payload.(map[string]any)})
	return nil
}

func (r *recordingEmitter) Sent() []sentControl {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]sentControl(nil), r.sent...)
}

type fixture struct {
	clock   *clockwork.FakeClock
	player  *SimPlayer
	emitter *recordingEmitter
	engine  *Engine
}

func newFixture(config Config) *fixture {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(t0))
	player := NewSimPlayer(clock)
	emitter := &recordingEmitter{}
	engine := NewEngine(player, emitter, clock, config, slog.Default())
	player.OnStateChange(func(state domain.PlayerState) {
		_ = engine.OnPlayerStateChange(context.Background(), state)
	})

	return &fixture{clock: clock, player: player, emitter: emitter, engine: engine}
}

func broadcast(t *testing.T, fields map[string]any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(fields)
	require.NoError(t, err)
	return data
}

func TestSnapshotJoinsMidPlayback(t *testing.T) {
	f := newFixture(DefaultConfig())

	f.engine.OnSnapshot(domain.PlaybackState{
		VideoID:     "dQw4w9WgXcQ",
		PlayerState: domain.PlayerStatePlaying,
		Position:    10,
		Rate:        1,
		StampMs:     t0 - 5000,
		Seq:         4,
	})

	assert.Equal(t, "dQw4w9WgXcQ", f.player.VideoID())
	assert.Equal(t, domain.PlayerStatePlaying, f.player.State())
	assert.InDelta(t, 15.0, f.player.CurrentTime(), 0.001)
	assert.Empty(t, f.emitter.Sent(), "reconciling never emits")
}

func TestStaleBroadcastDiscarded(t *testing.T) {
	f := newFixture(DefaultConfig())
	f.engine.OnSnapshot(domain.PlaybackState{VideoID: "dQw4w9WgXcQ", PlayerState: domain.PlayerStatePaused, Rate: 1, StampMs: t0, Seq: 3})

	err := f.engine.OnControl(domain.EventSeek, broadcast(t, map[string]any{"position": 99, "at": t0, "seq": 3}))
	require.ErrorIs(t, err, ErrStale)
	err = f.engine.OnControl(domain.EventSeek, broadcast(t, map[string]any{"position": 99, "at": t0, "seq": 2}))
	require.ErrorIs(t, err, ErrStale)

	ref, _ := f.engine.Reference()
	assert.Equal(t, 0.0, ref.Position)

	require.NoError(t, f.engine.OnControl(domain.EventSeek, broadcast(t, map[string]any{"position": 30, "at": t0 + 10, "seq": 4})))
	ref, _ = f.engine.Reference()
	assert.Equal(t, 30.0, ref.Position)
	assert.Equal(t, uint64(4), ref.Seq)
	assert.Equal(t, int64(t0+10), ref.StampMs)
	assert.InDelta(t, 30.0, f.player.CurrentTime(), 0.001)
}

func TestControlBeforeSnapshot(t *testing.T) {
	f := newFixture(DefaultConfig())

	require.NoError(t, f.engine.OnControl(domain.EventSetVideo, broadcast(t, map[string]any{"videoId": "dQw4w9WgXcQ", "at": t0, "seq": 1})))
	ref, ok := f.engine.Reference()
	require.True(t, ok)
	assert.Equal(t, "dQw4w9WgXcQ", ref.VideoID)
	assert.Equal(t, domain.PlayerStateCued, ref.PlayerState)
	assert.Equal(t, "dQw4w9WgXcQ", f.player.VideoID())
}

func TestDriftTolerance(t *testing.T) {
	f := newFixture(DefaultConfig())
	f.engine.OnSnapshot(domain.PlaybackState{VideoID: "dQw4w9WgXcQ", PlayerState: domain.PlayerStatePlaying, Position: 0, Rate: 1, StampMs: t0, Seq: 1})
	require.Equal(t, domain.PlayerStatePlaying, f.player.State())

	// small drift is left alone
	f.player.Seek(1.5)
	f.engine.Reconcile()
	assert.InDelta(t, 1.5, f.player.CurrentTime(), 0.001)

	f.player.Seek(10)
	f.engine.Reconcile()
	assert.InDelta(t, 0.0, f.player.CurrentTime(), 0.001)

	f.clock.Advance(4 * time.Second)
	assert.InDelta(t, 4.0, f.engine.LiveTarget(), 0.001)
}

func TestRateAndPause(t *testing.T) {
	f := newFixture(DefaultConfig())
	f.engine.OnSnapshot(domain.PlaybackState{VideoID: "dQw4w9WgXcQ", PlayerState: domain.PlayerStatePlaying, Rate: 1, StampMs: t0, Seq: 1})

	require.NoError(t, f.engine.OnControl(domain.EventRate, broadcast(t, map[string]any{"rate": 2, "at": t0, "seq": 2})))
	assert.Equal(t, 2.0, f.player.Rate())

	f.clock.Advance(time.Second)
	assert.InDelta(t, 2.0, f.engine.LiveTarget(), 0.001)

	require.NoError(t, f.engine.OnControl(domain.EventPause, broadcast(t, map[string]any{"position": 2, "at": t0 + 1000, "seq": 3})))
	assert.Equal(t, domain.PlayerStatePaused, f.player.State())

	f.clock.Advance(time.Minute)
	assert.InDelta(t, 2.0, f.engine.LiveTarget(), 0.001)
	assert.Empty(t, f.emitter.Sent())
}

func TestUserActionsEmitAfterGuardWindow(t *testing.T) {
	f := newFixture(DefaultConfig())
	f.engine.OnSnapshot(domain.PlaybackState{VideoID: "dQw4w9WgXcQ", PlayerState: domain.PlayerStatePlaying, Position: 7, Rate: 1, StampMs: t0, Seq: 1})
	assert.True(t, f.engine.Suppressed())

	// a user pause inside the guard window is taken as an echo
	f.player.Pause()
	assert.Empty(t, f.emitter.Sent())

	f.engine.Reconcile()
	f.clock.Advance(150 * time.Millisecond)
	assert.False(t, f.engine.Suppressed())

	f.player.Pause()
	sent := f.emitter.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, domain.EventPause, sent[0].Type)
	assert.InDelta(t, 7.15, sent[0].Payload["position"].(float64), 0.001)
}

func TestAutoplayFallback(t *testing.T) {
	f := newFixture(DefaultConfig())
	f.player.BlockAutoplay(true)

	f.engine.OnSnapshot(domain.PlaybackState{VideoID: "dQw4w9WgXcQ", PlayerState: domain.PlayerStatePlaying, Rate: 1, StampMs: t0, Seq: 1})
	assert.Equal(t, domain.PlayerStateCued, f.player.State())

	f.clock.Advance(250 * time.Millisecond)
	require.Eventually(t, func() bool {
		return f.player.State() == domain.PlayerStatePlaying
	}, time.Second, 5*time.Millisecond)
	// the retry holds the engine lock until it has unmuted
	f.engine.Reference()
	assert.False(t, f.player.Muted())
	assert.Empty(t, f.emitter.Sent())
}

func TestEstimateSkew(t *testing.T) {
	config := DefaultConfig()
	config.EstimateSkew = true
	f := newFixture(config)

	// server clock runs 5s ahead
	require.NoError(t, f.engine.OnControl(domain.EventSetVideo, broadcast(t, map[string]any{"videoId": "dQw4w9WgXcQ", "at": t0 + 5000, "seq": 1})))
	require.NoError(t, f.engine.OnControl(domain.EventPlay, broadcast(t, map[string]any{"position": 0, "at": t0 + 5000, "seq": 2})))
	assert.InDelta(t, 0.0, f.engine.LiveTarget(), 0.001)

	f.clock.Advance(time.Second)
	assert.InDelta(t, 1.0, f.engine.LiveTarget(), 0.001)
}

func TestLocalControls(t *testing.T) {
	f := newFixture(DefaultConfig())
	ctx := context.Background()

	require.NoError(t, f.engine.SetVideo(ctx, "https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	require.ErrorIs(t, f.engine.SetVideo(ctx, "not a video"), ytvideodata.ErrInvalidVideoID)
	require.NoError(t, f.engine.Seek(ctx, 12))
	require.NoError(t, f.engine.SetRate(ctx, 1.5))
	require.NoError(t, f.engine.Play(ctx))

	sent := f.emitter.Sent()
	require.Len(t, sent, 4)
	assert.Equal(t, sentControl{Type: domain.EventSetVideo, Payload: map[string]any{"videoId": "dQw4w9WgXcQ"}}, sent[0])
	assert.Equal(t, sentControl{Type: domain.EventSeek, Payload: map[string]any{"position": 12.0}}, sent[1])
	assert.Equal(t, sentControl{Type: domain.EventRate, Payload: map[string]any{"rate": 1.5}}, sent[2])
	assert.Equal(t, sentControl{Type: domain.EventPlay, Payload: map[string]any{"position": 0.0}}, sent[3])
}
