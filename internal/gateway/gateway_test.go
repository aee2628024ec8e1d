package gateway

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/sharetube/watchsync/internal/repository/connection"
	"github.com/sharetube/watchsync/internal/repository/connection/inmemory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id     string
	mu     sync.Mutex
	frames []string
	err    error
	closed bool
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, string(msg))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func newTestGateway(t *testing.T, conns ...*fakeConn) *Gateway {
	t.Helper()
	g := New(inmemory.NewRepo(slog.Default()), slog.Default())
	for _, c := range conns {
		require.NoError(t, g.Register(c))
	}

	return g
}

func TestBroadcast(t *testing.T) {
	a := &fakeConn{id: "a"}
	b := &fakeConn{id: "b"}
	broken := &fakeConn{id: "broken", err: ErrQueueFull}
	g := newTestGateway(t, a, b, broken)

	err := g.Broadcast(context.Background(), []string{"a", "broken", "gone", "b"}, &Message{
		Type:    "PLAY",
		Payload: map[string]any{"position": 1.5, "seq": 2},
	})
	require.NoError(t, err)

	want := `{"type":"PLAY","payload":{"position":1.5,"seq":2}}`
	assert.Equal(t, []string{want}, a.frames)
	assert.Equal(t, []string{want}, b.frames)
}

func TestSend(t *testing.T) {
	a := &fakeConn{id: "a"}
	g := newTestGateway(t, a)

	require.NoError(t, g.Send(context.Background(), "a", &Message{Type: "ERROR", Payload: map[string]string{"code": "X"}}))
	assert.Equal(t, []string{`{"type":"ERROR","payload":{"code":"X"}}`}, a.frames)

	err := g.Send(context.Background(), "missing", &Message{Type: "ERROR"})
	assert.ErrorIs(t, err, connection.ErrNotFound)

	err = g.Send(context.Background(), "a", &Message{Type: "BAD", Payload: make(chan int)})
	assert.Error(t, err)
}

func TestRegisterUnregister(t *testing.T) {
	a := &fakeConn{id: "a"}
	g := newTestGateway(t, a)

	assert.ErrorIs(t, g.Register(&fakeConn{id: "a"}), connection.ErrAlreadyExists)

	g.Unregister("a")
	assert.True(t, a.closed)
	g.Unregister("a")

	err := g.Send(context.Background(), "a", &Message{Type: "PING"})
	assert.ErrorIs(t, err, connection.ErrNotFound)
}

func TestCloseAll(t *testing.T) {
	a := &fakeConn{id: "a"}
	b := &fakeConn{id: "b"}
	g := newTestGateway(t, a, b)

	g.CloseAll()
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
