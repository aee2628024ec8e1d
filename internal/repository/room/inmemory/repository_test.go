package inmemory

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/internal/repository/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo() (*repo, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_000))
	return NewRepo(clock, slog.Default()), clock
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	r, clock := newTestRepo()

	_, ok := r.Get("R1")
	assert.False(t, ok)

	created := r.GetOrCreate("R1")
	assert.Equal(t, "R1", created.Code)
	assert.Equal(t, domain.PlayerStateUnstarted, created.State.PlayerState)
	assert.Equal(t, "", created.State.VideoID)
	assert.Equal(t, 0.0, created.State.Position)
	assert.Equal(t, 1.0, created.State.Rate)
	assert.Equal(t, uint64(0), created.State.Seq)
	assert.Equal(t, clock.Now().UnixMilli(), created.State.StampMs)

	require.NoError(t, r.Apply("R1", func(e *Entry) error {
		s := e.State()
		s.Seq = 7
		e.SetState(s)
		return nil
	}))

	clock.Advance(time.Minute)
	again := r.GetOrCreate("R1")
	assert.Equal(t, uint64(7), again.State.Seq, "existing state is returned, not reset")
	assert.Equal(t, created.State.StampMs, again.State.StampMs)

	got, ok := r.Get("R1")
	require.True(t, ok)
	assert.Equal(t, again, got)
}

func TestApplyUnknownRoom(t *testing.T) {
	r, _ := newTestRepo()

	called := false
	err := r.Apply("nope", func(*Entry) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, room.ErrRoomNotFound)
	assert.False(t, called)
}

func TestApplySerializesSameRoom(t *testing.T) {
	r, _ := newTestRepo()
	r.GetOrCreate("R1")

	const writers = 200
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Apply("R1", func(e *Entry) error {
				s := e.State()
				// read-modify-write that would lose updates without exclusion
				seq := s.Seq
				time.Sleep(time.Microsecond)
				s.Seq = seq + 1
				e.SetState(s)
				return nil
			})
		}()
	}
	wg.Wait()

	got, _ := r.Get("R1")
	assert.Equal(t, uint64(writers), got.State.Seq)
}

func TestApplyDifferentRoomsIndependent(t *testing.T) {
	r, _ := newTestRepo()
	r.GetOrCreate("AAAA")
	r.GetOrCreate("BBBB")

	release := make(chan struct{})
	entered := make(chan struct{})
	go func() {
		_ = r.Apply("AAAA", func(*Entry) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	done := make(chan struct{})
	go func() {
		_ = r.Apply("BBBB", func(*Entry) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("mutation of BBBB blocked by AAAA")
	}
	close(release)
}

func TestMembers(t *testing.T) {
	r, _ := newTestRepo()

	require.NoError(t, r.ApplyOrCreate("R1", func(e *Entry) error {
		assert.True(t, e.AddMember(domain.Member{ConnID: "c1", Username: "alice", RoomCode: "R1"}))
		assert.True(t, e.AddMember(domain.Member{ConnID: "c2", Username: "bob", RoomCode: "R1"}))
		assert.False(t, e.AddMember(domain.Member{ConnID: "c1", Username: "alice2", RoomCode: "R1"}))
		assert.Equal(t, []string{"c2"}, e.ConnIDs("c1"))
		return nil
	}))

	got, _ := r.Get("R1")
	require.Len(t, got.Members, 2)
	assert.Equal(t, "alice2", got.Members[0].Username)
	assert.Equal(t, "bob", got.Members[1].Username)

	require.NoError(t, r.Apply("R1", func(e *Entry) error {
		m, err := e.RemoveMember("c1")
		require.NoError(t, err)
		assert.Equal(t, "alice2", m.Username)

		_, err = e.RemoveMember("c1")
		assert.ErrorIs(t, err, room.ErrMemberNotFound)
		return nil
	}))

	got, _ = r.Get("R1")
	assert.Len(t, got.Members, 1)
}

func TestRemoveAndCodes(t *testing.T) {
	r, _ := newTestRepo()
	r.GetOrCreate("BBBB")
	r.GetOrCreate("AAAA")

	assert.Equal(t, []string{"AAAA", "BBBB"}, r.Codes())

	assert.True(t, r.Remove("AAAA"))
	assert.False(t, r.Remove("AAAA"))
	assert.Equal(t, []string{"BBBB"}, r.Codes())

	err := r.Apply("AAAA", func(*Entry) error { return nil })
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestPanickingMutationReleasesRoom(t *testing.T) {
	r, _ := newTestRepo()

	require.Panics(t, func() {
		_ = r.ApplyOrCreate("R1", func(*Entry) error { panic("boom") })
	})
	require.Panics(t, func() {
		_ = r.Apply("R1", func(*Entry) error { panic("boom") })
	})

	done := make(chan error, 1)
	go func() {
		done <- r.ApplyOrCreate("R1", func(*Entry) error { return nil })
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("room stayed locked after a panic")
	}
}
