package inmemory

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/internal/repository/room"
	"golang.org/x/exp/maps"
)

// Entry is the state of one room. Its methods may only be called from inside
// a mutation passed to Apply, which holds the entry lock.
type Entry struct {
	code    string
	mu      sync.Mutex
	removed bool
	state   domain.PlaybackState
	members map[string]domain.Member
	// join order, used for stable member listings
	order []string
}

func (e *Entry) Code() string {
	return e.code
}

func (e *Entry) State() domain.PlaybackState {
	return e.state
}

func (e *Entry) SetState(state domain.PlaybackState) {
	e.state = state
}

func (e *Entry) Member(connID string) (domain.Member, bool) {
	m, ok := e.members[connID]
	return m, ok
}

// AddMember adds or renames a member. It reports whether the member is new.
func (e *Entry) AddMember(member domain.Member) bool {
	_, exists := e.members[member.ConnID]
	e.members[member.ConnID] = member
	if !exists {
		e.order = append(e.order, member.ConnID)
	}

	return !exists
}

func (e *Entry) RemoveMember(connID string) (domain.Member, error) {
	member, ok := e.members[connID]
	if !ok {
		return domain.Member{}, room.ErrMemberNotFound
	}

	delete(e.members, connID)
	for i, id := range e.order {
		if id == connID {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}

	return member, nil
}

func (e *Entry) Members() []domain.Member {
	members := make([]domain.Member, 0, len(e.order))
	for _, id := range e.order {
		members = append(members, e.members[id])
	}

	return members
}

// ConnIDs returns the connection ids of all members, optionally skipping one.
func (e *Entry) ConnIDs(except string) []string {
	ids := make([]string, 0, len(e.order))
	for _, id := range e.order {
		if id != except {
			ids = append(ids, id)
		}
	}

	return ids
}

func (e *Entry) snapshot() room.Room {
	return room.Room{
		Code:    e.code,
		State:   e.state,
		Members: e.Members(),
	}
}

type repo struct {
	mu     sync.RWMutex
	rooms  map[string]*Entry
	clock  clockwork.Clock
	logger *slog.Logger
}

func NewRepo(clock clockwork.Clock, logger *slog.Logger) *repo {
	return &repo{
		rooms:  make(map[string]*Entry),
		clock:  clock,
		logger: logger,
	}
}

func (r *repo) lookup(code string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.rooms[code]
	return e, ok
}

func (r *repo) Get(code string) (room.Room, bool) {
	e, ok := r.lookup(code)
	if !ok {
		return room.Room{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return room.Room{}, false
	}

	return e.snapshot(), true
}

func (r *repo) getOrCreateEntry(code string) *Entry {
	if e, ok := r.lookup(code); ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.rooms[code]; ok {
		return e
	}

	e := &Entry{
		code:    code,
		state:   domain.NewPlaybackState(r.clock.Now().UnixMilli()),
		members: make(map[string]domain.Member),
	}
	r.rooms[code] = e
	r.logger.Debug("room state created", "room_code", code)

	return e
}

func (r *repo) GetOrCreate(code string) room.Room {
	e := r.getOrCreateEntry(code)

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.snapshot()
}

// Apply runs mutate with exclusive access to the room. Mutations of different
// rooms do not block each other.
func (r *repo) Apply(code string, mutate func(*Entry) error) error {
	e, ok := r.lookup(code)
	if !ok {
		return room.ErrRoomNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return room.ErrRoomNotFound
	}

	return mutate(e)
}

// ApplyOrCreate is GetOrCreate followed by Apply without a window in which
// the room could be removed.
func (r *repo) ApplyOrCreate(code string, mutate func(*Entry) error) error {
	for {
		e := r.getOrCreateEntry(code)
		if applied, err := r.applyLive(e, mutate); applied {
			return err
		}
	}
}

// applyLive runs mutate under the entry lock unless the entry was removed.
func (r *repo) applyLive(e *Entry, mutate func(*Entry) error) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return false, nil
	}

	return true, mutate(e)
}

func (r *repo) Remove(code string) bool {
	r.mu.Lock()
	e, ok := r.rooms[code]
	if ok {
		delete(r.rooms, code)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()
	r.logger.Debug("room state removed", "room_code", code)

	return true
}

func (r *repo) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := maps.Keys(r.rooms)
	slices.Sort(codes)

	return codes
}
