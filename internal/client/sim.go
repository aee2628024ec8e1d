package client

import (
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/watchsync/internal/domain"
)

// SimPlayer is a headless Player that advances with a clock. It fires its
// state change callback synchronously, like a browser player does from
// inside a command.
type SimPlayer struct {
	clock clockwork.Clock

	mu              sync.Mutex
	videoID         string
	state           domain.PlayerState
	position        float64
	since           int64
	rate            float64
	muted           bool
	autoplayBlocked bool

	onChange func(domain.PlayerState)
}

func NewSimPlayer(clock clockwork.Clock) *SimPlayer {
	return &SimPlayer{
		clock: clock,
		state: domain.PlayerStateUnstarted,
		rate:  1,
		since: clock.Now().UnixMilli(),
	}
}

// OnStateChange sets the callback for state transitions.
func (p *SimPlayer) OnStateChange(f func(domain.PlayerState)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.onChange = f
}

// BlockAutoplay makes unmuted Play calls fail, as browsers do before any
// user gesture.
func (p *SimPlayer) BlockAutoplay(blocked bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.autoplayBlocked = blocked
}

func (p *SimPlayer) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.muted
}

func (p *SimPlayer) VideoID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.videoID
}

func (p *SimPlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.currentTime()
}

func (p *SimPlayer) currentTime() float64 {
	if p.state != domain.PlayerStatePlaying {
		return p.position
	}

	return p.position + float64(p.clock.Now().UnixMilli()-p.since)/1000*p.rate
}

func (p *SimPlayer) State() domain.PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

func (p *SimPlayer) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.rate
}

// setState must be called with mu held. It returns the callback to run once
// mu is released.
func (p *SimPlayer) setState(state domain.PlayerState) func() {
	p.position = p.currentTime()
	p.since = p.clock.Now().UnixMilli()
	if p.state == state {
		return func() {}
	}
	p.state = state

	onChange := p.onChange
	return func() {
		if onChange != nil {
			onChange(state)
		}
	}
}

func (p *SimPlayer) rebase(position float64) {
	p.position = position
	p.since = p.clock.Now().UnixMilli()
}

func (p *SimPlayer) Load(videoID string, start float64) {
	p.mu.Lock()
	p.videoID = videoID
	p.rebase(start)
	notify := p.setState(domain.PlayerStateCued)
	p.mu.Unlock()

	notify()
}

func (p *SimPlayer) Seek(position float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rebase(position)
}

func (p *SimPlayer) Play() {
	p.mu.Lock()
	if p.videoID == "" || (p.autoplayBlocked && !p.muted) {
		p.mu.Unlock()
		return
	}
	notify := p.setState(domain.PlayerStatePlaying)
	p.mu.Unlock()

	notify()
}

func (p *SimPlayer) Pause() {
	p.mu.Lock()
	notify := p.setState(domain.PlayerStatePaused)
	p.mu.Unlock()

	notify()
}

func (p *SimPlayer) Mute() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.muted = true
}

func (p *SimPlayer) Unmute() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.muted = false
}

func (p *SimPlayer) SetRate(rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rebase(p.currentTime())
	p.rate = rate
}
