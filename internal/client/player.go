package client

import "github.com/sharetube/watchsync/internal/domain"

// Player is the local media player the engine drives. Positions are in
// seconds.
type Player interface {
	VideoID() string
	CurrentTime() float64
	State() domain.PlayerState
	Rate() float64
	Load(videoID string, start float64)
	Seek(position float64)
	Play()
	Pause()
	Mute()
	Unmute()
	SetRate(rate float64)
}
