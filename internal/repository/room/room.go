package room

import "github.com/sharetube/watchsync/internal/domain"

// Room is a consistent copy of a room entry taken under its lock.
type Room struct {
	Code    string               `json:"code"`
	State   domain.PlaybackState `json:"state"`
	Members []domain.Member      `json:"members"`
}
