package domain

import "strconv"

// PlayerState mirrors the YouTube IFrame player state codes, which is what
// clients compare against when applying a state.
type PlayerState int

const (
	PlayerStateUnstarted PlayerState = -1
	PlayerStateEnded     PlayerState = 0
	PlayerStatePlaying   PlayerState = 1
	PlayerStatePaused    PlayerState = 2
	PlayerStateBuffering PlayerState = 3
	PlayerStateCued      PlayerState = 5
)

func (s PlayerState) String() string {
	switch s {
	case PlayerStateUnstarted:
		return "UNSTARTED"
	case PlayerStateEnded:
		return "ENDED"
	case PlayerStatePlaying:
		return "PLAYING"
	case PlayerStatePaused:
		return "PAUSED"
	case PlayerStateBuffering:
		return "BUFFERING"
	case PlayerStateCued:
		return "CUED"
	default:
		return "PlayerState(" + strconv.Itoa(int(s)) + ")"
	}
}

// PlaybackState is the authoritative play-state of a room. Position is the
// offset in seconds as of StampMs.
type PlaybackState struct {
	VideoID     string      `json:"videoId"`
	PlayerState PlayerState `json:"playerState"`
	Position    float64     `json:"position"`
	Rate        float64     `json:"rate"`
	StampMs     int64       `json:"stampMs"`
	Seq         uint64      `json:"seq"`
}

func NewPlaybackState(nowMs int64) PlaybackState {
	return PlaybackState{
		VideoID:     "",
		PlayerState: PlayerStateUnstarted,
		Position:    0,
		Rate:        1,
		StampMs:     nowMs,
		Seq:         0,
	}
}

// LivePosition projects Position forward to nowMs. Only a playing state
// advances.
func (s PlaybackState) LivePosition(nowMs int64) float64 {
	if s.PlayerState != PlayerStatePlaying {
		return s.Position
	}

	return s.Position + float64(nowMs-s.StampMs)/1000*s.Rate
}
