package domain

type PresenceType string

const (
	PresenceJoin  PresenceType = "JOIN"
	PresenceLeave PresenceType = "LEAVE"
)

type Member struct {
	ConnID   string `json:"-"`
	Username string `json:"username"`
	RoomCode string `json:"roomCode"`
}

type Presence struct {
	Type     PresenceType `json:"type"`
	Username string       `json:"username"`
}
