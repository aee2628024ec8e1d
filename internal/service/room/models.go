package room

import (
	"encoding/json"

	"github.com/sharetube/watchsync/internal/domain"
)

type JoinParams struct {
	ConnID   string
	Code     string
	Username string
}

type JoinResponse struct {
	Member  domain.Member
	State   domain.PlaybackState
	Members []domain.Member
}

type ControlParams struct {
	ConnID  string
	Code    string
	Type    domain.EventType
	Payload json.RawMessage
}

type ControlResponse struct {
	State domain.PlaybackState
}

type ChatParams struct {
	ConnID    string
	Code      string
	Content   string
	Username  string
	ReplyToID string
}

type ChatResponse struct {
	Message domain.ChatMessage
}

type ChatHistoryParams struct {
	ConnID string
	Code   string
}

type ChatHistoryResponse struct {
	Messages []domain.ChatMessage
}

type DisconnectResponse struct {
	LeftRooms []string
}

type GetRoomResponse struct {
	Code    string               `json:"code"`
	State   domain.PlaybackState `json:"state"`
	Members []domain.Member      `json:"members"`
}
