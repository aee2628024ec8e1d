package domain

import "time"

type ChatMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	ReplyToID *string   `json:"replyToId"`
}
