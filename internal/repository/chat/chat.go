package chat

import "errors"

var ErrEmptyMessage = errors.New("empty message")

// Message is a stored chat message. CreatedAt is in unix milliseconds.
type Message struct {
	ID        string `redis:"id"`
	RoomCode  string `redis:"room_code"`
	Username  string `redis:"username"`
	Content   string `redis:"content"`
	ReplyToID string `redis:"reply_to_id"`
	CreatedAt int64  `redis:"created_at"`
}
