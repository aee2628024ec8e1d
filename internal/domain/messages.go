package domain

// Types of server to client messages other than control broadcasts, which
// reuse the EventType of the control event.
const (
	MessageSnapshot    = "SNAPSHOT"
	MessagePresence    = "PRESENCE"
	MessageChat        = "CHAT"
	MessageChatHistory = "CHAT_HISTORY"
	MessageError       = "ERROR"
)
