package realtime

// Envelope is the frame every server-to-client websocket event uses.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Server-pushed event types.
const (
	EventJoinedTask      = "joined_task"
	EventLeftTask        = "left_task"
	EventLoadMessages    = "load_messages"
	EventNewMessage      = "new_message"
	EventUserTyping      = "user_typing"
	EventUnauthorized    = "unauthorized"
	EventError           = "error"
	EventNewNotification = "new_notification"
	EventChatActivated   = "chat_activated"
)

// inboundFrame is what clients send over the socket.
type inboundFrame struct {
	Type     string `json:"type"`
	TaskID   int    `json:"task_id"`
	Content  string `json:"content,omitempty"`
	IsTyping bool   `json:"is_typing,omitempty"`
}

// Client frame types.
const (
	frameJoinTask    = "join_task"
	frameLeaveTask   = "leave_task"
	frameSendMessage = "send_message"
	frameTyping      = "typing"
)
