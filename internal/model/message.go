package model

import "time"

// Message is an append-only chat message in a task room.
type Message struct {
	ID        int       `json:"id"`
	TaskID    int       `json:"task_id"`
	SenderID  int       `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
