package model

import "time"

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"` // client / freelancer / admin
	CreatedAt    time.Time `json:"created_at"`
}

// PublicUser is the minimal identity attached to broadcast chat messages.
type PublicUser struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
