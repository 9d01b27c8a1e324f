package domain

import (
	"errors"
	"time"
)

// ErrSessionNotFound is returned by session stores for unknown or idle-expired sessions
var ErrSessionNotFound = errors.New("session not found")

// Session is the server-side state behind a session token
type Session struct {
	ID         string    `json:"id"`
	UserID     uint      `json:"user_id"`
	Role       Role      `json:"role"`
	Name       string    `json:"name"`
	LecturerID string    `json:"lecturer_id"`
	CreatedAt  time.Time `json:"created_at"`
}
