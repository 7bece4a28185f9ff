package domain

import (
	"strings"
	"time"
)

// SubmitMessageCommand is a chat message handed over by a live connection.
type SubmitMessageCommand struct {
	Room        RoomID
	SessionID   string
	SenderID    *int64
	Content     string
	SubmittedAt time.Time
}

// Normalize trims the content and reports whether anything is left to send.
func (c SubmitMessageCommand) Normalize() (SubmitMessageCommand, bool) {
	c.Content = strings.TrimSpace(c.Content)
	return c, c.Content != ""
}
