// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable once created.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// AnonymousSender is shown whenever a sender cannot be resolved.
const AnonymousSender = "Anonymous"

type MessageID = uuid.UUID

// Message represents an immutable chat message.
// A nil SenderID means the sender could not be resolved.
type Message struct {
	ID        MessageID
	Room      RoomID
	SenderID  *int64
	Content   string
	CreatedAt time.Time
}

// NewMessage stamps a fresh identifier on the message.
func NewMessage(room RoomID, senderID *int64, content string, at time.Time) Message {
	return Message{
		ID:        uuid.New(),
		Room:      room,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: at,
	}
}
