package event

import (
	"geochat/domain"
)

// BroadcastEvent is delivered once to every member present in the room at
// dispatch time. It is never persisted and never retried.
type BroadcastEvent struct {
	Room       domain.RoomID
	Content    string
	SenderName string
}
