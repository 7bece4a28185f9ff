package domain

// RoomID names a group of connections receiving the same broadcasts.
type RoomID string

// ChatRoom is the room every chat connection joins.
const ChatRoom RoomID = "chat_room"

func (r RoomID) String() string {
	return string(r)
}
