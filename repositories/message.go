package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"geochat/contract"
	"geochat/domain"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

var _ contract.IMessageStore = (*MessageRepository)(nil)

// MessageRepository is the append-only chat log.
// Append stores silently, Create stores then notifies every subscribed listener.
type MessageRepository struct {
	db        *badger.DB
	log       *slog.Logger
	mu        sync.RWMutex
	listeners []contract.PersistenceListener
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

// DiskMessage is the persisted shape of a domain.Message.
type DiskMessage struct {
	ID        uuid.UUID `json:"id"`
	Room      string    `json:"room"`
	SenderID  *int64    `json:"sender_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt int64     `json:"created_at"`
}

func (m *MessageRepository) Subscribe(listener contract.PersistenceListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

// Append persists a message in BadgerDB.
// The key is formatted as "msg:{room_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Keep two messages of the same nanosecond apart thanks to the UUID suffix.
func (m *MessageRepository) Append(message domain.Message) (domain.MessageID, error) {
	bytes, err := json.Marshal(fromMessage(message))
	if err != nil {
		return domain.MessageID{}, fmt.Errorf("marshal message: %w", err)
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message), bytes)
	})
	if err != nil {
		return domain.MessageID{}, err
	}
	return message.ID, nil
}

// Create is used by every actor other than a live chat connection.
func (m *MessageRepository) Create(ctx context.Context, message domain.Message) (domain.MessageID, error) {
	id, err := m.Append(message)
	if err != nil {
		return id, err
	}
	m.mu.RLock()
	listeners := slices.Clone(m.listeners)
	m.mu.RUnlock()
	for _, listener := range listeners {
		listener.OnMessagePersisted(ctx, message)
	}
	return id, nil
}

// Recent returns at most n messages of the room, oldest first.
// The scan starts from the newest key and walks backwards.
func (m *MessageRepository) Recent(roomID domain.RoomID, n int) ([]domain.Message, error) {
	if n <= 0 {
		return nil, nil
	}
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", roomID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek to the newest possible position msg:{room}:9999999999999999999
		seekKey := append(slices.Clone(prefix), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix) && len(messages) < n; it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var disk DiskMessage
				if err := json.Unmarshal(value, &disk); err != nil {
					return err
				}
				messages = append(messages, toMessage(disk))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}

func messageKey(message domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s",
		message.Room,
		message.CreatedAt.UnixNano(),
		message.ID,
	))
}

func fromMessage(message domain.Message) DiskMessage {
	return DiskMessage{
		ID:        message.ID,
		Room:      string(message.Room),
		SenderID:  message.SenderID,
		Content:   message.Content,
		CreatedAt: message.CreatedAt.UnixNano(),
	}
}

func toMessage(disk DiskMessage) domain.Message {
	return domain.Message{
		ID:        disk.ID,
		Room:      domain.RoomID(disk.Room),
		SenderID:  disk.SenderID,
		Content:   disk.Content,
		CreatedAt: time.Unix(0, disk.CreatedAt).UTC(),
	}
}
