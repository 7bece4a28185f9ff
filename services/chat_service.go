package services

import (
	"context"
	"fmt"
	"geochat/auth"
	"geochat/contract"
	"geochat/domain"
	"geochat/errors"
	"strings"
	"time"

	"github.com/samber/lo"
)

// ChatEntry is a stored message as shown to readers.
type ChatEntry struct {
	Message   string    `json:"message"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

type IChatService interface {
	History() ([]ChatEntry, error)
	PostAsAdmin(ctx context.Context, adminID int64, req auth.PostMessageRequest) (domain.Message, error)
}

type ChatService struct {
	store       contract.IMessageStore
	users       contract.IUserDirectory
	historySize int
	now         func() time.Time
}

func NewChatService(store contract.IMessageStore, users contract.IUserDirectory, historySize int) *ChatService {
	return &ChatService{store: store, users: users, historySize: historySize, now: time.Now}
}

// History returns the most recent messages of the chat room, oldest first.
func (s *ChatService) History() ([]ChatEntry, error) {
	messages, err := s.store.Recent(domain.ChatRoom, s.historySize)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string)
	return lo.Map(messages, func(m domain.Message, _ int) ChatEntry {
		return ChatEntry{Message: m.Content, Sender: s.senderName(names, m.SenderID), Timestamp: m.CreatedAt}
	}), nil
}

func (s *ChatService) senderName(cache map[int64]string, senderID *int64) string {
	if senderID == nil {
		return domain.AnonymousSender
	}
	if name, ok := cache[*senderID]; ok {
		return name
	}
	name, err := s.users.DisplayName(*senderID)
	if err != nil {
		name = domain.AnonymousSender
	}
	cache[*senderID] = name
	return name
}

// PostAsAdmin creates a message outside any live connection.
// The store notifies its listeners, which broadcast it once.
// Without an explicit sender the message is signed by the admin,
// an unknown sender is recorded as nil.
func (s *ChatService) PostAsAdmin(ctx context.Context, adminID int64, req auth.PostMessageRequest) (domain.Message, error) {
	if err := auth.Validate(req); err != nil {
		return domain.Message{}, err
	}
	content := strings.TrimSpace(req.Message)
	if content == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}
	senderID := lo.Ternary(req.SenderID != nil, req.SenderID, &adminID)
	if _, err := s.users.DisplayName(*senderID); err != nil {
		senderID = nil
	}
	message := domain.NewMessage(domain.ChatRoom, senderID, content, s.now().UTC())
	if _, err := s.store.Create(ctx, message); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrMessageStoreFailure, err)
	}
	return message, nil
}
