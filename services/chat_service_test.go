package services

import (
	"context"
	stdErrors "errors"
	"geochat/auth"
	"geochat/domain"
	"geochat/errors"
	"geochat/mocks"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestChatService_History(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIMessageStore(ctrl)
	users := mocks.NewMockIUserDirectory(ctrl)
	svc := NewChatService(store, users, 50)
	at := time.Now().UTC()

	// Given three messages, two from the same known sender and one anonymous
	store.EXPECT().Recent(domain.ChatRoom, 50).Return([]domain.Message{
		domain.NewMessage(domain.ChatRoom, lo.ToPtr(int64(1)), "hello", at),
		domain.NewMessage(domain.ChatRoom, nil, "who am I", at.Add(time.Second)),
		domain.NewMessage(domain.ChatRoom, lo.ToPtr(int64(1)), "again", at.Add(2*time.Second)),
	}, nil).Times(1)
	// Then the sender is resolved only once
	users.EXPECT().DisplayName(int64(1)).Return("alice@example.com", nil).Times(1)

	entries, err := svc.History()

	req.NoError(err)
	req.Equal([]ChatEntry{
		{Message: "hello", Sender: "alice@example.com", Timestamp: at},
		{Message: "who am I", Sender: domain.AnonymousSender, Timestamp: at.Add(time.Second)},
		{Message: "again", Sender: "alice@example.com", Timestamp: at.Add(2 * time.Second)},
	}, entries)
}

func TestChatService_PostAsAdmin(t *testing.T) {
	t.Run("should create through the store", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockIMessageStore(ctrl)
		users := mocks.NewMockIUserDirectory(ctrl)
		svc := NewChatService(store, users, 50)

		users.EXPECT().DisplayName(int64(9)).Return("admin@example.com", nil).Times(1)
		store.EXPECT().Append(gomock.Any()).Times(0)
		store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m domain.Message) (domain.MessageID, error) {
			return m.ID, nil
		}).Times(1)

		message, err := svc.PostAsAdmin(context.Background(), 9, auth.PostMessageRequest{Message: "  maintenance at noon "})

		req.NoError(err)
		req.Equal("maintenance at noon", message.Content)
		req.Equal(int64(9), *message.SenderID)
		req.Equal(domain.ChatRoom, message.Room)
	})

	t.Run("should record an unknown sender as nil", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockIMessageStore(ctrl)
		users := mocks.NewMockIUserDirectory(ctrl)
		svc := NewChatService(store, users, 50)

		users.EXPECT().DisplayName(int64(404)).Return("", errors.ErrUserNotFound).Times(1)
		store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m domain.Message) (domain.MessageID, error) {
			return m.ID, nil
		}).Times(1)

		message, err := svc.PostAsAdmin(context.Background(), 9, auth.PostMessageRequest{Message: "hi", SenderID: lo.ToPtr(int64(404))})

		req.NoError(err)
		req.Nil(message.SenderID)
	})

	t.Run("should refuse blank content", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockIMessageStore(ctrl)
		svc := NewChatService(store, mocks.NewMockIUserDirectory(ctrl), 50)

		store.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.PostAsAdmin(context.Background(), 9, auth.PostMessageRequest{Message: "   "})

		req.ErrorIs(err, errors.ErrEmptyContent)
	})

	t.Run("should report store failures", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		store := mocks.NewMockIMessageStore(ctrl)
		users := mocks.NewMockIUserDirectory(ctrl)
		svc := NewChatService(store, users, 50)

		users.EXPECT().DisplayName(gomock.Any()).Return("admin@example.com", nil).Times(1)
		store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domain.MessageID{}, stdErrors.New("disk full")).Times(1)

		_, err := svc.PostAsAdmin(context.Background(), 9, auth.PostMessageRequest{Message: "hi"})

		req.ErrorIs(err, errors.ErrMessageStoreFailure)
	})
}
