package realtime

import (
	"context"
	"geochat/domain"
	"geochat/errors"
	"geochat/mocks"
	"geochat/runtime"
	"geochat/runtime/workers"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type chatStack struct {
	registry *runtime.Registry
	handler  *Handler
	server   *httptest.Server
	url      string
	cancel   context.CancelFunc
}

// newChatStack runs the whole fan-out path behind a test server.
// The message store and the user directory are mocks.
func newChatStack(t *testing.T, store *mocks.MockIMessageStore, users *mocks.MockIUserDirectory) *chatStack {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctx, cancel := context.WithCancel(context.Background())

	registry := runtime.NewRegistry()
	router := workers.NewEventFanout(log, registry, time.Second)
	supervisor := workers.NewSupervisor(log, 10*time.Millisecond)
	coordinator := runtime.NewCoordinator(log, supervisor, router, store, users, 2, 16)
	coordinatorDone := make(chan struct{})
	go func() {
		coordinator.Start(ctx)
		close(coordinatorDone)
	}()

	handler := NewHandler(ctx, log, domain.ChatRoom, registry, coordinator, testConfig())
	server := httptest.NewServer(handler)

	t.Cleanup(func() {
		cancel()
		handler.Wait()
		server.Close()
		<-coordinatorDone
	})
	return &chatStack{
		registry: registry,
		handler:  handler,
		server:   server,
		url:      "ws" + strings.TrimPrefix(server.URL, "http"),
		cancel:   cancel,
	}
}

func (s *chatStack) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func requireNothingMore(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame %s", string(data))
}

func TestHandler_Two_Members_Receive_Once(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIMessageStore(ctrl)
	users := mocks.NewMockIUserDirectory(ctrl)
	stack := newChatStack(t, store, users)

	// Given a known user and a store accepting one message
	users.EXPECT().DisplayName(int64(1)).Return("alice@example.com", nil).Times(1)
	store.EXPECT().Append(gomock.Any()).DoAndReturn(func(m domain.Message) (domain.MessageID, error) {
		req.Equal("hi", m.Content)
		req.Equal(int64(1), *m.SenderID)
		return m.ID, nil
	}).Times(1)

	// Given A and B joined the chat room
	a := stack.dial(t)
	b := stack.dial(t)
	req.Eventually(func() bool { return stack.registry.Count() == 2 }, time.Second, 5*time.Millisecond)

	// When A sends a message
	req.NoError(a.WriteMessage(websocket.TextMessage, []byte(`{"message":"hi","sender_id":1}`)))

	// Then both receive it exactly once
	expected := `{"message":"hi","sender":"alice@example.com"}`
	req.JSONEq(expected, readFrame(t, a))
	req.JSONEq(expected, readFrame(t, b))
	requireNothingMore(t, a)
	requireNothingMore(t, b)
}

func TestHandler_Unknown_Sender_Is_Anonymous(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIMessageStore(ctrl)
	users := mocks.NewMockIUserDirectory(ctrl)
	stack := newChatStack(t, store, users)

	users.EXPECT().DisplayName(int64(999)).Return("", errors.ErrUserNotFound).Times(1)
	store.EXPECT().Append(gomock.Any()).DoAndReturn(func(m domain.Message) (domain.MessageID, error) {
		req.Nil(m.SenderID)
		return m.ID, nil
	}).Times(1)

	a := stack.dial(t)
	req.Eventually(func() bool { return stack.registry.Count() == 1 }, time.Second, 5*time.Millisecond)

	req.NoError(a.WriteMessage(websocket.TextMessage, []byte(`{"message":"who","sender_id":999}`)))

	req.JSONEq(`{"message":"who","sender":"Anonymous"}`, readFrame(t, a))
}

func TestHandler_Blank_Message_Is_Not_Stored(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIMessageStore(ctrl)
	users := mocks.NewMockIUserDirectory(ctrl)
	stack := newChatStack(t, store, users)

	// Then nothing reaches the store
	store.EXPECT().Append(gomock.Any()).Times(0)

	a := stack.dial(t)
	req.Eventually(func() bool { return stack.registry.Count() == 1 }, time.Second, 5*time.Millisecond)

	req.NoError(a.WriteMessage(websocket.TextMessage, []byte(`{"message":"   "}`)))

	requireNothingMore(t, a)
}

func TestHandler_Disconnect_Leaves_Room(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stack := newChatStack(t, mocks.NewMockIMessageStore(ctrl), mocks.NewMockIUserDirectory(ctrl))

	a := stack.dial(t)
	req.Eventually(func() bool { return stack.registry.Count() == 1 }, time.Second, 5*time.Millisecond)

	// When the client goes away
	req.NoError(a.Close())

	// Then its session leaves the registry
	req.Eventually(func() bool { return stack.registry.Count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHandler_Wait_Refuses_New_Sessions(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stack := newChatStack(t, mocks.NewMockIMessageStore(ctrl), mocks.NewMockIUserDirectory(ctrl))

	// Given clients connecting while the handler shuts down
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, _, err := websocket.DefaultDialer.Dial(stack.url, nil)
			if err == nil {
				_ = conn.Close()
			}
		}()
	}

	// When the sessions end and the handler waits for them
	stack.cancel()
	stack.handler.Wait()
	wg.Wait()

	// Then later upgrades are refused
	conn, resp, err := websocket.DefaultDialer.Dial(stack.url, nil)
	if conn != nil {
		_ = conn.Close()
	}
	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.NotNil(resp)
	req.Equal(http.StatusServiceUnavailable, resp.StatusCode)

	// And no session is left behind
	req.Eventually(func() bool { return stack.registry.Count() == 0 }, time.Second, 5*time.Millisecond)
}
