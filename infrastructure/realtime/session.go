// Package realtime serves the chat over persistent WebSocket connections.
package realtime

import (
	"context"
	"encoding/json"
	"geochat/contract"
	"geochat/domain"
	"geochat/domain/event"
	"geochat/errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var _ contract.Member = (*Session)(nil)

type SessionState int

const (
	Connecting SessionState = iota
	Joined
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Joined:
		return "joined"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is the part of *websocket.Conn a session relies on.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

type SessionConfig struct {
	SendBuffer     int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		SendBuffer:     256,
		MaxMessageSize: 4096,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
	}
}

// inboundFrame is what clients send. Message is required, SenderID is optional.
type inboundFrame struct {
	Message  *string `json:"message"`
	SenderID *int64  `json:"sender_id"`
}

type outboundFrame struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

// Session is one live connection to a room.
// It owns one read goroutine and one write goroutine, and tears itself down
// exactly once whatever ends it first.
type Session struct {
	id        string
	room      domain.RoomID
	conn      Conn
	registry  contract.IRegistry
	submitter contract.ISubmitter
	log       *slog.Logger
	cfg       SessionConfig

	mu    sync.Mutex
	state SessionState

	send chan event.BroadcastEvent
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func NewSession(
	conn Conn,
	room domain.RoomID,
	registry contract.IRegistry,
	submitter contract.ISubmitter,
	log *slog.Logger,
	cfg SessionConfig) *Session {
	id := uuid.NewString()
	return &Session{
		id:        id,
		room:      room,
		conn:      conn,
		registry:  registry,
		submitter: submitter,
		log:       log.With("session_id", id, "room_id", room),
		cfg:       cfg,
		state:     Connecting,
		send:      make(chan event.BroadcastEvent, cfg.SendBuffer),
		done:      make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start joins the room then runs the pumps until ctx is done or the connection ends.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.state != Connecting {
		s.mu.Unlock()
		return
	}
	s.registry.Join(s.room, s)
	s.state = Joined
	s.mu.Unlock()
	s.log.Debug("Session joined")

	s.wg.Add(2)
	go s.readPump()
	go s.writePump(ctx)
}

// Deliver enqueues the event for the write pump without ever blocking.
func (s *Session) Deliver(_ context.Context, e event.BroadcastEvent) error {
	select {
	case <-s.done:
		return errors.ErrSessionClosed
	default:
	}
	select {
	case s.send <- e:
		return nil
	case <-s.done:
		return errors.ErrSessionClosed
	default:
		return errors.ErrSlowConsumer
	}
}

// Close is idempotent and safe to call from any goroutine.
func (s *Session) Close() error {
	s.teardown()
	return nil
}

// Done is closed once the session is torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until both pumps returned.
func (s *Session) Wait() { s.wg.Wait() }

func (s *Session) teardown() {
	s.once.Do(func() {
		s.mu.Lock()
		joined := s.state == Joined
		s.state = Closed
		s.mu.Unlock()

		if joined {
			s.registry.Leave(s.room, s)
		}
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(s.cfg.WriteWait))
		if err := s.conn.Close(); err != nil {
			s.log.Debug("Unable to close connection", "error", err)
		}
		s.log.Debug("Session closed")
	})
}

func (s *Session) readPump() {
	defer s.wg.Done()
	defer s.teardown()

	s.conn.SetReadLimit(s.cfg.MaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("Connection lost", "error", err)
			}
			return
		}
		s.handleFrame(data)
	}
}

// handleFrame silently drops anything that isn't a usable chat message.
func (s *Session) handleFrame(data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil || frame.Message == nil {
		s.log.Debug("Discarding malformed frame")
		return
	}
	content := strings.TrimSpace(*frame.Message)
	if content == "" {
		return
	}
	err := s.submitter.Submit(domain.SubmitMessageCommand{
		Room:        s.room,
		SessionID:   s.id,
		SenderID:    frame.SenderID,
		Content:     content,
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("Message dropped", "error", err)
	}
}

func (s *Session) writePump(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer s.wg.Done()
	defer s.teardown()
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case e := <-s.send:
			payload, err := json.Marshal(outboundFrame{Message: e.Content, Sender: e.SenderName})
			if err != nil {
				s.log.Error("Unable to encode event", "error", err)
				continue
			}
			if err = s.write(websocket.TextMessage, payload); err != nil {
				s.log.Debug("Write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				s.log.Debug("Ping failed", "error", err)
				return
			}
		}
	}
}

func (s *Session) write(messageType int, payload []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(messageType, payload)
}
