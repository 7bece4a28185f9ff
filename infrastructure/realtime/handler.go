package realtime

import (
	"context"
	"geochat/contract"
	"geochat/domain"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests into chat sessions of a single room.
// Sessions live as long as baseCtx, never as long as the upgrade request.
type Handler struct {
	log       *slog.Logger
	baseCtx   context.Context
	room      domain.RoomID
	registry  contract.IRegistry
	submitter contract.ISubmitter
	cfg       SessionConfig
	upgrader  websocket.Upgrader

	mu       sync.Mutex
	closing  bool
	sessions sync.WaitGroup
}

func NewHandler(
	baseCtx context.Context,
	log *slog.Logger,
	room domain.RoomID,
	registry contract.IRegistry,
	submitter contract.ISubmitter,
	cfg SessionConfig) *Handler {
	return &Handler{
		log:       log,
		baseCtx:   baseCtx,
		room:      room,
		registry:  registry,
		submitter: submitter,
		cfg:       cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The chat page may be served from any origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Sessions are counted before the upgrade, under the same lock Wait takes
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	h.sessions.Add(1)
	h.mu.Unlock()

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client
		h.log.Debug("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		h.sessions.Done()
		return
	}
	// Upgrade has written the 101 by now, joining is the first thing the session does
	// and no frame is read before it is a member
	session := NewSession(ws, h.room, h.registry, h.submitter, h.log, h.cfg)
	session.Start(h.baseCtx)

	go func() {
		defer h.sessions.Done()
		session.Wait()
	}()
}

// Wait refuses new upgrades, then blocks until every session opened by the handler is gone.
func (h *Handler) Wait() {
	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()
	h.sessions.Wait()
}
