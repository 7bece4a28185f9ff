// Package runtime wires the chat fan-out path together.
// It holds no transport or storage code, only membership and message flow.
package runtime

import (
	"context"
	"fmt"
	"geochat/contract"
	"geochat/domain"
	"geochat/domain/event"
	"geochat/errors"
	"geochat/runtime/workers"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
)

var (
	_ contract.ISubmitter          = (*Coordinator)(nil)
	_ contract.PersistenceListener = (*Coordinator)(nil)
)

// Coordinator turns submitted messages into stored messages and broadcasts.
//
// Messages coming from live connections are appended silently by a lane worker
// and broadcast right after. Messages created by any other actor reach the
// coordinator through OnMessagePersisted. Both paths lead to exactly one
// Dispatch per stored message.
type Coordinator struct {
	log        *slog.Logger
	supervisor contract.ISupervisor
	router     contract.IRouter
	store      contract.IMessageStore
	users      contract.IUserDirectory
	lanes      []chan domain.SubmitMessageCommand
	now        func() time.Time
}

func NewCoordinator(
	log *slog.Logger,
	supervisor contract.ISupervisor,
	router contract.IRouter,
	store contract.IMessageStore,
	users contract.IUserDirectory,
	numLanes, bufferSize int) *Coordinator {
	if numLanes < 1 {
		numLanes = 1
	}
	lanes := make([]chan domain.SubmitMessageCommand, numLanes)
	for i := range lanes {
		lanes[i] = make(chan domain.SubmitMessageCommand, bufferSize)
	}
	return &Coordinator{
		log:        log,
		supervisor: supervisor,
		router:     router,
		store:      store,
		users:      users,
		lanes:      lanes,
		now:        time.Now,
	}
}

// Start registers one worker per lane and blocks until the supervisor stops.
func (c *Coordinator) Start(ctx context.Context) {
	for i, lane := range c.lanes {
		c.supervisor.Add(workers.NewPoolUnitWorker(i, lane, c.process, c.log))
	}
	c.log.Info("Chat coordinator started", "lanes", len(c.lanes))
	c.supervisor.Run(ctx)
}

func (c *Coordinator) Stop() {
	c.supervisor.Stop()
}

// Lanes exposes the submission queues for capacity sampling.
func (c *Coordinator) Lanes() []workers.NamedChannel {
	named := make([]workers.NamedChannel, len(c.lanes))
	for i, lane := range c.lanes {
		named[i] = workers.NamedChannel{Name: fmt.Sprintf("lane-%d", i), Channel: lane}
	}
	return named
}

// Submit never blocks the caller.
// A session always hashes to the same lane, which keeps its messages in order.
func (c *Coordinator) Submit(cmd domain.SubmitMessageCommand) error {
	cmd, ok := cmd.Normalize()
	if !ok {
		return errors.ErrEmptyContent
	}
	if cmd.SubmittedAt.IsZero() {
		cmd.SubmittedAt = c.now()
	}
	lane := c.lanes[xxhash.Sum64String(cmd.SessionID)%uint64(len(c.lanes))]
	select {
	case lane <- cmd:
		return nil
	default:
		return errors.ErrSubmissionQueueFull
	}
}

func (c *Coordinator) process(ctx context.Context, cmd domain.SubmitMessageCommand) {
	senderID, senderName := c.resolve(cmd.SenderID)
	message := domain.NewMessage(cmd.Room, senderID, cmd.Content, cmd.SubmittedAt)

	if _, err := c.store.Append(message); err != nil {
		c.log.Error("Unable to store message, not broadcasting",
			"room_id", cmd.Room, "session_id", cmd.SessionID, "error", err)
		return
	}

	delivered := c.router.Dispatch(ctx, cmd.Room, event.BroadcastEvent{
		Room:       cmd.Room,
		Content:    message.Content,
		SenderName: senderName,
	})
	c.log.Debug("Message broadcast", "room_id", cmd.Room, "message_id", message.ID, "delivered", delivered)
}

// OnMessagePersisted broadcasts a message created outside a live connection.
func (c *Coordinator) OnMessagePersisted(ctx context.Context, message domain.Message) {
	_, senderName := c.resolve(message.SenderID)
	delivered := c.router.Dispatch(ctx, message.Room, event.BroadcastEvent{
		Room:       message.Room,
		Content:    message.Content,
		SenderName: senderName,
	})
	c.log.Debug("Persisted message broadcast", "room_id", message.Room, "message_id", message.ID, "delivered", delivered)
}

// resolve returns the sender to record and the name to show.
// An unknown sender is recorded as nil and shown as Anonymous.
func (c *Coordinator) resolve(senderID *int64) (*int64, string) {
	if senderID == nil {
		return nil, domain.AnonymousSender
	}
	name, err := c.users.DisplayName(*senderID)
	if err != nil {
		c.log.Debug("Unresolved sender", "sender_id", *senderID, "error", err)
		return nil, domain.AnonymousSender
	}
	return senderID, name
}
