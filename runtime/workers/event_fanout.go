package workers

import (
	"context"
	"geochat/contract"
	"geochat/domain"
	"geochat/domain/event"
	"geochat/errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var _ contract.IRouter = (*EventFanout)(nil)

// EventFanout delivers one broadcast event to every member present in a room.
//
// Each member is served by its own goroutine bounded by sinkTimeout, so a slow
// or broken connection never delays the others. A member whose delivery fails
// is removed from the registry and closed.
//
// EventFanout is safe for concurrent use by multiple goroutines.
type EventFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{log: log, registry: registry, sinkTimeout: sinkTimeout}
}

// Dispatch returns the number of successful deliveries once every attempt finished.
func (f *EventFanout) Dispatch(ctx context.Context, roomID domain.RoomID, e event.BroadcastEvent) int {
	members := f.registry.MembersOf(roomID)
	if len(members) == 0 {
		return 0
	}

	var delivered atomic.Int32
	var wg sync.WaitGroup
	for _, member := range members {
		wg.Add(1)
		go func(m contract.Member) {
			defer wg.Done()
			if err := f.deliver(ctx, m, e); err != nil {
				f.log.Warn("Delivery failed, dropping member",
					"room_id", roomID, "member_id", m.ID(), "error", err)
				f.registry.Leave(roomID, m)
				if err := m.Close(); err != nil {
					f.log.Debug("Unable to close member", "member_id", m.ID(), "error", err)
				}
				return
			}
			delivered.Add(1)
		}(member)
	}
	wg.Wait()
	return int(delivered.Load())
}

func (f *EventFanout) deliver(ctx context.Context, m contract.Member, e event.BroadcastEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.ErrDeliveryPanic
		}
	}()
	sinkCtx, cancel := context.WithTimeout(ctx, f.sinkTimeout)
	defer cancel()
	return m.Deliver(sinkCtx, e)
}
