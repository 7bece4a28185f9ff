package workers

import (
	"context"
	"geochat/contract"
	"geochat/domain"
	"log/slog"
)

var _ contract.Worker = (*PoolUnitWorker)(nil)

// CommandProcessor handles one submitted message off the connection read path.
type CommandProcessor func(ctx context.Context, cmd domain.SubmitMessageCommand)

// PoolUnitWorker drains one submission lane in order.
// Commands of a given session always land on the same lane.
type PoolUnitWorker struct {
	lane    int
	queue   chan domain.SubmitMessageCommand
	process CommandProcessor
	log     *slog.Logger
}

func NewPoolUnitWorker(
	lane int,
	queue chan domain.SubmitMessageCommand,
	process CommandProcessor,
	log *slog.Logger) *PoolUnitWorker {
	return &PoolUnitWorker{
		lane:    lane,
		queue:   queue,
		process: process,
		log:     log.With("lane", lane),
	}
}

func (w *PoolUnitWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping submission lane")
			return ctx.Err()
		case cmd, ok := <-w.queue:
			if !ok {
				w.log.Debug("Submission lane is closed")
				return nil
			}
			w.process(ctx, cmd)
		}
	}
}
