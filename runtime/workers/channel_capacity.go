package workers

import (
	"context"
	"geochat/contract"
	"log/slog"
	"reflect"
	"time"
)

type NamedChannel struct {
	Name    string
	Channel any
}

// ChannelCapacityWorker periodically samples the length of the given channels.
// Reading len and cap is non-blocking, so sampling never slows the lanes down.
// A channel filled above thresholdPercent of its capacity is reported as a warning.
type ChannelCapacityWorker struct {
	log              *slog.Logger
	channels         []NamedChannel
	registry         contract.IRegistry
	metricInterval   time.Duration
	thresholdPercent int
}

func NewChannelCapacityWorker(log *slog.Logger,
	channels []NamedChannel, registry contract.IRegistry,
	metricInterval time.Duration, thresholdPercent int) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{
		log: log, channels: channels,
		registry:         registry,
		metricInterval:   metricInterval,
		thresholdPercent: thresholdPercent,
	}
}

func (w ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping capacity sampling")
			return nil
		case <-ticker.C:
			w.sample()
		}
	}
}

// sample returns the number of channels found above the threshold.
func (w ChannelCapacityWorker) sample() int {
	saturated := 0
	for _, nc := range w.channels {
		v := reflect.ValueOf(nc.Channel)
		if v.Kind() != reflect.Chan {
			w.log.Error("Provided object is not a channel", "name", nc.Name)
			continue
		}
		capacity, length := v.Cap(), v.Len()
		if capacity > 0 && length*100 >= capacity*w.thresholdPercent {
			saturated++
			w.log.Warn("Channel close to saturation", "name", nc.Name, "length", length, "capacity", capacity)
			continue
		}
		w.log.Debug("Channel capacity", "name", nc.Name, "length", length, "capacity", capacity)
	}
	if w.registry != nil {
		w.log.Debug("Connected members", "count", w.registry.Count())
	}
	return saturated
}
