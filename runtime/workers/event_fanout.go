package workers

import (
	"context"
	"log/slog"
	"standupbot/contract"
	"standupbot/domain/event"
	"time"
)

// EventFanout broadcasts domain events to multiple in-process consumers.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// durability, or retries. EventFanout is not a message broker.
// Sinks are called one after the other so each of them sees the events
// of a channel in order.
type EventFanout struct {
	log          *slog.Logger
	domainEvents <-chan event.DomainEvent
	sinks        []contract.EventSink
	sinkTimeout  time.Duration
}

func NewEventFanout(log *slog.Logger, domainEvents <-chan event.DomainEvent, sinkTimeout time.Duration, sinks ...contract.EventSink) *EventFanout {
	return &EventFanout{log: log, domainEvents: domainEvents, sinks: sinks, sinkTimeout: sinkTimeout}
}

func (w EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.domainEvents:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.drain()
			w.log.Debug("Context done, stopping domainEvent send")
			return nil
		}
	}
}

// Fanout One sink for each event
func (w EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Warn("Sink failed to consume event", "sink", sinkName(sink), "channel", evt.ChannelID(), "error", err)
		}
		cancel()
	}
}

// drain hands the events already emitted to the sinks before leaving.
func (w EventFanout) drain() {
	for {
		select {
		case evt := <-w.domainEvents:
			w.Fanout(context.Background(), evt)
		default:
			return
		}
	}
}

func sinkName(sink contract.EventSink) string {
	if w, ok := sink.(contract.Worker); ok {
		return contract.GetWorkerName(w)
	}
	return "sink"
}
