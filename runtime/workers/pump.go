package workers

import (
	"context"
	"log/slog"
	"standupbot/contract"
	"standupbot/domain/event"
	"time"
)

// EventPump reads the realtime connection and hands validated events to the router.
// A closed stream is reported as a disconnection.
type EventPump struct {
	log    *slog.Logger
	source contract.EventSource
	router contract.EventRouter
}

func NewEventPump(log *slog.Logger, source contract.EventSource, router contract.EventRouter) *EventPump {
	return &EventPump{log: log, source: source, router: router}
}

func (w EventPump) Run(ctx context.Context) error {
	events := w.source.Events(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event pump")
			return nil
		case evt, ok := <-events:
			if !ok {
				if ctx.Err() == nil {
					w.router.Route(event.NewDisconnected(time.Now().UTC(), "event stream closed"))
				}
				return nil
			}
			if err := evt.Validate(); err != nil {
				w.log.Warn("Invalid event dropped", "kind", evt.Kind, "error", err)
				continue
			}
			w.router.Route(evt)
			if evt.Kind == event.Disconnected {
				return nil
			}
		}
	}
}
