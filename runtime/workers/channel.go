package workers

import (
	"context"
	"log/slog"
	"standupbot/contract"
	"standupbot/domain/event"
	"standupbot/domain/standup"
)

// ChannelWorker is the single writer of a channel store.
// Events are applied one at a time, in arrival order, and the session
// snapshot is saved after each of them.
type ChannelWorker struct {
	log        *slog.Logger
	store      *standup.Store
	inbox      <-chan event.Event
	handler    contract.ChannelHandler
	sessions   contract.SessionRepository
	onFinished func(channel standup.ChannelID)
}

func NewChannelWorker(log *slog.Logger, store *standup.Store, inbox <-chan event.Event,
	handler contract.ChannelHandler, sessions contract.SessionRepository,
	onFinished func(channel standup.ChannelID)) *ChannelWorker {
	return &ChannelWorker{
		log:        log,
		store:      store,
		inbox:      inbox,
		handler:    handler,
		sessions:   sessions,
		onFinished: onFinished,
	}
}

func (w ChannelWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping channel worker", "channel", w.store.Channel())
			return nil
		case evt := <-w.inbox:
			// An event taken from the inbox is applied to the end, even if ctx is canceled meanwhile.
			w.Process(context.WithoutCancel(ctx), evt)
		}
	}
}

// Process applies one event to the store.
func (w ChannelWorker) Process(ctx context.Context, evt event.Event) {
	outcome := contract.Continue
	switch evt.Kind {
	case event.Connected:
		outcome = w.handler.Greet(w.store)
	case event.MessageKind:
		outcome = w.handler.Handle(ctx, w.store, *evt.Message)
	default:
		w.log.Debug("Event ignored by channel worker", "channel", w.store.Channel(), "kind", evt.Kind)
		return
	}

	w.persist()
	if outcome == contract.Finished && w.onFinished != nil {
		w.onFinished(w.store.Channel())
	}
}

func (w ChannelWorker) persist() {
	snapshot, ok := w.store.Snapshot()
	if !ok {
		return
	}
	if err := w.sessions.Save(snapshot); err != nil {
		w.log.Error("Unable to save session", "channel", w.store.Channel(), "error", err)
	}
}
