package workers

import (
	"context"
	"errors"
	"log/slog"
	"standupbot/contract"
	"standupbot/domain/standup"
	apperrors "standupbot/errors"
	"time"
)

// DeliveryWorker posts the queued messages of one channel, in order.
// A failed post is retried once after the backoff, then dropped.
// On shutdown the remaining queue is flushed within the drain timeout.
type DeliveryWorker struct {
	log          *slog.Logger
	channel      standup.ChannelID
	queue        <-chan string
	sender       contract.MessageSender
	sendTimeout  time.Duration
	retryBackoff time.Duration
	drainTimeout time.Duration
}

func NewDeliveryWorker(log *slog.Logger, channel standup.ChannelID, queue <-chan string,
	sender contract.MessageSender, sendTimeout, retryBackoff, drainTimeout time.Duration) *DeliveryWorker {
	return &DeliveryWorker{
		log:          log,
		channel:      channel,
		queue:        queue,
		sender:       sender,
		sendTimeout:  sendTimeout,
		retryBackoff: retryBackoff,
		drainTimeout: drainTimeout,
	}
}

func (w DeliveryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case text := <-w.queue:
			w.deliver(ctx, text)
		}
	}
}

func (w DeliveryWorker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), w.drainTimeout)
	defer cancel()
	for {
		select {
		case text := <-w.queue:
			if ctx.Err() != nil {
				w.log.Warn("Drain timeout, message dropped", "channel", w.channel)
				continue
			}
			w.deliver(ctx, text)
		default:
			return
		}
	}
}

func (w DeliveryWorker) deliver(ctx context.Context, text string) {
	err := w.post(ctx, text)
	if err == nil {
		return
	}
	if !errors.Is(err, apperrors.ErrTransportUnavailable) {
		w.log.Error("Message dropped", "channel", w.channel, "error", err)
		return
	}
	w.log.Warn("Message delivery failed, retrying", "channel", w.channel, "error", err)
	select {
	case <-ctx.Done():
		w.log.Error("Message dropped", "channel", w.channel, "error", ctx.Err())
		return
	case <-time.After(w.retryBackoff):
	}
	if err := w.post(ctx, text); err != nil {
		w.log.Error("Message dropped after retry", "channel", w.channel, "error", err)
	}
}

func (w DeliveryWorker) post(ctx context.Context, text string) error {
	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()
	return w.sender.PostMessage(sendCtx, w.channel, text)
}
