package runtime

import (
	"log/slog"
	"standupbot/domain/standup"
	"sync"
)

// Outbox is the Notifier of the bot. Every channel owns a bounded queue
// drained in order by a single delivery worker; Send never blocks.
type Outbox struct {
	mu     sync.RWMutex
	log    *slog.Logger
	size   int
	queues map[standup.ChannelID]chan string
}

func NewOutbox(log *slog.Logger, size int) *Outbox {
	return &Outbox{log: log, size: size, queues: make(map[standup.ChannelID]chan string)}
}

// Register creates the queue of a channel, or returns the existing one.
func (o *Outbox) Register(channel standup.ChannelID) <-chan string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if queue, ok := o.queues[channel]; ok {
		return queue
	}
	queue := make(chan string, o.size)
	o.queues[channel] = queue
	return queue
}

func (o *Outbox) Send(channel standup.ChannelID, text string) {
	o.mu.RLock()
	queue, ok := o.queues[channel]
	o.mu.RUnlock()
	if !ok {
		o.log.Warn("No outbox for channel, message dropped", "channel", channel)
		return
	}
	select {
	case queue <- text:
	default:
		o.log.Warn("Outbox full, message dropped", "channel", channel)
	}
}

// Pending returns the number of queued messages of a channel.
func (o *Outbox) Pending(channel standup.ChannelID) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.queues[channel])
}
