package runtime

import (
	"sort"
	"standupbot/domain/event"
	"standupbot/domain/standup"
	"sync"

	"github.com/samber/lo"
)

type Set map[standup.ChannelID]struct{}

// Registry holds the session store and the inbox of every tracked channel.
type Registry struct {
	mu       sync.RWMutex
	stores   map[standup.ChannelID]*standup.Store
	inboxes  map[standup.ChannelID]chan event.Event
	finished Set
}

func NewRegistry() *Registry {
	return &Registry{
		stores:   make(map[standup.ChannelID]*standup.Store),
		inboxes:  make(map[standup.ChannelID]chan event.Event),
		finished: make(Set),
	}
}

// Track registers a channel. Tracking an already known channel keeps the existing store.
func (r *Registry) Track(store *standup.Store, inbox chan event.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	channel := store.Channel()
	if _, ok := r.stores[channel]; ok {
		return false
	}
	r.stores[channel] = store
	r.inboxes[channel] = inbox
	return true
}

func (r *Registry) Store(channel standup.ChannelID) (*standup.Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	store, ok := r.stores[channel]
	return store, ok
}

func (r *Registry) Inbox(channel standup.ChannelID) (chan<- event.Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inbox, ok := r.inboxes[channel]
	return inbox, ok
}

// Channels returns the tracked channels in a stable order.
func (r *Registry) Channels() []standup.ChannelID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	channels := lo.Keys(r.stores)
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })
	return channels
}

// MarkFinished records that a channel is done for the day.
// It returns true once every tracked channel is finished.
func (r *Registry) MarkFinished(channel standup.ChannelID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stores[channel]; ok {
		r.finished[channel] = struct{}{}
	}
	return len(r.stores) > 0 && len(r.finished) == len(r.stores)
}

func (r *Registry) IsFinished(channel standup.ChannelID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.finished[channel]
	return ok
}
