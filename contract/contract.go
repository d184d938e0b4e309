//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"standupbot/domain/event"
	"standupbot/domain/standup"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Directory resolves identities against the messaging platform.
type Directory interface {
	ResolveChannel(ctx context.Context, name string) (standup.ChannelID, error)
	ListMembers(ctx context.Context, channel standup.ChannelID) ([]standup.Member, error)
	ResolveMember(ctx context.Context, externalID standup.MemberID) (standup.Member, error)
}

// Refresher is implemented by directories keeping a local cache.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Notifier is fire-and-forget, messages of a channel are delivered in order.
type Notifier interface {
	Send(channel standup.ChannelID, text string)
}

// MessageSender is the transport call behind the Notifier.
type MessageSender interface {
	PostMessage(ctx context.Context, channel standup.ChannelID, text string) error
}

// EventSource produces realtime events until ctx is done or the connection closes.
type EventSource interface {
	Events(ctx context.Context) <-chan event.Event
}

type AdminPolicy interface {
	IsAdmin(member standup.Member) bool
}

type SessionRepository interface {
	Save(snapshot standup.Snapshot) error
	Get(channel standup.ChannelID) (standup.Snapshot, error)
	Delete(channel standup.ChannelID) error
	List() ([]standup.Snapshot, error)
}

// Outcome tells whether a channel is done for the day after handling an event.
type Outcome int

const (
	Continue Outcome = iota
	Finished
)

// ChannelHandler applies the events of one channel to its store.
type ChannelHandler interface {
	Greet(store *standup.Store) Outcome
	Handle(ctx context.Context, store *standup.Store, msg event.Message) Outcome
}

// EventRouter dispatches validated realtime events to the channel inboxes.
type EventRouter interface {
	Route(evt event.Event)
}
