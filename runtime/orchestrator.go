// Package runtime handles event production, routing, and the bot lifecycle.
// It orchestrates the system without containing business logic or domain rules.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"standupbot/contract"
	"standupbot/domain/event"
	"standupbot/domain/standup"
	apperrors "standupbot/errors"
	"standupbot/runtime/workers"
	"sync"
	"sync/atomic"
	"time"
)

// ShutdownReason tells why the bot is going offline.
type ShutdownReason string

const (
	ShutdownSignal       ShutdownReason = "SIGNAL"
	ShutdownDisconnected ShutdownReason = "DISCONNECTED"
	ShutdownCompleted    ShutdownReason = "COMPLETED"
)

type Config struct {
	BufferSize               int
	SinkTimeout              time.Duration
	SendTimeout              time.Duration
	RetryBackoff             time.Duration
	FarewellTimeout          time.Duration
	DirectoryRefreshInterval time.Duration
	MetricInterval           time.Duration
}

type Orchestrator struct {
	mu           sync.Mutex
	log          *slog.Logger
	cfg          Config
	supervisor   contract.ISupervisor
	deliveries   contract.ISupervisor
	registry     *Registry
	outbox       *Outbox
	interpreter  *Interpreter
	directory    contract.Directory
	source       contract.EventSource
	sender       contract.MessageSender
	sessions     contract.SessionRepository
	sinks        []contract.EventSink
	domainEvents chan event.DomainEvent
	questions    int
	shutdown     chan ShutdownReason
	stopping     atomic.Bool
	now          func() time.Time
}

func NewOrchestrator(log *slog.Logger, cfg Config, supervisor, deliveries contract.ISupervisor, registry *Registry,
	outbox *Outbox, interpreter *Interpreter, domainEvents chan event.DomainEvent,
	directory contract.Directory, source contract.EventSource, sender contract.MessageSender,
	sessions contract.SessionRepository, questions int) *Orchestrator {
	return &Orchestrator{
		log:          log,
		cfg:          cfg,
		supervisor:   supervisor,
		deliveries:   deliveries,
		registry:     registry,
		outbox:       outbox,
		interpreter:  interpreter,
		directory:    directory,
		source:       source,
		sender:       sender,
		sessions:     sessions,
		domainEvents: domainEvents,
		questions:    questions,
		shutdown:     make(chan ShutdownReason, 1),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Add registers sinks consuming the domain events.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sinks = append(o.sinks, sinks...)
}

// Run tracks the channels, starts every worker and blocks until shutdown.
// Shutdown happens in two phases. Routing stops, then the channel workers
// and the pump are canceled and awaited. Only then are the delivery workers
// and the fan-out canceled, so they drain queues that no longer grow.
func (o *Orchestrator) Run(ctx context.Context, channels []standup.ChannelID) (ShutdownReason, error) {
	if len(channels) == 0 {
		return "", fmt.Errorf("%w: no channel to track", apperrors.ErrChannelNotFound)
	}

	var watched []workers.NamedChannel
	for _, channel := range channels {
		store := standup.NewStore(channel, o.questions)
		o.recoverSession(store)

		inbox := make(chan event.Event, o.cfg.BufferSize)
		if !o.registry.Track(store, inbox) {
			o.log.Info("Channel already tracked", "channel", channel)
			continue
		}
		queue := o.outbox.Register(channel)
		o.supervisor.Add(workers.NewChannelWorker(o.log, store, inbox, o.interpreter, o.sessions, o.channelFinished))
		o.deliveries.Add(workers.NewDeliveryWorker(o.log, channel, queue, o.sender, o.cfg.SendTimeout, o.cfg.RetryBackoff, o.cfg.FarewellTimeout))
		watched = append(watched,
			workers.NamedChannel{Name: "inbox:" + string(channel), Channel: inbox},
			workers.NamedChannel{Name: "outbox:" + string(channel), Channel: queue},
		)
	}
	watched = append(watched, workers.NamedChannel{Name: "domain_events", Channel: o.domainEvents})

	o.mu.Lock()
	sinks := append([]contract.EventSink(nil), o.sinks...)
	o.mu.Unlock()

	o.deliveries.Add(workers.NewEventFanout(o.log, o.domainEvents, o.cfg.SinkTimeout, sinks...))
	o.supervisor.Add(workers.NewEventPump(o.log, o.source, o))
	if refresher, ok := o.directory.(contract.Refresher); ok && o.cfg.DirectoryRefreshInterval > 0 {
		o.supervisor.Add(workers.NewDirectoryRefreshWorker(o.log, refresher, o.cfg.DirectoryRefreshInterval))
	}
	if o.cfg.MetricInterval > 0 {
		o.supervisor.Add(
			workers.NewChannelCapacityWorker(o.log, watched, o.cfg.MetricInterval),
			workers.NewHeartbeatWorker(o.log, o.cfg.MetricInterval),
		)
	}

	base := context.WithoutCancel(ctx)
	runCtx, cancelRun := context.WithCancel(base)
	defer cancelRun()
	deliveryCtx, cancelDeliveries := context.WithCancel(base)
	defer cancelDeliveries()

	o.log.Info("Starting orchestrator and all supervised workers", "channels", len(channels))
	runDone := runAsync(runCtx, o.supervisor)
	deliveriesDone := runAsync(deliveryCtx, o.deliveries)

	var reason ShutdownReason
	select {
	case <-ctx.Done():
		reason = ShutdownSignal
	case reason = <-o.shutdown:
	}
	o.log.Info("Shutting down", "reason", reason)

	o.stopping.Store(true)
	cancelRun()
	<-runDone
	o.log.Debug("Channel workers stopped, draining deliveries")
	cancelDeliveries()
	<-deliveriesDone

	o.teardown(reason)
	return reason, nil
}

func runAsync(ctx context.Context, supervisor contract.ISupervisor) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		supervisor.Run(ctx)
	}()
	return done
}

// Route implements contract.EventRouter for the event pump.
func (o *Orchestrator) Route(evt event.Event) {
	if o.stopping.Load() {
		o.log.Debug("Shutting down, event ignored", "kind", evt.Kind)
		return
	}
	switch evt.Kind {
	case event.Connected:
		o.log.Info("Connected to the messaging platform")
		for _, channel := range o.registry.Channels() {
			o.enqueue(channel, evt)
		}
	case event.Disconnected:
		o.log.Warn("Disconnected from the messaging platform", "reason", evt.Reason)
		o.requestShutdown(ShutdownDisconnected)
	case event.MessageKind:
		o.enqueue(evt.Message.Channel, evt)
	}
}

func (o *Orchestrator) enqueue(channel standup.ChannelID, evt event.Event) {
	if o.registry.IsFinished(channel) {
		o.log.Debug("Channel finished, event ignored", "channel", channel)
		return
	}
	inbox, ok := o.registry.Inbox(channel)
	if !ok {
		o.log.Debug("Untracked channel, event ignored", "channel", channel)
		return
	}
	select {
	case inbox <- evt:
	default:
		o.log.Warn("Channel inbox full, event dropped", "channel", channel)
	}
}

func (o *Orchestrator) channelFinished(channel standup.ChannelID) {
	o.log.Info("Channel finished for today", "channel", channel)
	if o.registry.MarkFinished(channel) {
		o.requestShutdown(ShutdownCompleted)
	}
}

func (o *Orchestrator) requestShutdown(reason ShutdownReason) {
	select {
	case o.shutdown <- reason:
	default:
	}
}

// recoverSession restores today's saved session. Aborted sessions, sessions
// from a previous day and inconsistent sessions are discarded.
func (o *Orchestrator) recoverSession(store *standup.Store) {
	channel := store.Channel()
	snapshot, err := o.sessions.Get(channel)
	if errors.Is(err, apperrors.ErrNoSession) {
		return
	}
	if err != nil {
		o.log.Warn("Unable to read saved session", "channel", channel, "error", err)
		return
	}
	if snapshot.Status == standup.StatusAborted || snapshot.Day() != o.now().Format(standup.DayLayout) {
		o.log.Info("Discarding saved session", "channel", channel, "status", snapshot.Status, "day", snapshot.Day())
		o.discardSession(channel)
		return
	}
	if err := store.Restore(snapshot); err != nil {
		o.log.Warn("Discarding inconsistent saved session", "channel", channel, "error", err)
		o.discardSession(channel)
		return
	}
	o.log.Info("Session recovered", "channel", channel, "status", snapshot.Status, "current", snapshot.Current)
}

func (o *Orchestrator) discardSession(channel standup.ChannelID) {
	if err := o.sessions.Delete(channel); err != nil {
		o.log.Warn("Unable to delete saved session", "channel", channel, "error", err)
	}
}

// teardown saves the active sessions then closes them in memory.
// A farewell is posted on channels left unfinished, unless every channel completed.
// Only channels with a saved session are told it will resume.
func (o *Orchestrator) teardown(reason ShutdownReason) {
	for _, channel := range o.registry.Channels() {
		store, _ := o.registry.Store(channel)
		saved := false
		if store.Status() == standup.StatusActive {
			if snapshot, ok := store.Snapshot(); ok {
				if err := o.sessions.Save(snapshot); err != nil {
					o.log.Error("Unable to save session on shutdown", "channel", channel, "error", err)
				} else {
					saved = true
				}
			}
			_ = store.Quit()
		}
		if reason == ShutdownCompleted || o.registry.IsFinished(channel) {
			continue
		}
		text := msgOffline
		if saved {
			text = msgFarewell
		}
		o.farewell(channel, text)
	}
}

func (o *Orchestrator) farewell(channel standup.ChannelID, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.FarewellTimeout)
	defer cancel()
	if err := o.sender.PostMessage(ctx, channel, text); err != nil {
		o.log.Warn("Farewell not delivered", "channel", channel, "error", err)
	}
}
