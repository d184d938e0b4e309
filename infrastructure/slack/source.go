package slack

import (
	"context"
	"log/slog"
	"standupbot/domain/event"
	"standupbot/domain/standup"
	"sync"
	"time"

	slackapi "github.com/slack-go/slack"
)

// rtmConnection is the part of *slackapi.RTM the source relies on.
type rtmConnection interface {
	ManageConnection()
	Disconnect() error
	Incoming() <-chan slackapi.RTMEvent
}

type rtm struct {
	*slackapi.RTM
}

func (r rtm) Incoming() <-chan slackapi.RTMEvent { return r.IncomingEvents }

// RealTimeSource turns the Slack RTM stream into bot events.
// Bot messages, message edits and other subtypes never leave the adapter.
type RealTimeSource struct {
	log        *slog.Logger
	connect    func() rtmConnection
	bufferSize int
	mu         sync.RWMutex
	botID      standup.MemberID
}

func NewRealTimeSource(log *slog.Logger, client *slackapi.Client, bufferSize int) *RealTimeSource {
	return &RealTimeSource{
		log:        log,
		connect:    func() rtmConnection { return rtm{client.NewRTM()} },
		bufferSize: bufferSize,
	}
}

// Events opens the connection. The channel is closed after a disconnection or when ctx is done.
func (s *RealTimeSource) Events(ctx context.Context) <-chan event.Event {
	conn := s.connect()
	go conn.ManageConnection()

	out := make(chan event.Event, s.bufferSize)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				if err := conn.Disconnect(); err != nil {
					s.log.Debug("RTM disconnect failed", "error", err)
				}
				return
			case raw, ok := <-conn.Incoming():
				if !ok {
					return
				}
				if connected, isConnected := raw.Data.(*slackapi.ConnectedEvent); isConnected && connected.Info != nil && connected.Info.User != nil {
					s.setBotID(standup.MemberID(connected.Info.User.ID))
				}
				evt, keep := toEvent(raw, s.getBotID(), time.Now().UTC())
				if !keep {
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					_ = conn.Disconnect()
					return
				}
				if evt.Kind == event.Disconnected {
					return
				}
			}
		}
	}()
	return out
}

func (s *RealTimeSource) setBotID(id standup.MemberID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.botID = id
}

func (s *RealTimeSource) getBotID() standup.MemberID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.botID
}

// toEvent maps one RTM event, keep is false for everything the bot ignores.
func toEvent(raw slackapi.RTMEvent, botID standup.MemberID, at time.Time) (event.Event, bool) {
	switch data := raw.Data.(type) {
	case *slackapi.HelloEvent:
		return event.NewConnected(at), true
	case *slackapi.MessageEvent:
		if data.SubType != "" || data.BotID != "" || data.Hidden || data.User == "" {
			return event.Event{}, false
		}
		if botID != "" && standup.MemberID(data.User) == botID {
			return event.Event{}, false
		}
		return event.NewMessage(at, standup.ChannelID(data.Channel), standup.MemberID(data.User), data.Text), true
	case *slackapi.DisconnectedEvent:
		reason := "disconnected"
		if data.Cause != nil {
			reason = data.Cause.Error()
		}
		return event.NewDisconnected(at, reason), true
	case *slackapi.InvalidAuthEvent:
		return event.NewDisconnected(at, "invalid authentication"), true
	default:
		return event.Event{}, false
	}
}
