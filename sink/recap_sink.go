package sink

import (
	"context"
	"log/slog"
	"standupbot/domain/event"
	"standupbot/domain/standup"
	"sync"

	"github.com/google/uuid"
)

// Recap holds a running tally of each session and logs it when the session ends.
type Recap struct {
	log      *slog.Logger
	mu       sync.Mutex
	sessions map[uuid.UUID]*Tally
}

type Tally struct {
	Channel  standup.ChannelID
	Members  int
	Answers  int
	Excused  int
	Answered map[standup.MemberID]struct{}
}

func NewRecap(log *slog.Logger) *Recap {
	return &Recap{log: log, sessions: make(map[uuid.UUID]*Tally)}
}

func (r *Recap) Consume(_ context.Context, e event.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch evt := e.(type) {
	case event.StandupStarted:
		r.sessions[evt.SessionID] = &Tally{
			Channel:  evt.Channel,
			Members:  len(evt.Members),
			Answered: make(map[standup.MemberID]struct{}),
		}
	case event.AnswerRecorded:
		tally := r.tally(evt.SessionID, evt.Channel)
		tally.Answers++
		tally.Answered[evt.Member.ID] = struct{}{}
	case event.MemberExcused:
		r.tally(evt.SessionID, evt.Channel).Excused++
	case event.StandupFinished:
		tally := r.tally(evt.SessionID, evt.Channel)
		r.log.Info("Standup finished",
			"channel", evt.Channel,
			"status", evt.Status,
			"members", tally.Members,
			"answered", len(tally.Answered),
			"answers", tally.Answers,
			"excused", tally.Excused)
		delete(r.sessions, evt.SessionID)
	}
	return nil
}

// Get returns a copy of the tally of a running session.
func (r *Recap) Get(session uuid.UUID) (Tally, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tally, ok := r.sessions[session]
	if !ok {
		return Tally{}, false
	}
	return *tally, true
}

// tally tolerates sessions restored from disk, which never emitted StandupStarted here.
func (r *Recap) tally(session uuid.UUID, channel standup.ChannelID) *Tally {
	tally, ok := r.sessions[session]
	if !ok {
		tally = &Tally{Channel: channel, Answered: make(map[standup.MemberID]struct{})}
		r.sessions[session] = tally
	}
	return tally
}
