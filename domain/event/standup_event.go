package event

import (
	"standupbot/domain/standup"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is emitted by the interpreter after a session transition.
type DomainEvent interface {
	ChannelID() standup.ChannelID
}

type StandupStarted struct {
	SessionID   uuid.UUID
	Channel     standup.ChannelID
	InitiatedBy standup.MemberID
	Members     []standup.MemberID
	At          time.Time
}

func (e StandupStarted) ChannelID() standup.ChannelID { return e.Channel }

type AnswerRecorded struct {
	SessionID     uuid.UUID
	Channel       standup.ChannelID
	Member        standup.Member
	QuestionIndex int
	Question      string
	Answer        string
	At            time.Time
}

func (e AnswerRecorded) ChannelID() standup.ChannelID { return e.Channel }

type MemberExcused struct {
	SessionID uuid.UUID
	Channel   standup.ChannelID
	Member    standup.MemberID
	By        standup.MemberID
	Reason    standup.ExcuseReason
	At        time.Time
}

func (e MemberExcused) ChannelID() standup.ChannelID { return e.Channel }

type StandupFinished struct {
	SessionID uuid.UUID
	Channel   standup.ChannelID
	Status    standup.Status
	At        time.Time
}

func (e StandupFinished) ChannelID() standup.ChannelID { return e.Channel }
