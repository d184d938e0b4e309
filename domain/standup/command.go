package standup

import (
	"strings"
)

type Kind string

const (
	KindVacation    Kind = "VACATION"
	KindAdminSkip   Kind = "ADMIN_SKIP"
	KindQuit        Kind = "QUIT"
	KindHelp        Kind = "HELP"
	KindSkipToEnd   Kind = "SKIP_TO_END"
	KindStart       Kind = "START"
	KindAcknowledge Kind = "ACKNOWLEDGE"
	KindAnswer      Kind = "ANSWER"
)

// Mention is an administrative command targeting another member.
type Mention struct {
	Kind   Kind
	Target MemberID
}

// Command is the parsed, immutable form of one inbound message.
type Command struct {
	Kind     Kind
	Channel  ChannelID
	Actor    Member
	Mentions []Mention
	Raw      string
}

// Parser turns a raw message into a Command.
type Parser struct {
	scanner MentionScanner
}

func NewParser() (Parser, error) {
	scanner, err := NewMentionScanner()
	if err != nil {
		return Parser{}, err
	}
	return Parser{scanner: scanner}, nil
}

func (p Parser) Parse(channel ChannelID, actor Member, text string) Command {
	cmd := Command{
		Channel:  channel,
		Actor:    actor,
		Mentions: p.scanner.Scan(text),
		Raw:      text,
	}
	cmd.Kind = classify(strings.ToLower(strings.TrimSpace(text)))
	if len(cmd.Mentions) > 0 {
		cmd.Kind = cmd.Mentions[0].Kind
	}
	return cmd
}

func classify(normalized string) Kind {
	switch normalized {
	case "quit-standup":
		return KindQuit
	case "help":
		return KindHelp
	case "skip":
		return KindSkipToEnd
	case "start":
		return KindStart
	case "yes":
		return KindAcknowledge
	default:
		return KindAnswer
	}
}
