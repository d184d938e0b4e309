package event

import (
	"fmt"
	"standupbot/domain/standup"
	"standupbot/errors"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Kind string

const (
	Connected    Kind = "CONNECTED"
	Disconnected Kind = "DISCONNECTED"
	MessageKind  Kind = "MESSAGE"
)

// Event is what the realtime connection produces.
// Message is set only for MESSAGE, Reason only for DISCONNECTED.
type Event struct {
	Kind    Kind      `validate:"oneof=CONNECTED DISCONNECTED MESSAGE"`
	At      time.Time `validate:"required"`
	Message *Message  `validate:"required_if=Kind MESSAGE,excluded_unless=Kind MESSAGE"`
	Reason  string
}

type Message struct {
	Channel standup.ChannelID `validate:"required,max=64"`
	Sender  standup.MemberID  `validate:"required,max=64"`
	Text    string            `validate:"max=40000"`
}

func NewConnected(at time.Time) Event {
	return Event{Kind: Connected, At: at}
}

func NewDisconnected(at time.Time, reason string) Event {
	return Event{Kind: Disconnected, At: at, Reason: reason}
}

func NewMessage(at time.Time, channel standup.ChannelID, sender standup.MemberID, text string) Event {
	return Event{
		Kind:    MessageKind,
		At:      at,
		Message: &Message{Channel: channel, Sender: sender, Text: text},
	}
}

// Validate checks the event once, at the adapter boundary.
func (e Event) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidEvent, err)
	}
	return nil
}
