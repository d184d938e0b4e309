package slack

import (
	"context"
	"fmt"
	"standupbot/domain/standup"
	"standupbot/errors"

	slackapi "github.com/slack-go/slack"
)

// Sender posts messages with chat.postMessage as the bot user.
type Sender struct {
	api webAPI
}

func NewSender(api webAPI) *Sender {
	return &Sender{api: api}
}

func (s Sender) PostMessage(ctx context.Context, channel standup.ChannelID, text string) error {
	_, _, err := s.api.PostMessageContext(ctx, string(channel),
		slackapi.MsgOptionText(text, false),
		slackapi.MsgOptionAsUser(true),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrTransportUnavailable, err)
	}
	return nil
}
