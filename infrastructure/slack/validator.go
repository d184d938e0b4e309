package slack

import (
	"context"
	"fmt"
	"standupbot/domain/standup"

	"github.com/samber/lo"
)

// Validator checks the token, the channels and the bot membership before the bot connects.
type Validator struct {
	api       webAPI
	directory *Directory
}

func NewValidator(api webAPI, directory *Directory) *Validator {
	return &Validator{api: api, directory: directory}
}

// Validate returns every problem found, and the resolved channels when there is none.
func (v Validator) Validate(ctx context.Context, channelNames []string, botName string) ([]standup.ChannelID, []string) {
	if _, err := v.api.AuthTestContext(ctx); err != nil {
		return nil, []string{"The Bot API Token is invalid"}
	}
	if err := v.directory.Refresh(ctx); err != nil {
		return nil, []string{fmt.Sprintf("Unable to load the workspace directory: %v", err)}
	}

	var problems []string
	var channels []standup.ChannelID
	botID, botFound := v.directory.FindUserByName(botName)
	for _, name := range channelNames {
		channel, err := v.directory.ResolveChannel(ctx, name)
		if err != nil {
			problems = append(problems, fmt.Sprintf("There is no Channel called #%s", name))
			continue
		}
		members, err := v.directory.MemberIDs(ctx, channel)
		if err != nil || !botFound || !lo.Contains(members, botID) {
			problems = append(problems, fmt.Sprintf("There is no Bot called @%s within the #%s Channel", botName, name))
			continue
		}
		channels = append(channels, channel)
	}
	if len(problems) > 0 {
		return nil, problems
	}
	return channels, nil
}
