package slack

import (
	"context"
	"errors"
	"sync"

	slackapi "github.com/slack-go/slack"
)

// fakeWebAPI serves a fixed workspace.
type fakeWebAPI struct {
	mu        sync.Mutex
	authErr   error
	usersErr  error
	postErr   error
	users     []slackapi.User
	channels  [][]slackapi.Channel
	members   map[string][]string
	userCalls int
	posted    []string
}

func (f *fakeWebAPI) AuthTestContext(context.Context) (*slackapi.AuthTestResponse, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &slackapi.AuthTestResponse{UserID: "UBOT"}, nil
}

// GetConversationsContext pages through f.channels, the cursor is the page index.
func (f *fakeWebAPI) GetConversationsContext(_ context.Context, params *slackapi.GetConversationsParameters) ([]slackapi.Channel, string, error) {
	page := 0
	if params.Cursor == "next" {
		page = 1
	}
	if page >= len(f.channels) {
		return nil, "", nil
	}
	cursor := ""
	if page+1 < len(f.channels) {
		cursor = "next"
	}
	return f.channels[page], cursor, nil
}

func (f *fakeWebAPI) GetUsersInConversationContext(_ context.Context, params *slackapi.GetUsersInConversationParameters) ([]string, string, error) {
	ids, ok := f.members[params.ChannelID]
	if !ok {
		return nil, "", errors.New("channel_not_found")
	}
	return ids, "", nil
}

func (f *fakeWebAPI) GetUsersContext(context.Context, ...slackapi.GetUsersOption) ([]slackapi.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls++
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return f.users, nil
}

func (f *fakeWebAPI) GetUserInfoContext(_ context.Context, id string) (*slackapi.User, error) {
	if id == "ULATE" {
		return &slackapi.User{ID: "ULATE", Name: "late"}, nil
	}
	return nil, errors.New("user_not_found")
}

func (f *fakeWebAPI) PostMessageContext(_ context.Context, channelID string, _ ...slackapi.MsgOption) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return "", "", f.postErr
	}
	f.posted = append(f.posted, channelID)
	return channelID, "1.0", nil
}

func channel(id, name string) slackapi.Channel {
	return slackapi.Channel{GroupConversation: slackapi.GroupConversation{
		Conversation: slackapi.Conversation{ID: id},
		Name:         name,
	}}
}

func workspace() *fakeWebAPI {
	return &fakeWebAPI{
		users: []slackapi.User{
			{ID: "UA", Name: "alice", Profile: slackapi.UserProfile{DisplayName: "Alice"}},
			{ID: "UB", Name: "bob", IsAdmin: true},
			{ID: "UBOT", Name: "standup", IsBot: true},
			{ID: "UGONE", Name: "gone", Deleted: true},
			{ID: "USLACKBOT", Name: "slackbot"},
		},
		channels: [][]slackapi.Channel{
			{channel("C1", "standup")},
			{channel("C2", "random")},
		},
		members: map[string][]string{
			"C1": {"UA", "UBOT", "UB", "UGONE", "USLACKBOT"},
			"C2": {"UA"},
		},
	}
}
