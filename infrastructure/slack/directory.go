// Package slack adapts the Slack Web and RTM APIs to the bot contracts.
package slack

import (
	"context"
	"fmt"
	"log/slog"
	"standupbot/domain/standup"
	"standupbot/errors"
	"strings"
	"sync"

	slackapi "github.com/slack-go/slack"
)

const pageSize = 200

// webAPI is the part of *slackapi.Client the adapter relies on.
type webAPI interface {
	AuthTestContext(ctx context.Context) (*slackapi.AuthTestResponse, error)
	GetConversationsContext(ctx context.Context, params *slackapi.GetConversationsParameters) ([]slackapi.Channel, string, error)
	GetUsersInConversationContext(ctx context.Context, params *slackapi.GetUsersInConversationParameters) ([]string, string, error)
	GetUsersContext(ctx context.Context, options ...slackapi.GetUsersOption) ([]slackapi.User, error)
	GetUserInfoContext(ctx context.Context, user string) (*slackapi.User, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Directory caches the workspace users and channels.
// Reads are concurrent, Refresh replaces the whole cache at once.
type Directory struct {
	log      *slog.Logger
	api      webAPI
	mu       sync.RWMutex
	users    map[standup.MemberID]slackapi.User
	channels map[string]standup.ChannelID
}

func NewDirectory(log *slog.Logger, api webAPI) *Directory {
	return &Directory{
		log:      log,
		api:      api,
		users:    make(map[standup.MemberID]slackapi.User),
		channels: make(map[string]standup.ChannelID),
	}
}

// Refresh reloads users and channels. On error the previous cache is kept.
func (d *Directory) Refresh(ctx context.Context) error {
	users, err := d.api.GetUsersContext(ctx)
	if err != nil {
		return fmt.Errorf("unable to list users: %w", err)
	}
	channels := make(map[string]standup.ChannelID)
	params := &slackapi.GetConversationsParameters{
		Types:           []string{"public_channel", "private_channel"},
		ExcludeArchived: true,
		Limit:           pageSize,
	}
	for {
		page, cursor, err := d.api.GetConversationsContext(ctx, params)
		if err != nil {
			return fmt.Errorf("unable to list channels: %w", err)
		}
		for _, c := range page {
			channels[c.Name] = standup.ChannelID(c.ID)
		}
		if cursor == "" {
			break
		}
		params.Cursor = cursor
	}

	byID := make(map[standup.MemberID]slackapi.User, len(users))
	for _, u := range users {
		byID[standup.MemberID(u.ID)] = u
	}

	d.mu.Lock()
	d.users = byID
	d.channels = channels
	d.mu.Unlock()
	d.log.Debug("Directory loaded", "users", len(byID), "channels", len(channels))
	return nil
}

// ResolveChannel accepts "standup" or "#standup".
func (d *Directory) ResolveChannel(ctx context.Context, name string) (standup.ChannelID, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "#")
	if id, ok := d.channel(name); ok {
		return id, nil
	}
	if err := d.Refresh(ctx); err != nil {
		return "", err
	}
	if id, ok := d.channel(name); ok {
		return id, nil
	}
	return "", fmt.Errorf("%w: #%s", errors.ErrChannelNotFound, name)
}

// ListMembers returns the humans of a channel in the order Slack lists them.
// The cache is refreshed first so a new session sees newcomers.
func (d *Directory) ListMembers(ctx context.Context, channel standup.ChannelID) ([]standup.Member, error) {
	if err := d.Refresh(ctx); err != nil {
		d.log.Warn("Directory refresh failed, using cached users", "error", err)
	}
	ids, err := d.MemberIDs(ctx, channel)
	if err != nil {
		return nil, err
	}
	members := make([]standup.Member, 0, len(ids))
	for _, id := range ids {
		user, ok := d.user(id)
		if !ok || !isHuman(user) {
			continue
		}
		members = append(members, toMember(user))
	}
	return members, nil
}

// MemberIDs returns every member id of a channel, bots included.
func (d *Directory) MemberIDs(ctx context.Context, channel standup.ChannelID) ([]standup.MemberID, error) {
	params := &slackapi.GetUsersInConversationParameters{ChannelID: string(channel), Limit: pageSize}
	var ids []standup.MemberID
	for {
		page, cursor, err := d.api.GetUsersInConversationContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("unable to list members of %s: %w", channel, err)
		}
		for _, id := range page {
			ids = append(ids, standup.MemberID(id))
		}
		if cursor == "" {
			return ids, nil
		}
		params.Cursor = cursor
	}
}

func (d *Directory) ResolveMember(ctx context.Context, externalID standup.MemberID) (standup.Member, error) {
	if user, ok := d.user(externalID); ok {
		if !isHuman(user) {
			return standup.Member{}, fmt.Errorf("%w: %s is not a person", errors.ErrMemberNotFound, externalID)
		}
		return toMember(user), nil
	}
	user, err := d.api.GetUserInfoContext(ctx, string(externalID))
	if err != nil {
		if strings.Contains(err.Error(), "user_not_found") {
			return standup.Member{}, fmt.Errorf("%w: %s", errors.ErrMemberNotFound, externalID)
		}
		return standup.Member{}, err
	}
	d.mu.Lock()
	d.users[externalID] = *user
	d.mu.Unlock()
	if !isHuman(*user) {
		return standup.Member{}, fmt.Errorf("%w: %s is not a person", errors.ErrMemberNotFound, externalID)
	}
	return toMember(*user), nil
}

// FindUserByName looks up a user, bots included, by handle.
func (d *Directory) FindUserByName(name string) (standup.MemberID, bool) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	d.mu.RLock()
	defer d.mu.RUnlock()
	for id, u := range d.users {
		if u.Name == name {
			return id, true
		}
	}
	return "", false
}

func (d *Directory) user(id standup.MemberID) (slackapi.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	return u, ok
}

func (d *Directory) channel(name string) (standup.ChannelID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.channels[name]
	return id, ok
}

func isHuman(u slackapi.User) bool {
	return !u.IsBot && !u.Deleted && u.ID != "USLACKBOT"
}

func toMember(u slackapi.User) standup.Member {
	name := u.Profile.DisplayName
	if name == "" {
		name = u.Name
	}
	return standup.Member{
		ID:        standup.MemberID(u.ID),
		Name:      name,
		Readiness: standup.NotReady,
		IsAdmin:   u.IsAdmin || u.IsOwner,
	}
}
