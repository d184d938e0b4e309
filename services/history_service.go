package services

import (
	"context"
	"fmt"
	"log/slog"
	"standupbot/contract"
	"standupbot/domain/standup"
	"standupbot/infrastructure/storage"
	"strings"
	"time"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

type IHistoryService interface {
	Sessions() ([]standup.Snapshot, error)
	Day(channel standup.ChannelID, day string) ([]storage.Entry, error)
	Search(ctx context.Context, channel standup.ChannelID, text string, limit int) ([]storage.Hit, error)
}

// HistoryService answers questions about past standups.
// It reads only, the bot process owns every write.
type HistoryService struct {
	log         *slog.Logger
	sessions    contract.SessionRepository
	transcripts storage.ITranscriptRepository
	index       storage.ISearchIndex
}

func NewHistoryService(
	log *slog.Logger,
	sessions contract.SessionRepository,
	transcripts storage.ITranscriptRepository,
	index storage.ISearchIndex,
) *HistoryService {
	return &HistoryService{log: log, sessions: sessions, transcripts: transcripts, index: index}
}

func (h HistoryService) Sessions() ([]standup.Snapshot, error) {
	return h.sessions.List()
}

// Day returns the transcript of a channel for a YYYY-MM-DD day, today when empty.
func (h HistoryService) Day(channel standup.ChannelID, day string) ([]storage.Entry, error) {
	if channel == "" {
		return nil, fmt.Errorf("a channel is required")
	}
	if day == "" {
		day = time.Now().UTC().Format(standup.DayLayout)
	}
	if _, err := time.Parse(standup.DayLayout, day); err != nil {
		return nil, fmt.Errorf("invalid day %q, expected YYYY-MM-DD", day)
	}
	return h.transcripts.GetDay(channel, day)
}

// Search looks for answers matching text, in one channel or in all of them.
func (h HistoryService) Search(ctx context.Context, channel standup.ChannelID, text string, limit int) ([]storage.Hit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("nothing to search for")
	}
	switch {
	case limit <= 0:
		limit = defaultSearchLimit
	case limit > maxSearchLimit:
		limit = maxSearchLimit
	}
	h.log.Debug("Searching answers", "channel", channel, "text", text, "limit", limit)
	return h.index.Search(ctx, channel, text, limit)
}
