package sink

import (
	"context"
	"fmt"
	"log/slog"
	"standupbot/domain/event"
	"standupbot/infrastructure/storage"
)

// SearchSink makes every answer searchable.
type SearchSink struct {
	log   *slog.Logger
	index storage.ISearchIndex
}

func NewSearchSink(log *slog.Logger, index storage.ISearchIndex) *SearchSink {
	return &SearchSink{log: log, index: index}
}

func (s *SearchSink) Consume(_ context.Context, e event.DomainEvent) error {
	if _, ok := e.(event.AnswerRecorded); !ok {
		return nil
	}
	entry, _ := toEntry(e)
	if err := s.index.Index(entry); err != nil {
		return fmt.Errorf("unable to index answer: %w", err)
	}
	return nil
}
