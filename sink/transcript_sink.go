package sink

import (
	"context"
	"fmt"
	"log/slog"
	"standupbot/domain/event"
	"standupbot/infrastructure/storage"

	"github.com/google/uuid"
)

// TranscriptSink writes answers and excuses to the transcript store.
type TranscriptSink struct {
	log        *slog.Logger
	repository storage.ITranscriptRepository
}

func NewTranscriptSink(log *slog.Logger, repository storage.ITranscriptRepository) *TranscriptSink {
	return &TranscriptSink{log: log, repository: repository}
}

func (t *TranscriptSink) Consume(_ context.Context, e event.DomainEvent) error {
	entry, ok := toEntry(e)
	if !ok {
		return nil
	}
	if err := t.repository.StoreEntry(entry); err != nil {
		return fmt.Errorf("unable to store transcript entry: %w", err)
	}
	t.log.Debug("Transcript entry stored", "channel", entry.Channel, "member", entry.Member, "kind", entry.Kind)
	return nil
}

// toEntry maps the events worth keeping. The id is derived from the session,
// the member and the question so a replayed event overwrites itself.
func toEntry(e event.DomainEvent) (storage.Entry, bool) {
	switch evt := e.(type) {
	case event.AnswerRecorded:
		return storage.Entry{
			ID:            entryID(evt.SessionID, string(evt.Member.ID), evt.QuestionIndex),
			SessionID:     evt.SessionID,
			Channel:       evt.Channel,
			Member:        evt.Member.ID,
			MemberName:    evt.Member.Name,
			Kind:          storage.EntryAnswer,
			QuestionIndex: evt.QuestionIndex,
			Question:      evt.Question,
			Answer:        evt.Answer,
			At:            evt.At,
		}, true
	case event.MemberExcused:
		return storage.Entry{
			ID:        entryID(evt.SessionID, "excused:"+string(evt.Member), 0),
			SessionID: evt.SessionID,
			Channel:   evt.Channel,
			Member:    evt.Member,
			Kind:      storage.EntryExcused,
			Reason:    evt.Reason,
			At:        evt.At,
		}, true
	default:
		return storage.Entry{}, false
	}
}

func entryID(session uuid.UUID, member string, question int) uuid.UUID {
	return uuid.NewSHA1(session, []byte(fmt.Sprintf("%s:%d", member, question)))
}
