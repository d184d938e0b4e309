//go:generate go run go.uber.org/mock/mockgen -source=transcript_repository.go -destination=../../mocks/mock_transcript_repository.go -package=mocks
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"standupbot/domain/standup"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type EntryKind string

const (
	EntryAnswer  EntryKind = "ANSWER"
	EntryExcused EntryKind = "EXCUSED"
)

// Entry is one line of a standup transcript.
type Entry struct {
	ID            uuid.UUID            `json:"id"`
	SessionID     uuid.UUID            `json:"session_id"`
	Channel       standup.ChannelID    `json:"channel"`
	Member        standup.MemberID     `json:"member"`
	MemberName    string               `json:"member_name"`
	Kind          EntryKind            `json:"kind"`
	QuestionIndex int                  `json:"question_index"`
	Question      string               `json:"question,omitempty"`
	Answer        string               `json:"answer,omitempty"`
	Reason        standup.ExcuseReason `json:"reason,omitempty"`
	At            time.Time            `json:"at"`
}

type ITranscriptRepository interface {
	StoreEntry(entry Entry) error
	GetDay(channel standup.ChannelID, day string) ([]Entry, error)
}

type TranscriptRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewTranscriptRepository(db *badger.DB, log *slog.Logger) *TranscriptRepository {
	return &TranscriptRepository{db: db, log: log}
}

// StoreEntry persists an entry in BadgerDB.
// The key is formatted as "transcript:{channel}:{day}:{uuid}", so storing an
// entry again under the same id replaces it.
func (t TranscriptRepository) StoreEntry(entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	key := dayPrefix(entry.Channel, entry.At.Format(standup.DayLayout)) + entry.ID.String()
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return t.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// GetDay returns the transcript of a channel for a day formatted as standup.DayLayout,
// oldest entry first.
func (t TranscriptRepository) GetDay(channel standup.ChannelID, day string) ([]Entry, error) {
	var entries []Entry
	err := t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(dayPrefix(channel, day))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var entry Entry
				if err := json.Unmarshal(val, &entry); err != nil {
					return fmt.Errorf("failed to unmarshal transcript entry: %w", err)
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error during transcript fetch: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].At.Before(entries[j].At) })
	return entries, nil
}

func dayPrefix(channel standup.ChannelID, day string) string {
	return fmt.Sprintf("transcript:%s:%s:", channel, day)
}
