package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"standupbot/domain/standup"
	apperrors "standupbot/errors"

	"github.com/dgraph-io/badger/v4"
)

const sessionPrefix = "session:"

// SessionRepository keeps the latest snapshot of every channel session.
type SessionRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewSessionRepository(db *badger.DB, log *slog.Logger) *SessionRepository {
	return &SessionRepository{db: db, log: log}
}

func sessionKey(channel standup.ChannelID) []byte {
	return []byte(sessionPrefix + string(channel))
}

// Save overwrites the snapshot of the channel.
func (r SessionRepository) Save(snapshot standup.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(snapshot.Channel), data)
	})
}

// Get returns ErrNoSession when nothing was saved for the channel.
func (r SessionRepository) Get(channel standup.ChannelID) (standup.Snapshot, error) {
	var snapshot standup.Snapshot
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(channel))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snapshot)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return standup.Snapshot{}, fmt.Errorf("%w: %s", apperrors.ErrNoSession, channel)
	}
	if err != nil {
		return standup.Snapshot{}, err
	}
	return snapshot, nil
}

func (r SessionRepository) Delete(channel standup.ChannelID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(channel))
	})
}

// List scans every stored snapshot, unreadable entries are skipped.
func (r SessionRepository) List() ([]standup.Snapshot, error) {
	var snapshots []standup.Snapshot
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(sessionPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var snapshot standup.Snapshot
				if err := json.Unmarshal(val, &snapshot); err != nil {
					r.log.Warn("Unreadable session snapshot", "key", string(item.Key()), "error", err)
					return nil
				}
				snapshots = append(snapshots, snapshot)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return snapshots, err
}
