//go:generate go run go.uber.org/mock/mockgen -source=search_index.go -destination=../../mocks/mock_search_index.go -package=mocks
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"standupbot/domain/standup"
	"time"

	"github.com/blugelabs/bluge"
)

const (
	fieldChannel  = "channel"
	fieldMember   = "member"
	fieldName     = "name"
	fieldDay      = "day"
	fieldQuestion = "question"
	fieldAnswer   = "answer"
	fieldAt       = "at"
)

// Hit is one answer matching a search.
type Hit struct {
	ID       string
	Channel  standup.ChannelID
	Member   standup.MemberID
	Name     string
	Day      string
	Question string
	Answer   string
	At       time.Time
	Score    float64
}

type ISearchIndex interface {
	Index(entry Entry) error
	Search(ctx context.Context, channel standup.ChannelID, text string, limit int) ([]Hit, error)
}

// SearchIndex is a full text index over recorded answers.
// A nil writer makes the index read only.
type SearchIndex struct {
	log    *slog.Logger
	writer *bluge.Writer
	reader *bluge.Reader
}

func NewSearchIndex(log *slog.Logger, writer *bluge.Writer) *SearchIndex {
	return &SearchIndex{log: log, writer: writer}
}

// NewReadOnlySearchIndex searches an index written by another process.
func NewReadOnlySearchIndex(log *slog.Logger, reader *bluge.Reader) *SearchIndex {
	return &SearchIndex{log: log, reader: reader}
}

// Index adds or replaces the answer carried by the entry, excused entries are ignored.
func (s SearchIndex) Index(entry Entry) error {
	if s.writer == nil {
		return fmt.Errorf("search index opened read only")
	}
	if entry.Kind != EntryAnswer {
		return nil
	}
	doc := bluge.NewDocument(entry.ID.String()).
		AddField(bluge.NewKeywordField(fieldChannel, string(entry.Channel)).StoreValue()).
		AddField(bluge.NewKeywordField(fieldMember, string(entry.Member)).StoreValue()).
		AddField(bluge.NewKeywordField(fieldDay, entry.At.Format(standup.DayLayout)).StoreValue()).
		AddField(bluge.NewTextField(fieldName, entry.MemberName).StoreValue()).
		AddField(bluge.NewTextField(fieldQuestion, entry.Question).StoreValue()).
		AddField(bluge.NewTextField(fieldAnswer, entry.Answer).StoreValue()).
		AddField(bluge.NewDateTimeField(fieldAt, entry.At).StoreValue())
	return s.writer.Update(doc.ID(), doc)
}

// Search returns the best matching answers of a channel, every channel when channel is empty.
func (s SearchIndex) Search(ctx context.Context, channel standup.ChannelID, text string, limit int) ([]Hit, error) {
	reader, err := s.openReader()
	if err != nil {
		return nil, err
	}
	if s.writer != nil {
		defer func() {
			if err := reader.Close(); err != nil {
				s.log.Warn("Unable to close search reader", "error", err)
			}
		}()
	}

	query := bluge.NewBooleanQuery().AddMust(bluge.NewMatchQuery(text).SetField(fieldAnswer))
	if channel != "" {
		query.AddMust(bluge.NewTermQuery(string(channel)).SetField(fieldChannel))
	}
	request := bluge.NewTopNSearch(limit, query)

	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	var hits []Hit
	match, err := matches.Next()
	for err == nil && match != nil {
		hit := Hit{Score: match.Score}
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID = string(value)
			case fieldChannel:
				hit.Channel = standup.ChannelID(value)
			case fieldMember:
				hit.Member = standup.MemberID(value)
			case fieldName:
				hit.Name = string(value)
			case fieldDay:
				hit.Day = string(value)
			case fieldQuestion:
				hit.Question = string(value)
			case fieldAnswer:
				hit.Answer = string(value)
			case fieldAt:
				if at, decodeErr := bluge.DecodeDateTime(value); decodeErr == nil {
					hit.At = at
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		hits = append(hits, hit)
		match, err = matches.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("search iteration failed: %w", err)
	}
	return hits, nil
}

func (s SearchIndex) openReader() (*bluge.Reader, error) {
	if s.reader != nil {
		return s.reader, nil
	}
	if s.writer == nil {
		return nil, fmt.Errorf("search index has neither reader nor writer")
	}
	return s.writer.Reader()
}
