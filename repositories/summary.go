package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"mixmatch/domain/event"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const summaryPrefix = "game:"

type SummaryRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewSummaryRepository(db *badger.DB, log *slog.Logger) SummaryRepository {
	return SummaryRepository{db: db, log: log}
}

// Store persists a finished game.
// The key is formatted as "game:{ended_at_padded}:{uuid}" so that a reverse
// prefix scan yields the newest games first; the uuid keeps two games ending
// on the same nanosecond apart.
func (s SummaryRepository) Store(summary event.Summary) error {
	if summary.EndedAt.IsZero() {
		summary.EndedAt = time.Now().UTC()
	}
	key := fmt.Sprintf("%s%019d:%s", summaryPrefix, summary.EndedAt.UnixNano(), uuid.New())
	bytes, err := encodeSummary(summary)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// List returns at most limit summaries, newest first. A limit <= 0 returns all of them.
func (s SummaryRepository) List(limit int) ([]event.Summary, error) {
	var raw [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(summaryPrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration starts from the highest possible key of the prefix
		it.Seek(append(prefix, 0xFF))
		for ; it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(raw) == limit {
				s.log.Debug(fmt.Sprintf("Maximum of %d summaries reached", limit))
				break
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			raw = append(raw, value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]event.Summary, 0, len(raw))
	for _, b := range raw {
		summary, err := DecodeSummary(b)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// encodeSummary stores the summary as a protobuf Struct so the record stays
// readable by any protobuf consumer without a dedicated schema.
func encodeSummary(summary event.Summary) ([]byte, error) {
	asJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(asJSON, &fields); err != nil {
		return nil, err
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("summary %s: %w", summary.Code, err)
	}
	return proto.Marshal(st)
}

// DecodeSummary reads back a stored summary value.
func DecodeSummary(b []byte) (event.Summary, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(b, &st); err != nil {
		return event.Summary{}, err
	}
	asJSON, err := json.Marshal(st.AsMap())
	if err != nil {
		return event.Summary{}, err
	}
	var summary event.Summary
	if err := json.Unmarshal(asJSON, &summary); err != nil {
		return event.Summary{}, err
	}
	return summary, nil
}
