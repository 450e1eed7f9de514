package repositories

import (
	"log/slog"
	"testing"
	"time"

	"mixmatch/domain/event"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func summaryAt(code string, at time.Time) event.Summary {
	players := []event.PlayerView{
		{ID: "c1", Name: "Alice", Score: 2},
		{ID: "c2", Name: "Bob", Score: 1},
	}
	return event.Summary{
		Code:         code,
		TracksPlayed: []event.TrackSummary{{ID: "t1", Title: "Billie Jean", Artist: "Michael Jackson"}},
		Players:      players,
		Leaderboard:  players,
		Config: event.ConfigView{
			MaxQuestions:      2,
			DefaultDurationMs: 20000,
			RandomizeOnStart:  true,
			SelectedSources:   []string{"pl-1"},
		},
		TotalRounds: 2,
		EndedAt:     at,
	}
}

func TestSummaryRepository_StoreAndList(t *testing.T) {
	req := require.New(t)
	repository := NewSummaryRepository(openTestDB(t), logs.GetLoggerFromLevel(slog.LevelDebug))
	at := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	summaries := []event.Summary{
		summaryAt("AAAA", at),
		summaryAt("BBBB", at.Add(time.Minute)),
		summaryAt("CCCC", at.Add(2*time.Minute)),
	}

	// Given three finished games
	for _, s := range summaries {
		req.NoError(repository.Store(s))
	}

	// When listing everything
	fetched, err := repository.List(0)

	// Then the newest game comes first and nothing is lost in encoding
	req.NoError(err)
	req.Len(fetched, 3)
	req.Equal(summaries[2], fetched[0])
	req.Equal(summaries[1], fetched[1])
	req.Equal(summaries[0], fetched[2])
}

func TestSummaryRepository_ListLimit(t *testing.T) {
	req := require.New(t)
	repository := NewSummaryRepository(openTestDB(t), slog.Default())
	at := time.Now().UTC()
	for i := range 3 {
		req.NoError(repository.Store(summaryAt("AAAA", at.Add(time.Duration(i)*time.Second))))
	}

	fetched, err := repository.List(2)

	req.NoError(err)
	req.Len(fetched, 2)
	req.True(fetched[0].EndedAt.After(fetched[1].EndedAt))
}

func TestSummaryRepository_SameInstant(t *testing.T) {
	req := require.New(t)
	repository := NewSummaryRepository(openTestDB(t), slog.Default())
	at := time.Now().UTC()

	// Two rooms finishing on the same nanosecond are both kept
	req.NoError(repository.Store(summaryAt("AAAA", at)))
	req.NoError(repository.Store(summaryAt("BBBB", at)))

	fetched, err := repository.List(0)
	req.NoError(err)
	req.Len(fetched, 2)
}

func TestSummaryRepository_Empty(t *testing.T) {
	req := require.New(t)
	repository := NewSummaryRepository(openTestDB(t), slog.Default())

	fetched, err := repository.List(10)

	req.NoError(err)
	req.Empty(fetched)
}
