package sink_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"mixmatch/domain/event"
	"mixmatch/mocks"
	"mixmatch/sink"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSummarySink_Consume(t *testing.T) {
	ctrl := gomock.NewController(t)
	// Silencing logs for clean test output
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	summary := event.Summary{Code: "AB12", TotalRounds: 3, EndedAt: time.Now().UTC()}

	tests := []struct {
		description string
		evt         event.Event
		setup       func(repo *mocks.MockSummaryRepository)
		wantErr     bool
	}{
		{
			description: "Finished game is stored",
			evt:         event.Event{Type: event.GameFinished, Room: "AB12", Scope: event.ScopeSystem, Payload: summary},
			setup: func(repo *mocks.MockSummaryRepository) {
				repo.EXPECT().Store(summary).Return(nil).Times(1)
			},
		},
		{
			description: "Storage failure is reported",
			evt:         event.Event{Type: event.GameFinished, Room: "AB12", Scope: event.ScopeSystem, Payload: summary},
			setup: func(repo *mocks.MockSummaryRepository) {
				repo.EXPECT().Store(gomock.Any()).Return(errors.New("disk full")).Times(1)
			},
			wantErr: true,
		},
		{
			description: "Other events are ignored",
			evt:         event.Event{Type: event.RoomUpdate, Room: "AB12"},
			setup:       func(*mocks.MockSummaryRepository) {},
		},
		{
			description: "Wrong payload is rejected",
			evt:         event.Event{Type: event.GameFinished, Room: "AB12", Payload: "oops"},
			setup:       func(*mocks.MockSummaryRepository) {},
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req := require.New(t)
			repo := mocks.NewMockSummaryRepository(ctrl)
			tt.setup(repo)
			s := sink.NewSummarySink(repo, logger)

			err := s.Consume(context.Background(), tt.evt)

			if tt.wantErr {
				req.Error(err)
				return
			}
			req.NoError(err)
		})
	}
}
