package sink

import (
	"context"
	"fmt"
	"log/slog"

	"mixmatch/contract"
	"mixmatch/domain/event"
)

// SummarySink persists every finished game. Other events are ignored.
type SummarySink struct {
	repository contract.SummaryRepository
	log        *slog.Logger
}

func NewSummarySink(repository contract.SummaryRepository, log *slog.Logger) SummarySink {
	return SummarySink{repository: repository, log: log}
}

func (s SummarySink) Name() string { return "summary" }

func (s SummarySink) Consume(ctx context.Context, e event.Event) error {
	if e.Type != event.GameFinished {
		return nil
	}
	summary, ok := e.Payload.(event.Summary)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", e.Payload, e.Type)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.repository.Store(summary); err != nil {
		return fmt.Errorf("store summary of room %s: %w", summary.Code, err)
	}
	s.log.Info("Game summary stored", "room", summary.Code, "rounds", summary.TotalRounds)
	return nil
}
