package workers

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu    sync.Mutex
	rss   uint64
	rooms int
	calls int
}

func (f *fakeRecorder) SetProcess(rssBytes uint64, _ float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rss = rssBytes
	f.calls++
}

func (f *fakeRecorder) SetRooms(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms = n
}

func (f *fakeRecorder) snapshot() (uint64, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rss, f.rooms, f.calls
}

func TestProcessMonitorWorker_Samples(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	recorder := &fakeRecorder{}
	w := NewProcessMonitorWorker(log, recorder, func() int { return 4 }, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Then the current process is sampled
	req.Eventually(func() bool {
		_, _, calls := recorder.snapshot()
		return calls > 0
	}, 2*time.Second, 10*time.Millisecond)
	rss, rooms, _ := recorder.snapshot()
	req.Positive(rss)
	req.Equal(4, rooms)

	// And the worker stops with its context
	cancel()
	req.NoError(<-done)
}
