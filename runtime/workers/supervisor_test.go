package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"mixmatch/errors"
	"mixmatch/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSupervisor_RestartOnPanic(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	workerMock := mocks.NewMockWorker(ctrl)

	var calls atomic.Int32
	workerMock.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			calls.Add(1)
			panic("boom")
		}).
		AnyTimes()

	sup := NewSupervisor(log)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	go sup.Add(workerMock).Run(ctx)

	// Waiting for panics and restarts
	time.Sleep(900 * time.Millisecond)

	req.GreaterOrEqual(calls.Load(), int32(2))
}

func TestSupervisor_StopOnSuccess(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)

	workerMock := mocks.NewMockWorker(ctrl)

	// Given a worker running only once
	ran := make(chan struct{})
	workerMock.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			close(ran)
			return nil
		}).
		Times(1)

	sup := NewSupervisor(log)
	done := make(chan struct{})
	go func() {
		sup.Add(workerMock).Run(context.Background())
		close(done)
	}()

	select {
	case <-ran:
	case <-time.After(500 * time.Millisecond):
		req.Fail("worker should have run")
	}

	// Then the worker is not restarted while the supervisor keeps running
	time.Sleep(2 * waitTimeBeforeRestart)

	// When the supervisor is stopped
	sup.Stop()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		req.Fail("Supervisor should have stopped")
	}
}

func TestSupervisor_StartAfterRun(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	workerMock := mocks.NewMockWorker(ctrl)

	// Given a long running worker added once the supervisor is running
	workerMock.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}).
		Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	sup := NewSupervisor(log)
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()
	req.NoError(sup.Start(ctx, workerMock))

	// When the parent context is canceled
	cancel()

	// Then Run waits for it and returns
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Supervisor should have waited for the worker and returned")
	}
}

func TestSupervisor_StartRefusedOnceStopped(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)

	// Given a worker that must never run
	workerMock := mocks.NewMockWorker(ctrl)
	workerMock.EXPECT().Run(gomock.Any()).Times(0)

	sup := NewSupervisor(log)
	done := make(chan struct{})
	go func() {
		sup.Run(context.Background())
		close(done)
	}()

	// When the supervisor is stopped
	sup.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Supervisor should have returned after Stop")
	}

	// Then late workers are refused
	req.ErrorIs(sup.Start(context.Background(), workerMock), errors.ErrSupervisorStopped)
}

func TestSupervisor_StartRefusedWithDoneContext(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	workerMock := mocks.NewMockWorker(ctrl)
	workerMock.EXPECT().Run(gomock.Any()).Times(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSupervisor(logs.GetLoggerFromLevel(slog.LevelDebug)).Start(ctx, workerMock)

	req.ErrorIs(err, errors.ErrSupervisorStopped)
}
