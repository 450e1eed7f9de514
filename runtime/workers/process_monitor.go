package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ProcessRecorder receives the samples taken by ProcessMonitorWorker.
type ProcessRecorder interface {
	SetProcess(rssBytes uint64, cpuPercent float64)
	SetRooms(n int)
}

// ProcessMonitorWorker periodically samples the server process and the
// number of live rooms.
type ProcessMonitorWorker struct {
	log            *slog.Logger
	recorder       ProcessRecorder
	rooms          func() int
	metricInterval time.Duration
	pid            int32
}

func NewProcessMonitorWorker(log *slog.Logger, recorder ProcessRecorder, rooms func() int, metricInterval time.Duration) *ProcessMonitorWorker {
	return &ProcessMonitorWorker{
		log:            log,
		recorder:       recorder,
		rooms:          rooms,
		metricInterval: metricInterval,
		pid:            int32(os.Getpid()),
	}
}

func (w *ProcessMonitorWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(w.pid)
	if err != nil {
		w.log.Error("Error while retrieving process", "pid", w.pid, "err", err)
		return err
	}
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping process monitoring")
			return nil
		case <-ticker.C:
			w.sample(p)
		}
	}
}

func (w *ProcessMonitorWorker) sample(p *process.Process) {
	w.recorder.SetRooms(w.rooms())
	mem, err := p.MemoryInfo()
	if err != nil {
		w.log.Error("Error while finding process ram usage", "err", err)
		return
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		w.log.Error("Error while finding process cpu usage", "err", err)
		return
	}
	w.recorder.SetProcess(mem.RSS, cpu)
}
