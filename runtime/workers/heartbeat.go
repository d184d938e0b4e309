package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HeartbeatWorker logs the bot's own memory, CPU and goroutine count.
type HeartbeatWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, metricInterval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, metricInterval: metricInterval}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "error", err)
				continue
			}
			w.log.Info("Heartbeat",
				"rss_bytes", stats.RSS,
				"cpu_percent", stats.CPUPercent,
				"status", stats.Status,
				"goroutines", stats.Goroutines)
		}
	}
}

type SelfStats struct {
	RSS        uint64
	CPUPercent float64
	Status     string
	Goroutines int
}

func selfStats(p *process.Process) (SelfStats, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return SelfStats{}, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return SelfStats{}, err
	}
	status, err := p.Status()
	if err != nil {
		return SelfStats{}, err
	}
	return SelfStats{
		RSS:        memInfo.RSS,
		CPUPercent: cpuPercent,
		Status:     status,
		Goroutines: runtime.NumGoroutine(),
	}, nil
}
