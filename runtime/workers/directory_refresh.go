package workers

import (
	"context"
	"log/slog"
	"standupbot/contract"
	"time"
)

// DirectoryRefreshWorker periodically reloads the cached member directory.
// A failed refresh keeps the previous cache.
type DirectoryRefreshWorker struct {
	log       *slog.Logger
	refresher contract.Refresher
	interval  time.Duration
}

func NewDirectoryRefreshWorker(log *slog.Logger, refresher contract.Refresher, interval time.Duration) *DirectoryRefreshWorker {
	return &DirectoryRefreshWorker{log: log, refresher: refresher, interval: interval}
}

func (w DirectoryRefreshWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping directory refresh")
			return nil
		case <-ticker.C:
			if err := w.refresher.Refresh(ctx); err != nil {
				w.log.Warn("Directory refresh failed", "error", err)
				continue
			}
			w.log.Debug("Directory refreshed")
		}
	}
}
