// Package observability reports the server's own resource usage.
package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Reporter periodically logs process CPU and memory usage along with the
// live session count supplied by the server.
type Reporter struct {
	log      *slog.Logger
	interval time.Duration
	sessions func() int
}

func NewReporter(log *slog.Logger, interval time.Duration, sessions func() int) *Reporter {
	return &Reporter{log: log, interval: interval, sessions: sessions}
}

// Run blocks until ctx is done, logging one sample per interval.
// Sampling errors are logged and skipped; the reporter never stops the
// server.
func (r *Reporter) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		r.log.Error("cannot observe own process", "err", err)
		return err
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Debug("Context done, stopping metrics reporter")
			return nil
		case <-ticker.C:
			cpu, err := proc.CPUPercent()
			if err != nil {
				r.log.Debug("Error while finding process cpu usage", "err", err)
				continue
			}
			ram, err := proc.MemoryPercent()
			if err != nil {
				r.log.Debug("Error while finding process ram usage", "err", err)
				continue
			}
			r.log.Info("server metrics",
				"cpu_percent", cpu,
				"ram_percent", ram,
				"goroutines", runtime.NumGoroutine(),
				"sessions", r.sessions(),
			)
		}
	}
}
