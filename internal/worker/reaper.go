package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Reaper runs cleanup passes on a fixed interval in-process.
type Reaper struct {
	cleaner  Cleaner
	interval time.Duration
	log      *logrus.Entry
}

func NewReaper(cleaner Cleaner, interval time.Duration, logger *logrus.Logger) *Reaper {
	if cleaner == nil {
		panic("Cleaner cannot be nil for Reaper")
	}
	if interval <= 0 {
		panic("interval must be positive for Reaper")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Reaper{cleaner: cleaner, interval: interval, log: logger.WithField("component", "reaper")}
}

// Run performs a pass immediately, then one per interval, until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	r.log.WithField("interval", r.interval.String()).Info("Reaper started")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.RunOnce(ctx)
		select {
		case <-ctx.Done():
			r.log.Info("Reaper stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce runs a single pass. Panics are recovered and logged.
func (r *Reaper) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.log.WithError(fmt.Errorf("panic: %v", p)).Error("Cleanup pass panicked")
		}
	}()
	report, err := r.cleaner.RunPass(ctx)
	logReport(r.log, report, err, ctx.Err())
}
