// Package schedule runs the digest on an in-process daily timer. Deployments
// with a sleeping free-tier host should prefer the HTTP trigger endpoint
// driven by an external cron; this timer is the backup path.
package schedule

import (
	"context"
	"log/slog"
	"time"
)

// Job is the work executed at each tick.
type Job func(ctx context.Context)

type Daily struct {
	hour   int
	loc    *time.Location
	job    Job
	logger *slog.Logger

	now func() time.Time
}

// NewDaily schedules job at the given hour (0-23) in loc, once per day.
func NewDaily(hour int, loc *time.Location, job Job, logger *slog.Logger) *Daily {
	return &Daily{hour: hour, loc: loc, job: job, logger: logger, now: time.Now}
}

// Start blocks until ctx is canceled, running the job at each daily tick.
// Callers run it in a goroutine.
func (d *Daily) Start(ctx context.Context) {
	for {
		next := d.nextRun()
		d.logger.Info("next scheduled digest", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(next.Sub(d.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			d.logger.Info("scheduler stopped")
			return
		case <-timer.C:
			d.logger.Info("daily digest triggered")
			d.job(ctx)
		}
	}
}

// nextRun returns the next occurrence of the configured hour in the
// configured location.
func (d *Daily) nextRun() time.Time {
	now := d.now().In(d.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), d.hour, 0, 0, 0, d.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
