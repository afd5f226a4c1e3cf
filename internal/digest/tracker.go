package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// maxWindowAge bounds how far back a fetch window may reach regardless of
// how stale the previous run is.
const maxWindowAge = 24 * time.Hour

// Tracker resolves per-user fetch windows from recorded digest runs.
type Tracker struct {
	runs   RunStore
	logger *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewTracker(runs RunStore, logger *slog.Logger) *Tracker {
	return &Tracker{runs: runs, logger: logger, now: time.Now}
}

// Window is the resolved fetch bound for one run. OldestTS is exclusive:
// turns with token <= OldestTS were seen by a previous run.
type Window struct {
	OldestTS   string
	IsFirstRun bool
}

// ResolveWindow returns the fetch lower bound for slackUserID. The bound is
// the newest token of the last recorded run, capped so it is never older
// than now minus maxWindowAge. With no prior run the cap itself is the bound.
func (t *Tracker) ResolveWindow(ctx context.Context, slackUserID string) (Window, error) {
	fallback := FormatToken(t.now().Add(-maxWindowAge))

	last, err := t.runs.LatestRun(ctx, slackUserID)
	if err != nil {
		return Window{}, fmt.Errorf("latest run: %w", err)
	}
	if last == nil {
		t.logger.Info("first digest run for user, using 24h window", "user", slackUserID)
		return Window{OldestTS: fallback, IsFirstRun: true}, nil
	}

	effective := MaxToken(last.NewestTS, fallback)
	if effective != last.NewestTS {
		t.logger.Info("capping fetch window to 24h", "user", slackUserID, "last_run_ts", last.NewestTS)
	}
	return Window{OldestTS: effective}, nil
}

// RecordRun appends a run record carrying the newest seen token and the
// observed counts. Empty turns are a no-op: the bound is never overwritten
// with nothing. Turns must be sorted ascending by token.
func (t *Tracker) RecordRun(ctx context.Context, slackUserID string, turns []Turn, insightCount int) error {
	if len(turns) == 0 {
		return nil
	}

	newest := turns[len(turns)-1].TS
	rec := RunRecord{
		ID:           uuid.New(),
		SlackUserID:  slackUserID,
		NewestTS:     newest,
		MessageCount: len(turns),
		InsightCount: insightCount,
	}
	if _, err := t.runs.InsertRun(ctx, rec); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	t.logger.Info("recorded digest run",
		"user", slackUserID,
		"newest_ts", newest,
		"message_count", len(turns),
		"insight_count", insightCount,
	)
	return nil
}
