package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/digest"
)

const runColumns = `id, slack_user_id, newest_message_ts, message_count, insight_count, created_at`

// LatestRun returns the most recent digest run for the user, or nil when the
// user has never run a digest.
func (s *Store) LatestRun(ctx context.Context, slackUserID string) (*digest.RunRecord, error) {
	var rec digest.RunRecord
	err := s.pool.QueryRow(ctx, `
		SELECT `+runColumns+`
		FROM digest_runs
		WHERE slack_user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		slackUserID,
	).Scan(&rec.ID, &rec.SlackUserID, &rec.NewestTS, &rec.MessageCount, &rec.InsightCount, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return &rec, nil
}

// InsertRun appends a digest run record. Runs are append-only; the history
// is the audit trail of what was consumed and when.
func (s *Store) InsertRun(ctx context.Context, rec digest.RunRecord) (*digest.RunRecord, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO digest_runs (id, slack_user_id, newest_message_ts, message_count, insight_count, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at`,
		rec.ID, rec.SlackUserID, rec.NewestTS, rec.MessageCount, rec.InsightCount,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &rec, nil
}
