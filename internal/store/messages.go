package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/digest"
)

// uniqueViolation is the Postgres error code raised when a message with the
// same (channel_id, slack_ts) is ingested twice.
const uniqueViolation = "23505"

// InsertMessage stores a channel message captured by the ingestion path.
// Re-ingesting an already-stored message is a silent no-op returning
// (nil, nil).
func (s *Store) InsertMessage(ctx context.Context, msg digest.Message) (*digest.Message, error) {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO messages (id, channel_id, user_id, user_name, text, slack_ts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING created_at`,
		msg.ID, msg.ChannelID, msg.UserID, msg.UserName, msg.Text, msg.SlackTS,
	)
	if err := row.Scan(&msg.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, nil
		}
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &msg, nil
}

// ListMessagesSince returns stored messages for the channels newer than
// oldestTS (exclusive), ascending by timestamp.
func (s *Store) ListMessagesSince(ctx context.Context, channelIDs []string, oldestTS string) ([]digest.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, channel_id, user_id, user_name, text, slack_ts, created_at
		FROM messages
		WHERE channel_id = ANY($1) AND slack_ts::float8 > $2::float8
		ORDER BY slack_ts::float8 ASC`,
		channelIDs, oldestTS,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []digest.Message
	for rows.Next() {
		var m digest.Message
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.UserID, &m.UserName, &m.Text, &m.SlackTS, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}
