package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/digest"
)

const defaultProfileTimezone = "America/Los_Angeles"

const profileColumns = `id, slack_user_id, writing_tone, stylistic_rules, banned_phrases, interests, timezone, created_at, updated_at`

func scanProfile(row pgx.Row) (*digest.Profile, error) {
	var p digest.Profile
	err := row.Scan(&p.ID, &p.SlackUserID, &p.WritingTone, &p.StylisticRules,
		&p.BannedPhrases, &p.Interests, &p.Timezone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetOrCreateProfile returns the profile for slackUserID, creating one with
// empty defaults on first access.
func (s *Store) GetOrCreateProfile(ctx context.Context, slackUserID string) (*digest.Profile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE slack_user_id = $1`, slackUserID))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	p, err = scanProfile(s.pool.QueryRow(ctx, `
		INSERT INTO user_profiles (id, slack_user_id, writing_tone, stylistic_rules, banned_phrases, interests, timezone, created_at, updated_at)
		VALUES ($1, $2, '', '{}', '{}', '{}', $3, now(), now())
		RETURNING `+profileColumns,
		uuid.New(), slackUserID, defaultProfileTimezone,
	))
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

// GetProfileByID returns a profile by primary key, or nil when absent.
func (s *Store) GetProfileByID(ctx context.Context, id uuid.UUID) (*digest.Profile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile by id: %w", err)
	}
	return p, nil
}

// UpdateProfileStyle writes the learned style fields onto the user's
// profile, creating it first if needed.
func (s *Store) UpdateProfileStyle(ctx context.Context, slackUserID string, style digest.StyleProfile) (*digest.Profile, error) {
	if _, err := s.GetOrCreateProfile(ctx, slackUserID); err != nil {
		return nil, err
	}

	rules := style.StylisticRules
	if rules == nil {
		rules = []string{}
	}
	banned := style.BannedPhrases
	if banned == nil {
		banned = []string{}
	}

	p, err := scanProfile(s.pool.QueryRow(ctx, `
		UPDATE user_profiles
		SET writing_tone = $1, stylistic_rules = $2, banned_phrases = $3, updated_at = now()
		WHERE slack_user_id = $4
		RETURNING `+profileColumns,
		style.WritingTone, rules, banned, slackUserID,
	))
	if err != nil {
		return nil, fmt.Errorf("update profile style: %w", err)
	}
	return p, nil
}
