package store

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/digest"
)

const postColumns = `id, insight_id, platform, content, char_count, status, created_at`

func scanPost(row pgx.Row) (*digest.Post, error) {
	var p digest.Post
	err := row.Scan(&p.ID, &p.InsightID, &p.Platform, &p.Content, &p.CharCount, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertPost persists a generated draft and returns the stored row.
func (s *Store) InsertPost(ctx context.Context, post digest.Post) (*digest.Post, error) {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}

	stored, err := scanPost(s.pool.QueryRow(ctx, `
		INSERT INTO generated_posts (id, insight_id, platform, content, char_count, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING `+postColumns,
		post.ID, post.InsightID, post.Platform, post.Content, post.CharCount, post.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return stored, nil
}

// GetPost returns a post by id, or nil when absent.
func (s *Store) GetPost(ctx context.Context, id uuid.UUID) (*digest.Post, error) {
	p, err := scanPost(s.pool.QueryRow(ctx,
		`SELECT `+postColumns+` FROM generated_posts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

// UpdatePostStatus advances a post's lifecycle status.
func (s *Store) UpdatePostStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE generated_posts SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update post status: %w", err)
	}
	return nil
}

// UpdatePostContent applies an explicit user edit: content, recomputed char
// count, and the edited status in one statement.
func (s *Store) UpdatePostContent(ctx context.Context, id uuid.UUID, content string) (*digest.Post, error) {
	p, err := scanPost(s.pool.QueryRow(ctx, `
		UPDATE generated_posts
		SET content = $1, char_count = $2, status = $3
		WHERE id = $4
		RETURNING `+postColumns,
		content, utf8.RuneCountInString(content), digest.PostEdited, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update post content: %w", err)
	}
	return p, nil
}

// ListPostsByInsight returns both platform drafts for an insight.
func (s *Store) ListPostsByInsight(ctx context.Context, insightID uuid.UUID) ([]digest.Post, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+postColumns+` FROM generated_posts WHERE insight_id = $1 ORDER BY platform`, insightID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []digest.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}
