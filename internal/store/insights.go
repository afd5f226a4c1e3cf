package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/digest"
)

const insightColumns = `id, user_id, insight_date, topic, core_insight, supporting_context, status, created_at`

func scanInsight(row pgx.Row) (*digest.StoredInsight, error) {
	var ins digest.StoredInsight
	err := row.Scan(&ins.ID, &ins.UserID, &ins.InsightDate, &ins.Topic,
		&ins.CoreInsight, &ins.SupportingContext, &ins.Status, &ins.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ins, nil
}

// InsertInsight persists a new insight and returns the stored row.
func (s *Store) InsertInsight(ctx context.Context, ins digest.StoredInsight) (*digest.StoredInsight, error) {
	if ins.ID == uuid.Nil {
		ins.ID = uuid.New()
	}

	stored, err := scanInsight(s.pool.QueryRow(ctx, `
		INSERT INTO daily_insights (id, user_id, insight_date, topic, core_insight, supporting_context, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING `+insightColumns,
		ins.ID, ins.UserID, ins.InsightDate, ins.Topic, ins.CoreInsight, ins.SupportingContext, ins.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("insert insight: %w", err)
	}
	return stored, nil
}

// GetInsight returns an insight by id, or nil when absent.
func (s *Store) GetInsight(ctx context.Context, id uuid.UUID) (*digest.StoredInsight, error) {
	ins, err := scanInsight(s.pool.QueryRow(ctx,
		`SELECT `+insightColumns+` FROM daily_insights WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get insight: %w", err)
	}
	return ins, nil
}

// UpdateInsightStatus advances an insight's lifecycle status.
func (s *Store) UpdateInsightStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE daily_insights SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update insight status: %w", err)
	}
	return nil
}

// InsightFilter narrows ListInsights. Zero values mean no constraint.
type InsightFilter struct {
	UserID      uuid.UUID
	Status      string
	InsightDate string
	Limit       uint64
}

// ListInsights returns insights matching the filter, newest first.
func (s *Store) ListInsights(ctx context.Context, filter InsightFilter) ([]digest.StoredInsight, error) {
	q := psql.Select(insightColumns).
		From("daily_insights").
		OrderBy("created_at DESC")

	if filter.UserID != uuid.Nil {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.InsightDate != "" {
		q = q.Where("insight_date = ?", filter.InsightDate)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insight query: %w", err)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	var insights []digest.StoredInsight
	for rows.Next() {
		ins, err := scanInsight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		insights = append(insights, *ins)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate insights: %w", err)
	}
	return insights, nil
}
