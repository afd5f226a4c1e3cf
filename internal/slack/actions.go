package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/digest"
)

// ActionKind enumerates the digest button actions. Payloads are decoded once
// at the boundary into a typed Action; handlers dispatch on the kind instead
// of matching action-id prefixes.
type ActionKind string

const (
	ActionViewX         ActionKind = "view_x_post"
	ActionViewLinkedIn  ActionKind = "view_linkedin_post"
	ActionIgnoreInsight ActionKind = "ignore_insight"
)

// Action is one decoded button interaction.
type Action struct {
	Kind      ActionKind
	EntityID  uuid.UUID
	UserID    string
	ChannelID string
	TriggerID string
}

// actionEvent is the wire form forwarded over the bus.
type actionEvent struct {
	ActionID  string `json:"action_id"`
	Value     string `json:"value"`
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	TriggerID string `json:"trigger_id"`
}

// DecodeAction parses a forwarded block-action payload. Unknown action ids
// return an error so callers can drop them without dispatching.
func DecodeAction(data []byte) (*Action, error) {
	var evt actionEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("parse action event: %w", err)
	}

	kind := ActionKind(evt.ActionID)
	switch kind {
	case ActionViewX, ActionViewLinkedIn, ActionIgnoreInsight:
	default:
		return nil, fmt.Errorf("unknown action id %q", evt.ActionID)
	}

	id, err := uuid.Parse(evt.Value)
	if err != nil {
		return nil, fmt.Errorf("parse action value %q: %w", evt.Value, err)
	}

	return &Action{
		Kind:      kind,
		EntityID:  id,
		UserID:    evt.UserID,
		ChannelID: evt.ChannelID,
		TriggerID: evt.TriggerID,
	}, nil
}

// PostReader is the post-store surface the action handler needs.
type PostReader interface {
	GetPost(ctx context.Context, id uuid.UUID) (*digest.Post, error)
	UpdatePostStatus(ctx context.Context, id uuid.UUID, status string) error
}

// InsightUpdater marks insights ignored.
type InsightUpdater interface {
	UpdateInsightStatus(ctx context.Context, id uuid.UUID, status string) error
}

// ActionHandler reacts to digest button interactions.
type ActionHandler struct {
	client   *Client
	posts    PostReader
	insights InsightUpdater
	logger   *slog.Logger
}

func NewActionHandler(client *Client, posts PostReader, insights InsightUpdater, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{client: client, posts: posts, insights: insights, logger: logger}
}

// HandleActionEvent is the bus handler for fieldnote.slack.action.
func (h *ActionHandler) HandleActionEvent(subject string, data []byte) {
	ctx := context.Background()

	action, err := DecodeAction(data)
	if err != nil {
		h.logger.Warn("dropping action event", "error", err)
		return
	}

	switch action.Kind {
	case ActionViewX:
		h.handleViewPost(ctx, action, "X Post")
	case ActionViewLinkedIn:
		h.handleViewPost(ctx, action, "LinkedIn Post")
	case ActionIgnoreInsight:
		h.handleIgnore(ctx, action)
	}
}

func (h *ActionHandler) handleViewPost(ctx context.Context, action *Action, title string) {
	post, err := h.posts.GetPost(ctx, action.EntityID)
	if err != nil {
		h.logger.Error("failed to load post", "post_id", action.EntityID, "error", err)
		return
	}
	if post == nil {
		h.logger.Warn("post not found for view action", "post_id", action.EntityID)
		return
	}

	if err := h.posts.UpdatePostStatus(ctx, post.ID, digest.PostViewed); err != nil {
		h.logger.Error("failed to mark post viewed", "post_id", post.ID, "error", err)
	}

	if err := h.client.OpenView(ctx, action.TriggerID, buildPostModal(title, post)); err != nil {
		h.logger.Error("failed to open post modal", "post_id", post.ID, "error", err)
		return
	}

	h.logger.Info("post viewed", "post_id", post.ID, "platform", post.Platform)
}

func (h *ActionHandler) handleIgnore(ctx context.Context, action *Action) {
	if err := h.insights.UpdateInsightStatus(ctx, action.EntityID, digest.InsightIgnored); err != nil {
		h.logger.Error("failed to ignore insight", "insight_id", action.EntityID, "error", err)
		return
	}

	if action.ChannelID != "" && action.UserID != "" {
		if err := h.client.PostEphemeral(ctx, action.ChannelID, action.UserID,
			"Got it! This insight has been ignored."); err != nil {
			h.logger.Warn("failed to confirm ignore", "error", err)
		}
	}

	h.logger.Info("insight ignored", "insight_id", action.EntityID)
}

func buildPostModal(title string, post *digest.Post) map[string]any {
	var counter string
	if post.Platform == digest.PlatformX {
		counter = fmt.Sprintf("*Character count:* %d/%d", post.CharCount, digest.MaxXPostLen)
	} else {
		words := 0
		inWord := false
		for _, r := range post.Content {
			switch {
			case r == ' ' || r == '\n' || r == '\t':
				inWord = false
			case !inWord:
				words++
				inWord = true
			}
		}
		counter = fmt.Sprintf("*Word count:* ~%d words", words)
	}

	return map[string]any{
		"type":  "modal",
		"title": map[string]any{"type": "plain_text", "text": title},
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{"type": "mrkdwn", "text": counter},
			},
			{"type": "divider"},
			{
				"type": "section",
				"text": map[string]any{"type": "plain_text", "text": post.Content},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{"type": "mrkdwn", "text": "_Copy this text and edit freely before posting!_"},
				},
			},
		},
	}
}
