package digest

import (
	"context"

	"github.com/google/uuid"
)

// LLM is the generative-text collaborator. CompleteJSON returns the model
// output with any markdown code fences stripped.
type LLM interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
	CompleteJSON(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// TurnSource fetches ordered conversation turns newer than oldestTS
// (exclusive) across a set of channels. Implementations must return turns
// sorted ascending by token and fail the whole fetch when any channel fails.
type TurnSource interface {
	FetchSince(ctx context.Context, channelIDs []string, oldestTS string) ([]Turn, error)
}

// Notifier delivers digest results back to the requesting user.
type Notifier interface {
	SendDigest(ctx context.Context, slackUserID string, items []InsightWithPosts) error
	SendNoNewMessages(ctx context.Context, slackUserID string) error
	SendNoInsights(ctx context.Context, slackUserID string, messageCount int) error
	SendNotice(ctx context.Context, slackUserID, text string) error
	SendEphemeral(ctx context.Context, channelID, slackUserID, text string) error
}

// ModalOpener opens interactive surfaces on the chat platform. Optional; a
// nil opener disables the style-learning subcommand.
type ModalOpener interface {
	OpenStyleModal(ctx context.Context, triggerID string) error
}

// RunStore persists digest run records.
type RunStore interface {
	LatestRun(ctx context.Context, slackUserID string) (*RunRecord, error)
	InsertRun(ctx context.Context, rec RunRecord) (*RunRecord, error)
}

// ProfileStore owns per-user personalization profiles.
type ProfileStore interface {
	GetOrCreateProfile(ctx context.Context, slackUserID string) (*Profile, error)
	UpdateProfileStyle(ctx context.Context, slackUserID string, style StyleProfile) (*Profile, error)
}

// InsightStore persists insights and their status transitions.
type InsightStore interface {
	InsertInsight(ctx context.Context, ins StoredInsight) (*StoredInsight, error)
	UpdateInsightStatus(ctx context.Context, id uuid.UUID, status string) error
}

// PostStore persists generated posts.
type PostStore interface {
	InsertPost(ctx context.Context, post Post) (*Post, error)
}

// Publisher emits events after terminal pipeline states. Optional; a nil
// publisher disables event emission.
type Publisher interface {
	Publish(subject string, data any) error
}
