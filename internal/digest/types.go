package digest

import (
	"time"

	"github.com/google/uuid"
)

// Turn is one chat message normalized for the pipeline. Turns are ephemeral;
// they are fetched per run and never persisted by the digest itself.
type Turn struct {
	UserID   string
	UserName string
	Text     string
	// TS is the Slack message timestamp, an opaque token whose numeric value
	// orders turns within a channel and across channels.
	TS string
}

// Insight is the raw extraction value produced by one LLM call, before it is
// persisted and assigned an owner.
type Insight struct {
	Topic             string `json:"topic"`
	CoreInsight       string `json:"core_insight"`
	SupportingContext string `json:"supporting_context"`
}

// Insight lifecycle statuses.
const (
	InsightPending        = "pending"
	InsightPostsGenerated = "posts_generated"
	InsightSent           = "sent"
	InsightIgnored        = "ignored"
)

// StoredInsight is a persisted insight row owned by a profile.
type StoredInsight struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	InsightDate       string
	Topic             string
	CoreInsight       string
	SupportingContext string
	Status            string
	CreatedAt         time.Time
}

// Profile holds per-user personalization for post generation.
type Profile struct {
	ID             uuid.UUID
	SlackUserID    string
	WritingTone    string
	StylisticRules []string
	BannedPhrases  []string
	Interests      []string
	Timezone       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Target platforms for generated posts.
const (
	PlatformX        = "x"
	PlatformLinkedIn = "linkedin"
)

// MaxXPostLen is the hard character limit for X posts. The generator
// guarantees stored X posts never exceed it.
const MaxXPostLen = 280

// Post lifecycle statuses.
const (
	PostDraft     = "draft"
	PostViewed    = "viewed"
	PostEdited    = "edited"
	PostPublished = "published"
	PostIgnored   = "ignored"
)

// Post is a generated platform-specific draft derived from one insight.
type Post struct {
	ID        uuid.UUID
	InsightID uuid.UUID
	Platform  string
	Content   string
	CharCount int
	Status    string
	CreatedAt time.Time
}

// RunRecord is one append-only digest run entry. The newest record per user
// supplies the exclusive lower bound of the next fetch window.
type RunRecord struct {
	ID           uuid.UUID
	SlackUserID  string
	NewestTS     string
	MessageCount int
	InsightCount int
	CreatedAt    time.Time
}

// Message is a channel message captured by the ingestion path.
type Message struct {
	ID        uuid.UUID
	ChannelID string
	UserID    string
	UserName  string
	Text      string
	SlackTS   string
	CreatedAt time.Time
}

// InsightWithPosts bundles one delivered insight with its two drafts.
type InsightWithPosts struct {
	Insight      StoredInsight
	XPost        Post
	LinkedInPost Post
}

// StyleProfile is the result of analyzing a user's sample posts.
type StyleProfile struct {
	WritingTone    string   `json:"writing_tone"`
	StylisticRules []string `json:"stylistic_rules"`
	BannedPhrases  []string `json:"banned_phrases"`
}
