package digest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// State names one position in the digest run lifecycle. Terminal states are
// StateNoMessages, StateNoInsights, StateRunRecorded, and StateFailed.
type State string

const (
	StateIdle           State = "idle"
	StateWindowResolved State = "window_resolved"
	StateFetched        State = "fetched"
	StateNoMessages     State = "no_messages"
	StateExtracted      State = "extracted"
	StateNoInsights     State = "no_insights"
	StatePostsGenerated State = "posts_generated"
	StateDelivered      State = "delivered"
	StateRunRecorded    State = "run_recorded"
	StateFailed         State = "failed"
)

// ErrNoPostsGenerated reports that every extracted insight failed post
// generation. The run is still recorded — the messages were consumed — so
// this is carried in Result.Err rather than failing the run.
var ErrNoPostsGenerated = errors.New("no posts generated for any insight")

// SubjectDigestCompleted is published after each terminal pipeline state.
const SubjectDigestCompleted = "fieldnote.digest.completed"

// Result summarizes one pipeline run.
type Result struct {
	State        State
	MessageCount int
	InsightCount int
	// Err flags a degraded-but-completed run (see ErrNoPostsGenerated).
	// Fatal failures are returned as the second value of Run instead.
	Err error
}

// Deps wires the pipeline's collaborators. All fields except Bus and Modals
// are required.
type Deps struct {
	Tracker   *Tracker
	Source    TurnSource
	Extractor *Extractor
	Generator *Generator
	Profiles  ProfileStore
	Insights  InsightStore
	Posts     PostStore
	Notifier  Notifier
	Styles    *StyleAnalyzer
	Bus       Publisher
	Modals    ModalOpener
	Channels  []string
	Logger    *slog.Logger
}

// Pipeline orchestrates one digest run: window resolution, fetch, insight
// extraction, post generation, delivery, and run recording.
type Pipeline struct {
	tracker   *Tracker
	source    TurnSource
	extractor *Extractor
	generator *Generator
	profiles  ProfileStore
	insights  InsightStore
	posts     PostStore
	notifier  Notifier
	styles    *StyleAnalyzer
	bus       Publisher
	modals    ModalOpener
	channels  []string
	logger    *slog.Logger
}

func NewPipeline(deps Deps) *Pipeline {
	return &Pipeline{
		tracker:   deps.Tracker,
		source:    deps.Source,
		extractor: deps.Extractor,
		generator: deps.Generator,
		profiles:  deps.Profiles,
		insights:  deps.Insights,
		posts:     deps.Posts,
		notifier:  deps.Notifier,
		styles:    deps.Styles,
		bus:       deps.Bus,
		modals:    deps.Modals,
		channels:  deps.Channels,
		logger:    deps.Logger,
	}
}

// Run executes the digest pipeline for one user. Fatal infrastructure
// failures (window, fetch, delivery) come back as the error; recoverable
// degradation is carried inside the Result. Fatal failures before run
// recording leave no RunRecord, so the same window is retried next time.
func (p *Pipeline) Run(ctx context.Context, slackUserID string) (Result, error) {
	p.logger.Info("starting digest run", "user", slackUserID)

	// 1. Resolve the fetch window.
	window, err := p.tracker.ResolveWindow(ctx, slackUserID)
	if err != nil {
		return Result{State: StateFailed}, fmt.Errorf("resolve window: %w", err)
	}
	p.logger.Info("resolved fetch window",
		"user", slackUserID,
		"oldest_ts", window.OldestTS,
		"first_run", window.IsFirstRun,
	)

	// 2. Fetch turns. Fetch failure is fatal: nothing recorded, same window
	// next invocation.
	turns, err := p.source.FetchSince(ctx, p.channels, window.OldestTS)
	if err != nil {
		return Result{State: StateFailed}, fmt.Errorf("fetch turns: %w", err)
	}

	if len(turns) == 0 {
		if err := p.notifier.SendNoNewMessages(ctx, slackUserID); err != nil {
			p.logger.Error("failed to send no-messages notice", "error", err)
		}
		// A no-op by contract, kept so the call sequence matches every path.
		if err := p.tracker.RecordRun(ctx, slackUserID, turns, 0); err != nil {
			p.logger.Error("failed to record empty run", "error", err)
		}
		p.logger.Info("no new messages since last run", "user", slackUserID)
		return p.finish(Result{State: StateNoMessages}, slackUserID)
	}
	p.logger.Info("fetched turns", "user", slackUserID, "count", len(turns))

	// 3. Extract insights. Extraction degrades to empty, never fails the run.
	insights := p.extractor.Extract(ctx, FormatConversation(turns))

	if len(insights) == 0 {
		if err := p.notifier.SendNoInsights(ctx, slackUserID, len(turns)); err != nil {
			p.logger.Error("failed to send no-insights notice", "error", err)
		}
		// The window still advances: message volume without insight value is
		// not re-scanned.
		if err := p.tracker.RecordRun(ctx, slackUserID, turns, 0); err != nil {
			return Result{State: StateFailed, MessageCount: len(turns)}, fmt.Errorf("record run: %w", err)
		}
		return p.finish(Result{State: StateNoInsights, MessageCount: len(turns)}, slackUserID)
	}

	profile, err := p.profiles.GetOrCreateProfile(ctx, slackUserID)
	if err != nil {
		return Result{State: StateFailed, MessageCount: len(turns)}, fmt.Errorf("load profile: %w", err)
	}

	// 4. Per-insight generation with failure isolation: one bad insight never
	// aborts the batch. Insights are processed sequentially so delivery order
	// mirrors extraction order.
	delivered := make([]InsightWithPosts, 0, len(insights))
	for _, insight := range insights {
		item, err := p.processInsight(ctx, profile, insight)
		if err != nil {
			p.logger.Error("failed to process insight", "topic", insight.Topic, "error", err)
			continue
		}
		delivered = append(delivered, *item)
	}

	// 5. Every insight failed end-to-end: messages were consumed, so record
	// the run, but flag the failure to the caller without re-raising.
	if len(delivered) == 0 {
		p.logger.Warn("no posts generated despite having insights", "user", slackUserID)
		if err := p.tracker.RecordRun(ctx, slackUserID, turns, 0); err != nil {
			p.logger.Error("failed to record run", "error", err)
		}
		return p.finish(Result{
			State:        StateRunRecorded,
			MessageCount: len(turns),
			Err:          ErrNoPostsGenerated,
		}, slackUserID)
	}

	// 6. Deliver the bundle. Storage mutations are already committed, so a
	// delivery failure still records the run before surfacing the error.
	if err := p.notifier.SendDigest(ctx, slackUserID, delivered); err != nil {
		if recErr := p.tracker.RecordRun(ctx, slackUserID, turns, len(delivered)); recErr != nil {
			p.logger.Error("failed to record run after delivery failure", "error", recErr)
		}
		return Result{
			State:        StateFailed,
			MessageCount: len(turns),
			InsightCount: len(delivered),
		}, fmt.Errorf("deliver digest: %w", err)
	}

	for _, item := range delivered {
		if err := p.insights.UpdateInsightStatus(ctx, item.Insight.ID, InsightSent); err != nil {
			p.logger.Error("failed to mark insight sent", "insight_id", item.Insight.ID, "error", err)
		}
	}

	if err := p.tracker.RecordRun(ctx, slackUserID, turns, len(delivered)); err != nil {
		return Result{
			State:        StateFailed,
			MessageCount: len(turns),
			InsightCount: len(delivered),
		}, fmt.Errorf("record run: %w", err)
	}

	p.logger.Info("digest run completed",
		"user", slackUserID,
		"state", string(StateRunRecorded),
		"message_count", len(turns),
		"insight_count", len(delivered),
	)
	return p.finish(Result{
		State:        StateRunRecorded,
		MessageCount: len(turns),
		InsightCount: len(delivered),
	}, slackUserID)
}

// processInsight stores one insight, generates its drafts, stores both, and
// advances the insight status. Any failure leaves the insight behind in
// whatever state it reached; the caller skips it.
func (p *Pipeline) processInsight(ctx context.Context, profile *Profile, insight Insight) (*InsightWithPosts, error) {
	stored, err := p.insights.InsertInsight(ctx, StoredInsight{
		ID:                uuid.New(),
		UserID:            profile.ID,
		InsightDate:       time.Now().UTC().Format("2006-01-02"),
		Topic:             insight.Topic,
		CoreInsight:       insight.CoreInsight,
		SupportingContext: insight.SupportingContext,
		Status:            InsightPending,
	})
	if err != nil {
		return nil, fmt.Errorf("store insight: %w", err)
	}

	drafts, err := p.generator.Generate(ctx, insight, profile)
	if err != nil {
		return nil, fmt.Errorf("generate posts: %w", err)
	}

	xPost, err := p.posts.InsertPost(ctx, Post{
		ID:        uuid.New(),
		InsightID: stored.ID,
		Platform:  PlatformX,
		Content:   drafts.XPost,
		CharCount: utf8.RuneCountInString(drafts.XPost),
		Status:    PostDraft,
	})
	if err != nil {
		return nil, fmt.Errorf("store x post: %w", err)
	}

	linkedInPost, err := p.posts.InsertPost(ctx, Post{
		ID:        uuid.New(),
		InsightID: stored.ID,
		Platform:  PlatformLinkedIn,
		Content:   drafts.LinkedInPost,
		CharCount: utf8.RuneCountInString(drafts.LinkedInPost),
		Status:    PostDraft,
	})
	if err != nil {
		return nil, fmt.Errorf("store linkedin post: %w", err)
	}

	if err := p.insights.UpdateInsightStatus(ctx, stored.ID, InsightPostsGenerated); err != nil {
		return nil, fmt.Errorf("update insight status: %w", err)
	}

	p.logger.Info("generated posts for insight", "topic", insight.Topic)
	return &InsightWithPosts{Insight: *stored, XPost: *xPost, LinkedInPost: *linkedInPost}, nil
}

// finish publishes the completion event for a terminal state and returns the
// result unchanged.
func (p *Pipeline) finish(res Result, slackUserID string) (Result, error) {
	if p.bus != nil {
		if err := p.bus.Publish(SubjectDigestCompleted, map[string]any{
			"user_id":       slackUserID,
			"state":         string(res.State),
			"message_count": res.MessageCount,
			"insight_count": res.InsightCount,
			"degraded":      res.Err != nil,
		}); err != nil {
			p.logger.Warn("failed to publish digest completed", "error", err)
		}
	}
	return res, nil
}

// CommandEvent is a forwarded slash-command invocation.
type CommandEvent struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	TriggerID string `json:"trigger_id"`
	Text      string `json:"text"`
}

// HandleCommandEvent is the bus handler for fieldnote.slack.command. The
// digest runs in the background; the user gets an immediate ephemeral ack
// and results arrive by DM.
func (p *Pipeline) HandleCommandEvent(subject string, data []byte) {
	ctx := context.Background()

	var evt CommandEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse command event", "error", err)
		return
	}
	if evt.UserID == "" {
		p.logger.Error("command event missing user_id")
		return
	}

	if strings.EqualFold(strings.TrimSpace(evt.Text), "style") {
		if p.modals == nil {
			p.logger.Warn("style subcommand received but no modal surface configured")
			return
		}
		if err := p.modals.OpenStyleModal(ctx, evt.TriggerID); err != nil {
			p.logger.Error("failed to open style modal", "error", err)
		}
		return
	}

	if evt.ChannelID != "" {
		if err := p.notifier.SendEphemeral(ctx, evt.ChannelID, evt.UserID,
			"Analyzing your conversations... You'll receive a DM shortly with any insights found."); err != nil {
			p.logger.Warn("failed to send ephemeral ack", "error", err)
		}
	}

	go func() {
		res, err := p.Run(ctx, evt.UserID)
		if err != nil {
			p.logger.Error("digest run failed after command", "user", evt.UserID, "error", err)
			p.sendFailureNotice(ctx, evt.UserID)
			return
		}
		// A degraded completion (run recorded, nothing delivered) still owes
		// the user their one notification.
		if res.Err != nil {
			p.logger.Warn("digest run degraded", "user", evt.UserID, "error", res.Err)
			p.sendFailureNotice(ctx, evt.UserID)
		}
	}()
}

func (p *Pipeline) sendFailureNotice(ctx context.Context, slackUserID string) {
	if err := p.notifier.SendNotice(ctx, slackUserID,
		"Something went wrong generating your insights. Please try again later."); err != nil {
		p.logger.Error("failed to send failure notice", "error", err)
	}
}

// StyleEvent is a forwarded style-modal submission carrying the pasted
// sample posts.
type StyleEvent struct {
	UserID  string   `json:"user_id"`
	Samples []string `json:"samples"`
}

// HandleStyleEvent is the bus handler for fieldnote.slack.style.
func (p *Pipeline) HandleStyleEvent(subject string, data []byte) {
	ctx := context.Background()

	var evt StyleEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse style event", "error", err)
		return
	}
	if p.styles == nil {
		p.logger.Warn("style event received but style analyzer not configured")
		return
	}

	if _, err := p.styles.Learn(ctx, evt.UserID, evt.Samples); err != nil {
		p.logger.Error("style learning failed", "user", evt.UserID, "error", err)
		if nErr := p.notifier.SendNotice(ctx, evt.UserID,
			"Couldn't analyze those posts. Please try again with a few longer samples."); nErr != nil {
			p.logger.Error("failed to send style failure notice", "error", nErr)
		}
		return
	}

	if err := p.notifier.SendNotice(ctx, evt.UserID,
		"Got it! Your writing style has been updated. Future drafts will match it."); err != nil {
		p.logger.Error("failed to send style confirmation", "error", err)
	}
}
