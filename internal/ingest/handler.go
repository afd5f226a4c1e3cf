// Package ingest captures forwarded channel messages into the store. It is
// an auxiliary history: the digest pipeline fetches straight from the Slack
// API, so the service keeps working when the forwarder lags or drops events.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/digest"
)

// MessageStore is the store surface ingestion needs.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg digest.Message) (*digest.Message, error)
}

// MessageEvent is one forwarded channel message.
type MessageEvent struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Text      string `json:"text"`
	TS        string `json:"ts"`
	BotID     string `json:"bot_id"`
	Subtype   string `json:"subtype"`
}

type Handler struct {
	store    MessageStore
	channels map[string]bool
	logger   *slog.Logger
}

func NewHandler(store MessageStore, channelIDs []string, logger *slog.Logger) *Handler {
	channels := make(map[string]bool, len(channelIDs))
	for _, id := range channelIDs {
		channels[id] = true
	}
	return &Handler{store: store, channels: channels, logger: logger}
}

// HandleMessageEvent is the bus handler for fieldnote.slack.message. Events
// from unconfigured channels, bots, subtypes, and empty texts are dropped.
// Re-delivered messages are absorbed by the store's duplicate no-op.
func (h *Handler) HandleMessageEvent(subject string, data []byte) {
	ctx := context.Background()

	var evt MessageEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		h.logger.Error("failed to parse message event", "error", err)
		return
	}

	if !h.channels[evt.ChannelID] {
		return
	}
	if evt.BotID != "" || evt.Subtype != "" || evt.Text == "" {
		return
	}

	userID := evt.UserID
	if userID == "" {
		userID = "unknown"
	}

	stored, err := h.store.InsertMessage(ctx, digest.Message{
		ChannelID: evt.ChannelID,
		UserID:    userID,
		UserName:  evt.UserName,
		Text:      evt.Text,
		SlackTS:   evt.TS,
	})
	if err != nil {
		h.logger.Error("failed to store message", "channel", evt.ChannelID, "ts", evt.TS, "error", err)
		return
	}
	if stored == nil {
		h.logger.Debug("message already stored", "channel", evt.ChannelID, "ts", evt.TS)
	}
}
