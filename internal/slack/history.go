package slack

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/digest"
)

const historyPageLimit = 200

type historyMessage struct {
	User    string `json:"user"`
	Text    string `json:"text"`
	TS      string `json:"ts"`
	BotID   string `json:"bot_id"`
	Subtype string `json:"subtype"`
}

type historyResponse struct {
	Messages         []historyMessage `json:"messages"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// FetchSince retrieves every turn newer than oldestTS (exclusive) from the
// given channels, merged and sorted ascending by timestamp. Bot messages,
// subtype events, and empty-text entries are dropped. Any channel failure
// aborts the whole fetch; partial results are never returned silently.
func (c *Client) FetchSince(ctx context.Context, channelIDs []string, oldestTS string) ([]digest.Turn, error) {
	var all []digest.Turn

	for _, channelID := range channelIDs {
		turns, err := c.fetchChannel(ctx, channelID, oldestTS)
		if err != nil {
			return nil, fmt.Errorf("fetch channel %s: %w", channelID, err)
		}
		all = append(all, turns...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return digest.CompareTokens(all[i].TS, all[j].TS) < 0
	})

	c.logger.Info("fetched channel history",
		"channels", len(channelIDs),
		"oldest_ts", oldestTS,
		"turns", len(all),
	)
	return all, nil
}

func (c *Client) fetchChannel(ctx context.Context, channelID, oldestTS string) ([]digest.Turn, error) {
	var turns []digest.Turn
	cursor := ""

	for {
		params := url.Values{
			"channel": {channelID},
			"limit":   {fmt.Sprint(historyPageLimit)},
		}
		if oldestTS != "" {
			params.Set("oldest", oldestTS)
			// The lower bound is exclusive: a turn at exactly oldestTS was
			// already seen by the previous run.
			params.Set("inclusive", "false")
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp historyResponse
		if err := c.getForm(ctx, "conversations.history", params, &resp); err != nil {
			return nil, err
		}

		for _, msg := range resp.Messages {
			if msg.BotID != "" || msg.Subtype != "" || msg.Text == "" {
				continue
			}
			userID := msg.User
			if userID == "" {
				userID = "unknown"
			}
			turns = append(turns, digest.Turn{
				UserID:   userID,
				UserName: c.userName(ctx, msg.User),
				Text:     msg.Text,
				TS:       msg.TS,
			})
		}

		cursor = resp.ResponseMetadata.NextCursor
		if cursor == "" {
			return turns, nil
		}
	}
}
