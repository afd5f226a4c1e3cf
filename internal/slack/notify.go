package slack

import (
	"context"
	"fmt"

	"github.com/MuhammedBasith/fieldnote-slack-bot/internal/digest"
)

// SendDigest delivers the full bundle of insights and drafts as one DM.
func (c *Client) SendDigest(ctx context.Context, slackUserID string, items []digest.InsightWithPosts) error {
	blocks := buildDigestBlocks(items)
	fallback := fmt.Sprintf("Fieldnote: Found %d insights", len(items))

	if err := c.PostMessage(ctx, slackUserID, fallback, blocks); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}

	c.logger.Info("digest sent", "user", slackUserID, "insight_count", len(items))
	return nil
}

// SendNoNewMessages tells the user there was nothing to analyze.
func (c *Client) SendNoNewMessages(ctx context.Context, slackUserID string) error {
	return c.SendNotice(ctx, slackUserID,
		"No new conversations since your last Fieldnote. Check back after more discussions!")
}

// SendNoInsights tells the user the conversation had no standout insights.
func (c *Client) SendNoInsights(ctx context.Context, slackUserID string, messageCount int) error {
	return c.SendNotice(ctx, slackUserID, fmt.Sprintf(
		"Analyzed %d messages but didn't find any standout insights this time. Keep the conversations going!",
		messageCount))
}

// SendNotice sends a plain-text DM.
func (c *Client) SendNotice(ctx context.Context, slackUserID, text string) error {
	return c.PostMessage(ctx, slackUserID, text, nil)
}

// SendEphemeral sends a message visible only to the user in the channel.
func (c *Client) SendEphemeral(ctx context.Context, channelID, slackUserID, text string) error {
	return c.PostEphemeral(ctx, channelID, slackUserID, text)
}

func buildDigestBlocks(items []digest.InsightWithPosts) []map[string]any {
	plural := ""
	if len(items) > 1 {
		plural = "s"
	}

	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{"type": "plain_text", "text": "Fieldnote", "emoji": true},
		},
		{
			"type": "context",
			"elements": []map[string]any{
				{
					"type": "mrkdwn",
					"text": fmt.Sprintf("Found *%d* insight%s from your conversations", len(items), plural),
				},
			},
		},
		{"type": "divider"},
	}

	for i, item := range items {
		blocks = append(blocks,
			map[string]any{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*%d. %s*", i+1, item.Insight.Topic),
				},
			},
			map[string]any{
				"type": "context",
				"elements": []map[string]any{
					{"type": "mrkdwn", "text": item.Insight.CoreInsight},
				},
			},
			map[string]any{
				"type": "actions",
				"elements": []map[string]any{
					{
						"type":      "button",
						"text":      map[string]any{"type": "plain_text", "text": fmt.Sprintf("X (%dc)", item.XPost.CharCount), "emoji": false},
						"action_id": string(ActionViewX),
						"value":     item.XPost.ID.String(),
					},
					{
						"type":      "button",
						"text":      map[string]any{"type": "plain_text", "text": "LinkedIn", "emoji": false},
						"action_id": string(ActionViewLinkedIn),
						"value":     item.LinkedInPost.ID.String(),
					},
					{
						"type":      "button",
						"text":      map[string]any{"type": "plain_text", "text": "Ignore", "emoji": false},
						"action_id": string(ActionIgnoreInsight),
						"value":     item.Insight.ID.String(),
					},
				},
			},
		)
		if i < len(items)-1 {
			blocks = append(blocks, map[string]any{"type": "divider"})
		}
	}

	blocks = append(blocks, map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{"type": "mrkdwn", "text": "Click to view full post, then copy and edit before publishing"},
		},
	})
	return blocks
}

// OpenStyleModal opens the style-learning modal where the user pastes sample
// posts.
func (c *Client) OpenStyleModal(ctx context.Context, triggerID string) error {
	view := map[string]any{
		"type":        "modal",
		"callback_id": "learn_style",
		"title":       map[string]any{"type": "plain_text", "text": "Learn Your Style"},
		"submit":      map[string]any{"type": "plain_text", "text": "Analyze"},
		"close":       map[string]any{"type": "plain_text", "text": "Cancel"},
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": "Paste your best LinkedIn or X posts below. This helps me match your unique writing style.",
				},
			},
			styleInputBlock("post_1", "Post 1", false),
			styleInputBlock("post_2", "Post 2 (optional)", true),
			styleInputBlock("post_3", "Post 3 (optional)", true),
		},
	}
	return c.OpenView(ctx, triggerID, view)
}

func styleInputBlock(blockID, label string, optional bool) map[string]any {
	return map[string]any{
		"type":     "input",
		"block_id": blockID,
		"optional": optional,
		"label":    map[string]any{"type": "plain_text", "text": label},
		"element": map[string]any{
			"type":      "plain_text_input",
			"action_id": "post_input",
			"multiline": true,
		},
	}
}
