package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// maxInsightsPerRun caps how many insights one digest run may produce.
const maxInsightsPerRun = 3

// Extractor turns raw conversation text into a bounded list of insights.
type Extractor struct {
	llm    LLM
	logger *slog.Logger
}

func NewExtractor(llm LLM, logger *slog.Logger) *Extractor {
	return &Extractor{llm: llm, logger: logger}
}

// Extract runs one LLM call over the conversation and returns at most
// maxInsightsPerRun valid insights in model order. Extraction failures are
// recoverable: malformed output or a failed call yields an empty slice, not
// an error, so a noisy model never kills the pipeline.
func (e *Extractor) Extract(ctx context.Context, conversationText string) []Insight {
	user := fmt.Sprintf(insightUserPrompt, conversationText)

	raw, err := e.llm.CompleteJSON(ctx, insightSystemPrompt, user, 600)
	if err != nil {
		e.logger.Error("insight extraction call failed", "error", err)
		return nil
	}

	var candidates []Insight
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		e.logger.Warn("insight extraction returned non-list output", "error", err, "raw_len", len(raw))
		return nil
	}

	insights := make([]Insight, 0, maxInsightsPerRun)
	for _, c := range candidates {
		if strings.TrimSpace(c.Topic) == "" || strings.TrimSpace(c.CoreInsight) == "" {
			continue
		}
		insights = append(insights, c)
		if len(insights) == maxInsightsPerRun {
			break
		}
	}

	e.logger.Info("insight extraction complete",
		"candidates", len(candidates),
		"insights", len(insights),
	)
	return insights
}

// FormatConversation renders turns as the LLM input transcript, one line per
// turn, preferring display names over raw user IDs.
func FormatConversation(turns []Turn) string {
	var sb strings.Builder
	for i, t := range turns {
		if i > 0 {
			sb.WriteByte('\n')
		}
		name := t.UserName
		if name == "" {
			name = t.UserID
		}
		fmt.Fprintf(&sb, "[%s]: %s", name, t.Text)
	}
	return sb.String()
}
