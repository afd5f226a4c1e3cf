package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// StyleAnalyzer learns a user's writing voice from sample posts and writes
// the result into their profile.
type StyleAnalyzer struct {
	llm      LLM
	profiles ProfileStore
	logger   *slog.Logger
}

func NewStyleAnalyzer(llm LLM, profiles ProfileStore, logger *slog.Logger) *StyleAnalyzer {
	return &StyleAnalyzer{llm: llm, profiles: profiles, logger: logger}
}

// Learn analyzes the samples and updates the user's profile with the
// extracted tone, style rules, and banned phrases. At least one non-empty
// sample is required.
func (a *StyleAnalyzer) Learn(ctx context.Context, slackUserID string, samples []string) (*Profile, error) {
	var kept []string
	for _, s := range samples {
		if strings.TrimSpace(s) != "" {
			kept = append(kept, strings.TrimSpace(s))
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("no sample posts provided")
	}

	raw, err := a.llm.CompleteJSON(ctx, styleSystemPrompt,
		fmt.Sprintf(styleUserPrompt, strings.Join(kept, "\n\n---\n\n")), 600)
	if err != nil {
		return nil, fmt.Errorf("style analysis: %w", err)
	}

	var style StyleProfile
	if err := json.Unmarshal([]byte(raw), &style); err != nil {
		return nil, fmt.Errorf("parse style analysis: %w", err)
	}
	if style.WritingTone == "" {
		return nil, fmt.Errorf("style analysis returned no writing tone")
	}

	profile, err := a.profiles.UpdateProfileStyle(ctx, slackUserID, style)
	if err != nil {
		return nil, fmt.Errorf("update profile style: %w", err)
	}

	a.logger.Info("learned writing style",
		"user", slackUserID,
		"samples", len(kept),
		"rules", len(style.StylisticRules),
		"banned_phrases", len(style.BannedPhrases),
	)
	return profile, nil
}
