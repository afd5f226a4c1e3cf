package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Generator turns one insight plus one profile into platform drafts.
type Generator struct {
	llm    LLM
	logger *slog.Logger

	// twoCall switches to the legacy one-call-per-platform path with its
	// explicit retry stage. The combined single call is the default.
	twoCall bool
}

func NewGenerator(llm LLM, logger *slog.Logger) *Generator {
	return &Generator{llm: llm, logger: logger}
}

// NewTwoCallGenerator builds a generator using the legacy per-platform call
// sequence. Both variants satisfy the same postcondition: the X draft never
// exceeds MaxXPostLen characters.
func NewTwoCallGenerator(llm LLM, logger *slog.Logger) *Generator {
	return &Generator{llm: llm, logger: logger, twoCall: true}
}

// Drafts is the pair of platform posts generated for one insight.
type Drafts struct {
	XPost        string
	LinkedInPost string
}

type combinedResponse struct {
	XPost        string `json:"x_post"`
	LinkedInPost string `json:"linkedin_post"`
}

// Generate produces both drafts for the insight, conditioned on the profile.
// The returned X draft is guaranteed to be at most MaxXPostLen characters.
func (g *Generator) Generate(ctx context.Context, insight Insight, profile *Profile) (Drafts, error) {
	if g.twoCall {
		return g.generateTwoCall(ctx, insight, profile)
	}
	return g.generateCombined(ctx, insight, profile)
}

func (g *Generator) generateCombined(ctx context.Context, insight Insight, profile *Profile) (Drafts, error) {
	system := buildPostSystemPrompt(profile)
	user := fmt.Sprintf(combinedPostUserPrompt, insight.Topic, insight.CoreInsight, insight.SupportingContext)

	raw, err := g.llm.CompleteJSON(ctx, system, user, 800)
	if err != nil {
		return Drafts{}, fmt.Errorf("generate posts: %w", err)
	}

	var resp combinedResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return Drafts{}, fmt.Errorf("parse post response: %w", err)
	}
	if resp.XPost == "" || resp.LinkedInPost == "" {
		return Drafts{}, fmt.Errorf("post response missing a platform draft")
	}

	return Drafts{
		XPost:        g.enforceXLimit(resp.XPost),
		LinkedInPost: resp.LinkedInPost,
	}, nil
}

// generateTwoCall is the legacy variant: one call per platform, with the X
// draft run through an explicit stage sequence: generate, validate, retry
// once with the observed overflow, validate, truncate as last resort.
func (g *Generator) generateTwoCall(ctx context.Context, insight Insight, profile *Profile) (Drafts, error) {
	system := buildPostSystemPrompt(profile)

	xPost, err := g.generateXStaged(ctx, system, insight)
	if err != nil {
		return Drafts{}, err
	}

	linkedIn, err := g.llm.Complete(ctx, system,
		fmt.Sprintf(linkedInPostUserPrompt, insight.Topic, insight.CoreInsight, insight.SupportingContext), 600)
	if err != nil {
		return Drafts{}, fmt.Errorf("generate linkedin post: %w", err)
	}
	linkedIn = strings.TrimSpace(linkedIn)
	if linkedIn == "" {
		return Drafts{}, fmt.Errorf("empty linkedin draft")
	}

	return Drafts{XPost: xPost, LinkedInPost: linkedIn}, nil
}

type xStage int

const (
	stageGenerate xStage = iota
	stageValidate
	stageRetry
	stageRevalidate
	stageTruncate
	stageDone
)

func (g *Generator) generateXStaged(ctx context.Context, system string, insight Insight) (string, error) {
	var draft string
	stage := stageGenerate

	for stage != stageDone {
		switch stage {
		case stageGenerate:
			out, err := g.llm.Complete(ctx, system,
				fmt.Sprintf(xPostUserPrompt, insight.Topic, insight.CoreInsight, insight.SupportingContext), 150)
			if err != nil {
				return "", fmt.Errorf("generate x post: %w", err)
			}
			draft = strings.TrimSpace(out)
			stage = stageValidate

		case stageValidate:
			if draft == "" {
				return "", fmt.Errorf("empty x draft")
			}
			if utf8.RuneCountInString(draft) <= MaxXPostLen {
				stage = stageDone
			} else {
				stage = stageRetry
			}

		case stageRetry:
			out, err := g.llm.Complete(ctx, system, fmt.Sprintf(xPostRetryPrompt, utf8.RuneCountInString(draft), draft), 150)
			if err != nil {
				// The retry is best-effort; truncation still satisfies the
				// postcondition.
				g.logger.Warn("x post retry call failed, falling back to truncation", "error", err)
				stage = stageTruncate
				continue
			}
			draft = strings.TrimSpace(out)
			stage = stageRevalidate

		case stageRevalidate:
			if draft != "" && utf8.RuneCountInString(draft) <= MaxXPostLen {
				stage = stageDone
			} else {
				stage = stageTruncate
			}

		case stageTruncate:
			draft = SmartTruncate(draft, MaxXPostLen)
			stage = stageDone
		}
	}

	return draft, nil
}

func (g *Generator) enforceXLimit(post string) string {
	post = strings.TrimSpace(post)
	if utf8.RuneCountInString(post) <= MaxXPostLen {
		return post
	}
	g.logger.Warn("x post exceeded limit, truncating", "original_len", utf8.RuneCountInString(post))
	return SmartTruncate(post, MaxXPostLen)
}

// SmartTruncate cuts text to at most maxLen characters at a word boundary,
// appending an ellipsis marker. It cuts at the last space at or before
// maxLen-3; when no space falls in the last 30% of that span, it hard-cuts
// mid-word instead of discarding most of the text. Lengths and cut points
// are measured in runes so multi-byte text is never split mid-character.
func SmartTruncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}

	truncateAt := maxLen - 3
	lastSpace := -1
	for i := truncateAt; i >= 0; i-- {
		if runes[i] == ' ' {
			lastSpace = i
			break
		}
	}
	if float64(lastSpace) < float64(truncateAt)*0.7 {
		lastSpace = truncateAt
	}

	return strings.TrimSpace(string(runes[:lastSpace])) + "..."
}

func buildPostSystemPrompt(profile *Profile) string {
	tone := defaultWritingTone
	var extras strings.Builder
	if profile != nil {
		if profile.WritingTone != "" {
			tone = profile.WritingTone
		}
		if len(profile.StylisticRules) > 0 {
			extras.WriteString("\nStyle rules:\n")
			for _, r := range profile.StylisticRules {
				fmt.Fprintf(&extras, "- %s\n", r)
			}
		}
		if len(profile.BannedPhrases) > 0 {
			extras.WriteString("\nNEVER use these phrases:\n")
			for _, p := range profile.BannedPhrases {
				fmt.Fprintf(&extras, "- %q\n", p)
			}
		}
	}
	return fmt.Sprintf(postSystemPromptHeader, tone, extras.String())
}
