package digest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

var testInsight = Insight{
	Topic:             "Shipping beats polishing",
	CoreInsight:       "We learned to ship rough drafts early.",
	SupportingContext: "Launch retro",
}

func TestGenerate_Combined(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"x_post": "Ship early, learn fast.", "linkedin_post": "Last week our team shipped a rough draft and learned more in a day than a month of polish."}`,
	}}
	g := NewGenerator(llm, discardLogger())

	drafts, err := g.Generate(context.Background(), testInsight, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if drafts.XPost != "Ship early, learn fast." {
		t.Errorf("unexpected x draft %q", drafts.XPost)
	}
	if !strings.Contains(drafts.LinkedInPost, "rough draft") {
		t.Errorf("unexpected linkedin draft %q", drafts.LinkedInPost)
	}
	if llm.calls != 1 {
		t.Errorf("expected one llm call, got %d", llm.calls)
	}
}

func TestGenerate_CombinedTruncatesOverlongX(t *testing.T) {
	long := strings.Repeat("every word counts ", 30)
	llm := &fakeLLM{responses: []string{
		`{"x_post": "` + long + `", "linkedin_post": "fine"}`,
	}}
	g := NewGenerator(llm, discardLogger())

	drafts, err := g.Generate(context.Background(), testInsight, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drafts.XPost) > MaxXPostLen {
		t.Errorf("x draft exceeds limit: %d chars", len(drafts.XPost))
	}
	if !strings.HasSuffix(drafts.XPost, "...") {
		t.Errorf("expected ellipsis suffix, got %q", drafts.XPost)
	}
}

func TestGenerate_CombinedMissingDraft(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"x_post": "only one"}`}}
	g := NewGenerator(llm, discardLogger())

	if _, err := g.Generate(context.Background(), testInsight, nil); err == nil {
		t.Fatal("expected error for missing linkedin draft")
	}
}

func TestGenerate_CombinedLLMError(t *testing.T) {
	llm := &fakeLLM{errs: []error{errors.New("down")}, responses: []string{""}}
	g := NewGenerator(llm, discardLogger())

	if _, err := g.Generate(context.Background(), testInsight, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestGenerate_TwoCallFitsFirstTry(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		"Ship early, learn fast.",
		"A longer LinkedIn story about shipping early.",
	}}
	g := NewTwoCallGenerator(llm, discardLogger())

	drafts, err := g.Generate(context.Background(), testInsight, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if drafts.XPost != "Ship early, learn fast." {
		t.Errorf("unexpected x draft %q", drafts.XPost)
	}
	if llm.calls != 2 {
		t.Errorf("expected 2 llm calls, got %d", llm.calls)
	}
}

func TestGenerate_TwoCallRetriesOverlongX(t *testing.T) {
	long := strings.Repeat("too long ", 40)
	llm := &fakeLLM{responses: []string{
		long,
		"Tight rewrite that fits.",
		"LinkedIn draft.",
	}}
	g := NewTwoCallGenerator(llm, discardLogger())

	drafts, err := g.Generate(context.Background(), testInsight, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if drafts.XPost != "Tight rewrite that fits." {
		t.Errorf("expected retry output, got %q", drafts.XPost)
	}
	if llm.calls != 3 {
		t.Errorf("expected 3 llm calls, got %d", llm.calls)
	}
	// The retry prompt carries the overlong draft back to the model.
	if !strings.Contains(llm.prompts[1], strings.TrimSpace(long)) {
		t.Error("expected retry prompt to include the original draft")
	}
}

func TestGenerate_TwoCallTruncatesWhenRetryStillOver(t *testing.T) {
	long := strings.Repeat("still too long ", 40)
	llm := &fakeLLM{responses: []string{long, long, "LinkedIn draft."}}
	g := NewTwoCallGenerator(llm, discardLogger())

	drafts, err := g.Generate(context.Background(), testInsight, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drafts.XPost) > MaxXPostLen {
		t.Errorf("x draft exceeds limit: %d chars", len(drafts.XPost))
	}
	if !strings.HasSuffix(drafts.XPost, "...") {
		t.Errorf("expected ellipsis suffix, got %q", drafts.XPost)
	}
	if llm.calls != 3 {
		t.Errorf("expected 3 llm calls, got %d", llm.calls)
	}
}

func TestGenerate_TwoCallRetryErrorFallsBackToTruncate(t *testing.T) {
	long := strings.Repeat("overflow ", 40)
	llm := &fakeLLM{
		responses: []string{long, "", "LinkedIn draft."},
		errs:      []error{nil, errors.New("retry failed"), nil},
	}
	g := NewTwoCallGenerator(llm, discardLogger())

	drafts, err := g.Generate(context.Background(), testInsight, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drafts.XPost) > MaxXPostLen {
		t.Errorf("x draft exceeds limit: %d chars", len(drafts.XPost))
	}
}

func TestBuildPostSystemPrompt_ProfileOverrides(t *testing.T) {
	profile := &Profile{
		WritingTone:    "dry and direct",
		StylisticRules: []string{"no hashtags", "short sentences"},
		BannedPhrases:  []string{"game changer"},
	}

	got := buildPostSystemPrompt(profile)
	if !strings.Contains(got, "dry and direct") {
		t.Error("expected custom tone in prompt")
	}
	if !strings.Contains(got, "no hashtags") || !strings.Contains(got, "short sentences") {
		t.Error("expected style rules in prompt")
	}
	if !strings.Contains(got, `"game changer"`) {
		t.Error("expected banned phrase in prompt")
	}
}

func TestBuildPostSystemPrompt_NilProfileUsesDefaultTone(t *testing.T) {
	got := buildPostSystemPrompt(nil)
	if !strings.Contains(got, defaultWritingTone) {
		t.Error("expected default tone in prompt")
	}
}

func TestSmartTruncate(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   string
	}{
		{
			name:   "short text unchanged",
			text:   "fits fine",
			maxLen: 20,
			want:   "fits fine",
		},
		{
			name:   "cuts at word boundary",
			text:   "The quick brown fox jumps",
			maxLen: 20,
			want:   "The quick brown...",
		},
		{
			name:   "no space hard cut",
			text:   strings.Repeat("a", 30),
			maxLen: 20,
			want:   strings.Repeat("a", 17) + "...",
		},
		{
			name:   "early space ignored",
			text:   "ab cdefghijklmnopqrstuvwxyz",
			maxLen: 20,
			want:   "ab cdefghijklmnop...",
		},
		{
			// Space at index 11 with cutoff 17*0.7=11.9: still too early, so
			// the cut goes mid-word instead of at the space.
			name:   "space just under threshold hard cuts",
			text:   "abcdefghijk lmnopqrstuvwxyz",
			maxLen: 20,
			want:   "abcdefghijk lmnop...",
		},
		{
			name:   "space at threshold cuts at word boundary",
			text:   "abcdefghijkl mnopqrstuvwxyz",
			maxLen: 20,
			want:   "abcdefghijkl...",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SmartTruncate(tt.text, tt.maxLen)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if len(got) > tt.maxLen {
				t.Errorf("result exceeds maxLen: %d", len(got))
			}
		})
	}
}

func TestSmartTruncate_NeverExceedsXLimit(t *testing.T) {
	long := strings.Repeat("word ", 200)
	got := SmartTruncate(long, MaxXPostLen)
	if len(got) > MaxXPostLen {
		t.Errorf("result exceeds limit: %d", len(got))
	}
}

func TestSmartTruncate_MultibyteSafe(t *testing.T) {
	long := strings.Repeat("é", 300)
	got := SmartTruncate(long, MaxXPostLen)
	if !utf8.ValidString(got) {
		t.Fatal("result is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(got); n > MaxXPostLen {
		t.Errorf("result exceeds limit: %d runes", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("missing ellipsis marker: %q", got)
	}
}

func TestEnforceXLimit_CountsRunes(t *testing.T) {
	g := NewGenerator(&fakeLLM{}, discardLogger())
	// 280 two-byte runes: over the limit in bytes, exactly at it in runes.
	post := strings.Repeat("é", MaxXPostLen)
	if got := g.enforceXLimit(post); got != post {
		t.Errorf("post at the rune limit was truncated to %q", got)
	}
}
