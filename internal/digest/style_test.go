package digest

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestLearn(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{
	  "writing_tone": "dry and direct",
	  "stylistic_rules": ["short sentences", "no hashtags"],
	  "banned_phrases": ["game changer"]
	}`}}
	profiles := &fakeProfileStore{}
	a := NewStyleAnalyzer(llm, profiles, discardLogger())

	profile, err := a.Learn(context.Background(), "U1", []string{"sample one", "", "  sample two  "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if profile.WritingTone != "dry and direct" {
		t.Errorf("unexpected tone %q", profile.WritingTone)
	}
	if len(profile.StylisticRules) != 2 || len(profile.BannedPhrases) != 1 {
		t.Errorf("unexpected style %+v", profile)
	}

	// Blank samples were dropped and the rest trimmed before analysis.
	if len(llm.prompts) != 1 {
		t.Fatalf("expected one llm call, got %d", len(llm.prompts))
	}
	if !strings.Contains(llm.prompts[0], "sample one") || !strings.Contains(llm.prompts[0], "sample two") {
		t.Errorf("expected samples in prompt, got %q", llm.prompts[0])
	}
}

func TestLearn_NoSamples(t *testing.T) {
	a := NewStyleAnalyzer(&fakeLLM{}, &fakeProfileStore{}, discardLogger())

	if _, err := a.Learn(context.Background(), "U1", []string{"", "   "}); err == nil {
		t.Fatal("expected error for empty samples")
	}
}

func TestLearn_LLMError(t *testing.T) {
	llm := &fakeLLM{errs: []error{errors.New("down")}, responses: []string{""}}
	a := NewStyleAnalyzer(llm, &fakeProfileStore{}, discardLogger())

	if _, err := a.Learn(context.Background(), "U1", []string{"sample"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestLearn_MissingTone(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"stylistic_rules": ["short"]}`}}
	a := NewStyleAnalyzer(llm, &fakeProfileStore{}, discardLogger())

	if _, err := a.Learn(context.Background(), "U1", []string{"sample"}); err == nil {
		t.Fatal("expected error for missing tone")
	}
}
