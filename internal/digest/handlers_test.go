package digest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeModalOpener struct {
	triggers []string
	err      error
}

func (f *fakeModalOpener) OpenStyleModal(_ context.Context, triggerID string) error {
	if f.err != nil {
		return f.err
	}
	f.triggers = append(f.triggers, triggerID)
	return nil
}

func commandPayload(t *testing.T, evt CommandEvent) []byte {
	t.Helper()
	raw, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestHandleCommandEvent_RunsDigest(t *testing.T) {
	llm := &fakeLLM{responses: []string{`[]`}}
	source := &fakeSource{turns: turnsWithTokens("100")}
	fx := newPipelineFixture(llm, source)

	fx.pipeline.HandleCommandEvent("fieldnote.slack.command", commandPayload(t, CommandEvent{
		UserID:    "U1",
		ChannelID: "C1",
		TriggerID: "trig-1",
	}))

	// The run happens in the background; the completion event marks the end.
	waitForPublish(t, fx.bus)

	if len(fx.notifier.ephemerals) != 1 {
		t.Errorf("expected one ephemeral ack, got %d", len(fx.notifier.ephemerals))
	}
	if fx.notifier.noInsights != 1 {
		t.Errorf("expected digest to have run, noInsights=%d", fx.notifier.noInsights)
	}
}

func waitForPublish(t *testing.T, bus *fakeBus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		bus.mu.Lock()
		n := len(bus.subjects)
		bus.mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no completion event published")
}

func TestHandleCommandEvent_DegradedRunStillNotifies(t *testing.T) {
	// Extraction succeeds but every insight fails generation: the run is
	// recorded without a delivery, and the user still gets their one notice.
	llm := &fakeLLM{
		responses: []string{twoInsightsJSON, "", ""},
		errs:      []error{nil, errors.New("down"), errors.New("down")},
	}
	source := &fakeSource{turns: turnsWithTokens("100", "200")}
	fx := newPipelineFixture(llm, source)

	fx.pipeline.HandleCommandEvent("fieldnote.slack.command", commandPayload(t, CommandEvent{
		UserID:    "U1",
		ChannelID: "C1",
	}))
	waitForPublish(t, fx.bus)

	// The notice is sent after the completion event, so poll for it.
	var notices []string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		notices = fx.notifier.noticeList()
		if len(notices) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(notices) != 1 {
		t.Fatalf("expected one failure notice, got %d", len(notices))
	}
	if !strings.Contains(notices[0], "went wrong") {
		t.Errorf("unexpected notice %q", notices[0])
	}
	if len(fx.notifier.digests) != 0 {
		t.Errorf("expected no delivery, got %d", len(fx.notifier.digests))
	}
}

func TestHandleCommandEvent_StyleOpensModal(t *testing.T) {
	llm := &fakeLLM{}
	fx := newPipelineFixture(llm, &fakeSource{})
	modals := &fakeModalOpener{}
	fx.pipeline.modals = modals

	fx.pipeline.HandleCommandEvent("fieldnote.slack.command", commandPayload(t, CommandEvent{
		UserID:    "U1",
		TriggerID: "trig-9",
		Text:      "  Style ",
	}))

	if len(modals.triggers) != 1 || modals.triggers[0] != "trig-9" {
		t.Errorf("expected style modal for trig-9, got %v", modals.triggers)
	}
	if llm.calls != 0 {
		t.Errorf("expected no digest run for style subcommand, got %d llm calls", llm.calls)
	}
}

func TestHandleCommandEvent_MissingUser(t *testing.T) {
	llm := &fakeLLM{}
	fx := newPipelineFixture(llm, &fakeSource{})

	fx.pipeline.HandleCommandEvent("fieldnote.slack.command", commandPayload(t, CommandEvent{
		ChannelID: "C1",
	}))

	if len(fx.notifier.ephemerals) != 0 {
		t.Error("expected event dropped without user_id")
	}
}

func TestHandleCommandEvent_BadPayload(t *testing.T) {
	fx := newPipelineFixture(&fakeLLM{}, &fakeSource{})

	fx.pipeline.HandleCommandEvent("fieldnote.slack.command", []byte("not json"))

	if len(fx.notifier.ephemerals) != 0 {
		t.Error("expected bad payload dropped")
	}
}

func TestHandleStyleEvent(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"writing_tone": "casual", "stylistic_rules": [], "banned_phrases": []}`}}
	fx := newPipelineFixture(llm, &fakeSource{})
	fx.pipeline.styles = NewStyleAnalyzer(llm, &fakeProfileStore{}, discardLogger())

	raw, _ := json.Marshal(StyleEvent{UserID: "U1", Samples: []string{"a sample post"}})
	fx.pipeline.HandleStyleEvent("fieldnote.slack.style", raw)

	if len(fx.notifier.notices) != 1 {
		t.Fatalf("expected one confirmation notice, got %d", len(fx.notifier.notices))
	}
	if !strings.Contains(fx.notifier.notices[0], "updated") {
		t.Errorf("unexpected notice %q", fx.notifier.notices[0])
	}
}

func TestHandleStyleEvent_AnalysisFailureNotifies(t *testing.T) {
	llm := &fakeLLM{responses: []string{"not json at all"}}
	fx := newPipelineFixture(llm, &fakeSource{})
	fx.pipeline.styles = NewStyleAnalyzer(llm, &fakeProfileStore{}, discardLogger())

	raw, _ := json.Marshal(StyleEvent{UserID: "U1", Samples: []string{"a sample post"}})
	fx.pipeline.HandleStyleEvent("fieldnote.slack.style", raw)

	if len(fx.notifier.notices) != 1 {
		t.Fatalf("expected one failure notice, got %d", len(fx.notifier.notices))
	}
}
