package memory

import (
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/engram/internal/store"
)

type fakeSource struct {
	exchanges []store.Exchange
	err       error
	gotAgent  string
	gotLimit  int
}

func (f *fakeSource) GetRecentExchanges(agent string, limit int) ([]store.Exchange, error) {
	f.gotAgent = agent
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit > len(f.exchanges) {
		limit = len(f.exchanges)
	}
	return f.exchanges[len(f.exchanges)-limit:], nil
}

func TestRender(t *testing.T) {
	exchanges := []store.Exchange{
		{UserMessage: "What is a goroutine?", AgentResponse: "A lightweight thread managed by the runtime."},
		{UserMessage: "And a channel?", AgentResponse: "A typed conduit for communication between goroutines."},
	}

	got := Render(exchanges)
	want := strings.Join([]string{
		"Recent conversation history:",
		"User: What is a goroutine?",
		"You: A lightweight thread managed by the runtime.",
		"---",
		"User: And a channel?",
		"You: A typed conduit for communication between goroutines.",
		"---",
	}, "\n")

	if got != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, got)
	}
}

func TestRender_Empty(t *testing.T) {
	if got := Render(nil); got != EmptyContext {
		t.Errorf("expected sentinel %q, got %q", EmptyContext, got)
	}
	if got := Render([]store.Exchange{}); got != EmptyContext {
		t.Errorf("expected sentinel %q, got %q", EmptyContext, got)
	}
	if Render(nil) == "" {
		t.Error("expected a non-empty sentinel for missing history")
	}
}

func TestFormatter_GetRecent(t *testing.T) {
	src := &fakeSource{exchanges: []store.Exchange{
		{UserMessage: "one"},
		{UserMessage: "two"},
		{UserMessage: "three"},
	}}
	f := NewFormatter(src)

	got, err := f.GetRecent("tutor", 2)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(got))
	}
	if got[0].UserMessage != "two" || got[1].UserMessage != "three" {
		t.Errorf("expected the two most recent in order, got [%s, %s]", got[0].UserMessage, got[1].UserMessage)
	}
	if src.gotAgent != "tutor" {
		t.Errorf("expected agent 'tutor' passed through, got %q", src.gotAgent)
	}
}

func TestFormatter_GetRecent_DefaultLimit(t *testing.T) {
	src := &fakeSource{}
	f := NewFormatter(src)

	if _, err := f.GetRecent("dj", 0); err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if src.gotLimit != DefaultLimit {
		t.Errorf("expected zero limit to fall back to %d, got %d", DefaultLimit, src.gotLimit)
	}

	if _, err := f.GetRecent("dj", -7); err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if src.gotLimit != DefaultLimit {
		t.Errorf("expected negative limit to fall back to %d, got %d", DefaultLimit, src.gotLimit)
	}
}

func TestFormatter_FormatContext(t *testing.T) {
	src := &fakeSource{exchanges: []store.Exchange{
		{UserMessage: "Play jazz", AgentResponse: "Spinning some Coltrane."},
	}}
	f := NewFormatter(src)

	got, err := f.FormatContext("dj", 5)
	if err != nil {
		t.Fatalf("FormatContext failed: %v", err)
	}
	if !strings.HasPrefix(got, "Recent conversation history:") {
		t.Errorf("expected history header, got %q", got)
	}
	if !strings.Contains(got, "User: Play jazz") {
		t.Errorf("expected user line, got %q", got)
	}
	if !strings.Contains(got, "You: Spinning some Coltrane.") {
		t.Errorf("expected agent line, got %q", got)
	}
	if !strings.HasSuffix(got, "---") {
		t.Errorf("expected trailing separator, got %q", got)
	}
}

func TestFormatter_FormatContext_Empty(t *testing.T) {
	f := NewFormatter(&fakeSource{})

	got, err := f.FormatContext("nobody", 5)
	if err != nil {
		t.Fatalf("FormatContext failed: %v", err)
	}
	if got != EmptyContext {
		t.Errorf("expected sentinel %q, got %q", EmptyContext, got)
	}
}

func TestFormatter_FormatContext_Error(t *testing.T) {
	boom := errors.New("db unreachable")
	f := NewFormatter(&fakeSource{err: boom})

	if _, err := f.FormatContext("dj", 5); !errors.Is(err, boom) {
		t.Errorf("expected the source error to propagate, got %v", err)
	}
}
