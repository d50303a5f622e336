package e2e

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/engram/cmd/engram/cli"
	"github.com/felixgeelhaar/engram/internal/observe"
	"github.com/felixgeelhaar/engram/internal/provider"
	"github.com/felixgeelhaar/engram/internal/script"
	"github.com/felixgeelhaar/engram/internal/store"
)

// EchoStub reads its memory and then answers with the formatted
// context it received, so the test can assert the exact block the
// model sees at every turn.
type EchoStub struct{}

func (s *EchoStub) Name() string { return "echo-stub" }

func (s *EchoStub) Chat(ctx context.Context, messages []provider.Message, tools []provider.ToolSpec) (*provider.Response, error) {
	last := messages[len(messages)-1]

	if last.Role == "tool" {
		var result struct {
			FormattedContext string `json:"formatted_context"`
		}
		if err := json.Unmarshal([]byte(last.Content), &result); err != nil {
			return nil, err
		}
		return &provider.Response{Content: result.FormattedContext}, nil
	}

	return &provider.Response{
		Content:   "Reading back my notes first.",
		ToolCalls: []provider.ToolCall{{ID: "c1", Name: "get_memory", Args: `{"limit": 2}`}},
	}, nil
}

func TestE2E_MemoryFlow(t *testing.T) {
	tmpDir, _ := os.MkdirTemp("", "engram-flow-*")
	defer os.RemoveAll(tmpDir)

	s, err := store.NewSQLiteStore(filepath.Join(tmpDir, "memory.db"))
	if err != nil {
		t.Fatalf("store init failed: %v", err)
	}
	defer s.Close()

	o := observe.New(os.Stdout, false)
	sc := &script.Script{
		Name:   "flow",
		Agents: []script.Agent{{Name: "tutor", Persona: "You are a tutor."}},
		Turns: []script.Turn{
			{Agent: "tutor", Message: "What is a goroutine?"},
			{Agent: "tutor", Message: "And a channel?"},
			{Agent: "tutor", Message: "How do they combine?"},
		},
	}

	r := cli.NewRunner(o, s, &EchoStub{}, sc, "flow-1", nil)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	exchanges, err := s.GetRecentExchanges("tutor", 10)
	if err != nil {
		t.Fatalf("GetRecentExchanges failed: %v", err)
	}
	if len(exchanges) != 3 {
		t.Fatalf("Expected 3 exchanges, got %d", len(exchanges))
	}

	// Turn 1 saw an empty store.
	if exchanges[0].AgentResponse != "No previous conversation history." {
		t.Errorf("Expected empty-history sentinel, got %q", exchanges[0].AgentResponse)
	}

	// Turn 2 saw turn 1, verbatim.
	want := strings.Join([]string{
		"Recent conversation history:",
		"User: What is a goroutine?",
		"You: No previous conversation history.",
		"---",
	}, "\n")
	if exchanges[1].AgentResponse != want {
		t.Errorf("Expected context block\n%q\ngot\n%q", want, exchanges[1].AgentResponse)
	}

	// Turn 3 saw turns 1 and 2 oldest-first, capped at the limit the
	// stub asked for.
	resp := exchanges[2].AgentResponse
	if !strings.HasPrefix(resp, "Recent conversation history:\nUser: What is a goroutine?") {
		t.Errorf("Expected chronological context, got %q", resp)
	}
	if !strings.Contains(resp, "User: And a channel?") {
		t.Errorf("Expected second turn in context, got %q", resp)
	}
}

// RecallStub reads its memory and answers with just the prior user
// messages from the conversations payload, flat, so window assertions
// are not confused by nested context blocks.
type RecallStub struct{}

func (s *RecallStub) Name() string { return "recall-stub" }

func (s *RecallStub) Chat(ctx context.Context, messages []provider.Message, tools []provider.ToolSpec) (*provider.Response, error) {
	last := messages[len(messages)-1]

	if last.Role == "tool" {
		var result struct {
			Conversations []struct {
				UserMessage string `json:"user_message"`
			} `json:"conversations"`
		}
		if err := json.Unmarshal([]byte(last.Content), &result); err != nil {
			return nil, err
		}
		if len(result.Conversations) == 0 {
			return &provider.Response{Content: "(nothing on file)"}, nil
		}
		var asked []string
		for _, c := range result.Conversations {
			asked = append(asked, c.UserMessage)
		}
		return &provider.Response{Content: "You previously asked: " + strings.Join(asked, "; ")}, nil
	}

	return &provider.Response{
		Content:   "Reading back my notes first.",
		ToolCalls: []provider.ToolCall{{ID: "c1", Name: "get_memory", Args: `{"limit": 2}`}},
	}, nil
}

func TestE2E_MemoryFlow_LimitWindow(t *testing.T) {
	tmpDir, _ := os.MkdirTemp("", "engram-window-*")
	defer os.RemoveAll(tmpDir)

	s, err := store.NewSQLiteStore(filepath.Join(tmpDir, "memory.db"))
	if err != nil {
		t.Fatalf("store init failed: %v", err)
	}
	defer s.Close()

	// Four turns with a stub that reads back at most 2: the final
	// reply must name turns 2 and 3 only.
	o := observe.New(os.Stdout, false)
	sc := &script.Script{
		Name:   "window",
		Agents: []script.Agent{{Name: "dj", Persona: "You pick music."}},
		Turns: []script.Turn{
			{Agent: "dj", Message: "Play something calm"},
			{Agent: "dj", Message: "A bit faster now"},
			{Agent: "dj", Message: "Add some jazz"},
			{Agent: "dj", Message: "Back to calm"},
		},
	}

	r := cli.NewRunner(o, s, &RecallStub{}, sc, "", nil)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	exchanges, err := s.GetRecentExchanges("dj", 10)
	if err != nil {
		t.Fatalf("GetRecentExchanges failed: %v", err)
	}
	if len(exchanges) != 4 {
		t.Fatalf("Expected 4 exchanges, got %d", len(exchanges))
	}

	if exchanges[0].AgentResponse != "(nothing on file)" {
		t.Errorf("First turn should find nothing, got %q", exchanges[0].AgentResponse)
	}

	final := exchanges[3].AgentResponse
	if final != "You previously asked: A bit faster now; Add some jazz" {
		t.Errorf("Expected the two newest prior turns in the window, got %q", final)
	}
}
