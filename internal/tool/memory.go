package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/engram/internal/memory"
	"github.com/felixgeelhaar/engram/internal/provider"
	"github.com/felixgeelhaar/engram/internal/store"
)

// Result status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Window bounds for a single memory read. Models can ask for any
// number; clamping keeps prompt growth bounded.
const (
	MinLimit = 1
	MaxLimit = 10
)

// Memory is the get_memory tool bound to a single agent. The identity
// is fixed at construction, so a tool built for one agent can never
// read another agent's history no matter what arguments arrive.
type Memory struct {
	agent     string
	formatter *memory.Formatter
}

// NewMemory builds the memory tool for one agent.
func NewMemory(agent string, formatter *memory.Formatter) *Memory {
	return &Memory{agent: agent, formatter: formatter}
}

// Result is the tagged outcome of a get_memory call. Status is either
// "success" or "error"; the other fields depend on which.
type Result struct {
	Status           string
	Conversations    []store.Exchange
	Count            int
	FormattedContext string
	Message          string
}

// MarshalJSON keeps the two outcome shapes distinct on the wire:
// success carries conversations, count and formatted_context, error
// carries only a message.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Status == StatusError {
		return json.Marshal(struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}{r.Status, r.Message})
	}

	conversations := r.Conversations
	if conversations == nil {
		conversations = []store.Exchange{}
	}
	return json.Marshal(struct {
		Status           string           `json:"status"`
		Conversations    []store.Exchange `json:"conversations"`
		Count            int              `json:"count"`
		FormattedContext string           `json:"formatted_context"`
	}{r.Status, conversations, r.Count, r.FormattedContext})
}

// Get returns the agent's recent history as a tagged result. It never
// returns an error: the calling runtime treats tool failures as data,
// not control flow, so failures come back with Status "error". The
// limit is clamped to [MinLimit, MaxLimit].
func (m *Memory) Get(limit int) Result {
	limit = clampLimit(limit)

	exchanges, err := m.formatter.GetRecent(m.agent, limit)
	if err != nil {
		return Result{
			Status:  StatusError,
			Message: fmt.Sprintf("failed to load memory: %v", err),
		}
	}

	return Result{
		Status:           StatusSuccess,
		Conversations:    exchanges,
		Count:            len(exchanges),
		FormattedContext: memory.Render(exchanges),
	}
}

// Definition returns the registry entry for the tool.
func (m *Memory) Definition() Definition {
	return Definition{
		Name:        "get_memory",
		Description: "Get recent conversation history for context.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": fmt.Sprintf("How many recent exchanges to return (default %d, max %d).", memory.DefaultLimit, MaxLimit),
				},
			},
		},
	}
}

// Executor adapts Get to the registry signature. Arguments arrive as
// the raw JSON the model produced; a missing limit means the default,
// and unparseable arguments become an error result rather than an
// executor error.
func (m *Memory) Executor() Executor {
	return func(ctx context.Context, call provider.ToolCall) (string, error) {
		var args struct {
			Limit *int `json:"limit"`
		}
		if call.Args != "" {
			if err := json.Unmarshal([]byte(call.Args), &args); err != nil {
				return marshalResult(Result{
					Status:  StatusError,
					Message: fmt.Sprintf("bad arguments: %v", err),
				})
			}
		}

		limit := memory.DefaultLimit
		if args.Limit != nil {
			limit = *args.Limit
		}
		return marshalResult(m.Get(limit))
	}
}

func marshalResult(r Result) (string, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return string(payload), nil
}

func clampLimit(limit int) int {
	if limit < MinLimit {
		return MinLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
