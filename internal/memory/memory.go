package memory

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/engram/internal/store"
)

// DefaultLimit is how many exchanges are pulled when the caller does
// not ask for a specific amount.
const DefaultLimit = 5

// EmptyContext is the sentinel returned instead of an empty string
// when an agent has no recorded history, so prompt assembly never
// silently drops the section.
const EmptyContext = "No previous conversation history."

// Source is the slice of the record store the formatter reads.
type Source interface {
	// GetRecentExchanges returns up to limit exchanges for the agent
	// in chronological order (oldest first).
	GetRecentExchanges(agent string, limit int) ([]store.Exchange, error)
}

// Formatter turns an agent's recent exchanges into prompt-ready text.
type Formatter struct {
	source Source
}

func NewFormatter(source Source) *Formatter {
	return &Formatter{source: source}
}

// GetRecent returns up to limit exchanges for the agent, oldest first.
// A limit below one falls back to DefaultLimit.
func (f *Formatter) GetRecent(agent string, limit int) ([]store.Exchange, error) {
	if limit < 1 {
		limit = DefaultLimit
	}
	return f.source.GetRecentExchanges(agent, limit)
}

// FormatContext fetches the agent's recent history and renders it as a
// context block for the agent's instructions.
func (f *Formatter) FormatContext(agent string, limit int) (string, error) {
	exchanges, err := f.GetRecent(agent, limit)
	if err != nil {
		return "", err
	}
	return Render(exchanges), nil
}

// Render formats exchanges as a context block: a header line, then for
// each exchange the user's line, the agent's line, and a separator.
// Empty input renders as EmptyContext.
func Render(exchanges []store.Exchange) string {
	if len(exchanges) == 0 {
		return EmptyContext
	}

	parts := []string{"Recent conversation history:"}
	for _, ex := range exchanges {
		parts = append(parts, fmt.Sprintf("User: %s", ex.UserMessage))
		parts = append(parts, fmt.Sprintf("You: %s", ex.AgentResponse))
		parts = append(parts, "---")
	}
	return strings.Join(parts, "\n")
}
