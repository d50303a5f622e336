package store

import "time"

// Exchange is one recorded user/agent turn. The id is a monotonic
// surrogate key and the ordering tiebreak for equal timestamps.
type Exchange struct {
	ID            int64     `json:"id"`
	Agent         string    `json:"agent"`
	UserMessage   string    `json:"user_message"`
	AgentResponse string    `json:"agent_response"`
	SessionID     string    `json:"session_id,omitempty"` // optional grouping tag; empty means none
	CreatedAt     time.Time `json:"created_at"`
}

// Journal is a free-form note an agent keeps outside the conversation log.
type Journal struct {
	ID        int64     `json:"id"`
	Agent     string    `json:"agent"`
	Entry     string    `json:"entry"`
	Tags      []string  `json:"tags"` // stored as JSON text
	CreatedAt time.Time `json:"created_at"`
}

// Playlist is a named ordered list of items (content-creator agents).
type Playlist struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Items     []string  `json:"items"` // stored as JSON text
	CreatedAt time.Time `json:"created_at"`
}

// AgentStat is a per-agent rollup of the exchange log.
type AgentStat struct {
	Agent      string    `json:"agent"`
	Exchanges  int       `json:"exchanges"`
	LastActive time.Time `json:"last_active"`
}

// Storage defines the interface for persistence
type Storage interface {
	// Exchange log. The log is append-only: there is no update or
	// delete operation.
	SaveExchange(ex *Exchange) error
	// GetRecentExchanges returns up to limit rows for the agent in
	// chronological order (oldest first). An unknown agent yields an
	// empty slice, not an error.
	GetRecentExchanges(agent string, limit int) ([]Exchange, error)
	ListAgents() ([]AgentStat, error)

	// Journals
	SaveJournal(j *Journal) error
	ListJournals(limit int) ([]Journal, error)
	GetJournalsByAgent(agent string, limit int) ([]Journal, error)
	SearchJournals(term string, limit int) ([]Journal, error)

	// Playlists
	SavePlaylist(p *Playlist) error
	ListPlaylists(limit int) ([]Playlist, error)

	// Configuration Management
	SetConfig(key, value string) error
	GetConfig(key string) (string, error)

	Close() error
}
