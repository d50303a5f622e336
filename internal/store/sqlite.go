package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("%w: failed to create db directory: %v", ErrPersistence, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", ErrPersistence, err)
	}

	// One connection keeps writes serialized; WAL keeps readers
	// unblocked while a demo run is appending.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}

	if err := store.InitSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// InitSchema creates tables and indexes if they are missing. It is
// safe to call repeatedly; NewSQLiteStore runs it automatically.
func (s *SQLiteStore) InitSchema() error {
	pragmas := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
		`PRAGMA foreign_keys=ON;`,
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("%w: failed to apply pragma: %v", ErrPersistence, err)
		}
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS agent_responses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			agent TEXT NOT NULL,
			user_message TEXT,
			agent_response TEXT,
			session_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_agent_responses_agent ON agent_responses(agent);`,
		`CREATE TABLE IF NOT EXISTS journals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			agent TEXT NOT NULL,
			entry TEXT NOT NULL,
			tags TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS playlists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			items TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS configuration (
			key TEXT PRIMARY KEY,
			value TEXT
		);`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("%w: failed to init schema: %v", ErrPersistence, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// nullable maps an empty string to SQL NULL.
func nullable(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

// Exchange Log Implementation

// SaveExchange appends one exchange to the log and fills in the row id
// and timestamp on the passed value. The log is append-only.
func (s *SQLiteStore) SaveExchange(ex *Exchange) error {
	if ex == nil {
		return fmt.Errorf("%w: exchange is nil", ErrInvalidArgument)
	}
	if ex.Agent == "" {
		return fmt.Errorf("%w: agent is required", ErrInvalidArgument)
	}

	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO agent_responses (agent, user_message, agent_response, session_id, created_at) VALUES (?, ?, ?, ?, ?)`
	res, err := s.db.Exec(query, ex.Agent, ex.UserMessage, ex.AgentResponse, nullable(ex.SessionID), ex.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to save exchange: %v", ErrPersistence, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: failed to read exchange id: %v", ErrPersistence, err)
	}
	ex.ID = id
	return nil
}

// GetRecentExchanges returns up to limit exchanges for the agent,
// selected newest-first and flipped so the slice reads chronologically
// (oldest first). An agent with no history yields an empty slice, not
// an error.
func (s *SQLiteStore) GetRecentExchanges(agent string, limit int) ([]Exchange, error) {
	if agent == "" {
		return nil, fmt.Errorf("%w: agent is required", ErrInvalidArgument)
	}
	if limit < 1 {
		// SQLite reads a negative LIMIT as "no limit"; reject instead.
		return nil, fmt.Errorf("%w: limit must be at least 1, got %d", ErrInvalidArgument, limit)
	}

	query := `SELECT id, agent, user_message, agent_response, session_id, created_at
		FROM agent_responses WHERE agent = ? ORDER BY id DESC LIMIT ?`
	rows, err := s.db.Query(query, agent, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query exchanges: %v", ErrPersistence, err)
	}
	defer rows.Close()

	exchanges := []Exchange{}
	for rows.Next() {
		var ex Exchange
		var sessionID sql.NullString
		if err := rows.Scan(&ex.ID, &ex.Agent, &ex.UserMessage, &ex.AgentResponse, &sessionID, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan exchange: %v", ErrPersistence, err)
		}
		ex.SessionID = sessionID.String
		exchanges = append(exchanges, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read exchanges: %v", ErrPersistence, err)
	}

	// Rows arrive newest-first; reverse into chronological order.
	for i, j := 0, len(exchanges)-1; i < j; i, j = i+1, j-1 {
		exchanges[i], exchanges[j] = exchanges[j], exchanges[i]
	}
	return exchanges, nil
}

// ListAgents returns one row per agent with its exchange count and the
// timestamp of its most recent exchange.
func (s *SQLiteStore) ListAgents() ([]AgentStat, error) {
	// The join pulls created_at off the base table so the column type
	// survives; MAX(created_at) would come back untyped.
	query := `SELECT grouped.agent, grouped.n, latest.created_at
		FROM (SELECT agent, COUNT(*) AS n, MAX(id) AS last_id FROM agent_responses GROUP BY agent) grouped
		JOIN agent_responses latest ON latest.id = grouped.last_id
		ORDER BY grouped.agent`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query agents: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var stats []AgentStat
	for rows.Next() {
		var st AgentStat
		if err := rows.Scan(&st.Agent, &st.Exchanges, &st.LastActive); err != nil {
			return nil, fmt.Errorf("%w: failed to scan agent stats: %v", ErrPersistence, err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read agent stats: %v", ErrPersistence, err)
	}
	return stats, nil
}

// Journal Implementation

func (s *SQLiteStore) SaveJournal(j *Journal) error {
	if j == nil {
		return fmt.Errorf("%w: journal is nil", ErrInvalidArgument)
	}
	if j.Agent == "" || j.Entry == "" {
		return fmt.Errorf("%w: agent and entry are required", ErrInvalidArgument)
	}

	tags := j.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO journals (agent, entry, tags, created_at) VALUES (?, ?, ?, ?)`
	res, err := s.db.Exec(query, j.Agent, j.Entry, string(tagsJSON), j.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to save journal: %v", ErrPersistence, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: failed to read journal id: %v", ErrPersistence, err)
	}
	j.ID = id
	return nil
}

func (s *SQLiteStore) ListJournals(limit int) ([]Journal, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be at least 1, got %d", ErrInvalidArgument, limit)
	}
	query := `SELECT id, agent, entry, tags, created_at FROM journals ORDER BY id DESC LIMIT ?`
	return s.queryJournals(query, limit)
}

func (s *SQLiteStore) GetJournalsByAgent(agent string, limit int) ([]Journal, error) {
	if agent == "" {
		return nil, fmt.Errorf("%w: agent is required", ErrInvalidArgument)
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be at least 1, got %d", ErrInvalidArgument, limit)
	}
	query := `SELECT id, agent, entry, tags, created_at FROM journals WHERE agent = ? ORDER BY id DESC LIMIT ?`
	return s.queryJournals(query, agent, limit)
}

// SearchJournals matches the term as a substring of the entry text or
// the tag list.
func (s *SQLiteStore) SearchJournals(term string, limit int) ([]Journal, error) {
	if term == "" {
		return nil, fmt.Errorf("%w: search term is required", ErrInvalidArgument)
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be at least 1, got %d", ErrInvalidArgument, limit)
	}
	pattern := "%" + term + "%"
	query := `SELECT id, agent, entry, tags, created_at FROM journals WHERE entry LIKE ? OR tags LIKE ? ORDER BY id DESC LIMIT ?`
	return s.queryJournals(query, pattern, pattern, limit)
}

func (s *SQLiteStore) queryJournals(query string, args ...interface{}) ([]Journal, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query journals: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var journals []Journal
	for rows.Next() {
		var j Journal
		var tagsJSON sql.NullString
		if err := rows.Scan(&j.ID, &j.Agent, &j.Entry, &tagsJSON, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan journal: %v", ErrPersistence, err)
		}
		if tagsJSON.Valid && tagsJSON.String != "" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &j.Tags); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
			}
		}
		journals = append(journals, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read journals: %v", ErrPersistence, err)
	}
	return journals, nil
}

// Playlist Implementation

func (s *SQLiteStore) SavePlaylist(p *Playlist) error {
	if p == nil {
		return fmt.Errorf("%w: playlist is nil", ErrInvalidArgument)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}

	items := p.Items
	if items == nil {
		items = []string{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO playlists (name, items, created_at) VALUES (?, ?, ?)`
	res, err := s.db.Exec(query, p.Name, string(itemsJSON), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to save playlist: %v", ErrPersistence, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: failed to read playlist id: %v", ErrPersistence, err)
	}
	p.ID = id
	return nil
}

func (s *SQLiteStore) ListPlaylists(limit int) ([]Playlist, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be at least 1, got %d", ErrInvalidArgument, limit)
	}

	query := `SELECT id, name, items, created_at FROM playlists ORDER BY id DESC LIMIT ?`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query playlists: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var playlists []Playlist
	for rows.Next() {
		var p Playlist
		var itemsJSON string
		if err := rows.Scan(&p.ID, &p.Name, &itemsJSON, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan playlist: %v", ErrPersistence, err)
		}
		if err := json.Unmarshal([]byte(itemsJSON), &p.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal items: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read playlists: %v", ErrPersistence, err)
	}
	return playlists, nil
}

// Configuration Implementation

func (s *SQLiteStore) SetConfig(key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidArgument)
	}
	query := `INSERT INTO configuration (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := s.db.Exec(query, key, value); err != nil {
		return fmt.Errorf("%w: failed to set config: %v", ErrPersistence, err)
	}
	return nil
}

func (s *SQLiteStore) GetConfig(key string) (string, error) {
	query := `SELECT value FROM configuration WHERE key = ?`
	row := s.db.QueryRow(query, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("%w: failed to get config: %v", ErrPersistence, err)
	}
	return value, nil
}
