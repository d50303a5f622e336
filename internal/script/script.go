package script

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxTurns bounds a single demo run; longer scripts still load but
// trigger a warning so runaway files are caught early.
const MaxTurns = 50

// Script is a scripted multi-agent conversation for a demo run.
type Script struct {
	Name    string  `json:"name" yaml:"name"`
	Session string  `json:"session" yaml:"session"` // optional; a fresh id is generated when empty
	Agents  []Agent `json:"agents" yaml:"agents"`
	Turns   []Turn  `json:"turns" yaml:"turns"`
}

// Agent names a conversational identity and the persona prepended to
// each message sent on its behalf.
type Agent struct {
	Name    string `json:"name" yaml:"name"`
	Persona string `json:"persona" yaml:"persona"`
}

// Turn is one user message addressed to one agent.
type Turn struct {
	Agent   string `json:"agent" yaml:"agent"`
	Message string `json:"message" yaml:"message"`
}

// ValidationResult represents the outcome of a linting pass.
type ValidationResult struct {
	Valid    bool
	Warnings []string
	Errors   []string
}

// Load reads a demo script from a file (JSON or YAML).
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}

	var s Script
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal JSON script: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML script: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported script format: %s (use .json or .yaml)", ext)
	}

	return &s, nil
}

// Validate checks the script for completeness and quality.
func (s *Script) Validate() ValidationResult {
	res := ValidationResult{
		Valid:    true,
		Warnings: []string{},
		Errors:   []string{},
	}

	if s.Name == "" {
		res.Warnings = append(res.Warnings, "Script has no name")
	}

	if len(s.Agents) == 0 {
		res.Valid = false
		res.Errors = append(res.Errors, "At least one agent is required")
	}

	known := make(map[string]bool, len(s.Agents))
	for _, a := range s.Agents {
		if a.Name == "" {
			res.Valid = false
			res.Errors = append(res.Errors, "Agent name is required")
			continue
		}
		if known[a.Name] {
			res.Valid = false
			res.Errors = append(res.Errors, fmt.Sprintf("Duplicate agent %q", a.Name))
		}
		known[a.Name] = true
		if a.Persona == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Agent %q has no persona", a.Name))
		}
	}

	if len(s.Turns) == 0 {
		res.Valid = false
		res.Errors = append(res.Errors, "At least one turn is required")
	}
	if len(s.Turns) > MaxTurns {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Script has %d turns; runs are budgeted for %d", len(s.Turns), MaxTurns))
	}

	for i, turn := range s.Turns {
		if turn.Agent == "" || turn.Message == "" {
			res.Valid = false
			res.Errors = append(res.Errors, fmt.Sprintf("Turn %d needs an agent and a message", i+1))
			continue
		}
		if len(known) > 0 && !known[turn.Agent] {
			res.Valid = false
			res.Errors = append(res.Errors, fmt.Sprintf("Turn %d references unknown agent %q", i+1, turn.Agent))
		}
	}

	return res
}

// Persona returns the persona for an agent, or "" if none is defined.
func (s *Script) Persona(agent string) string {
	for _, a := range s.Agents {
		if a.Name == agent {
			return a.Persona
		}
	}
	return ""
}

// Default returns the built-in demo: a content creator fielding
// follow-up requests that only make sense if memory works, then a
// second agent showing that histories stay separate.
func Default() *Script {
	return &Script{
		Name:    "memory-demo",
		Session: "demo-session",
		Agents: []Agent{
			{
				Name:    "content_creator",
				Persona: "You are a content assistant with memory of recent conversations. You help with captions, playlists and short scripts, and you keep the user's earlier style preferences in mind.",
			},
			{
				Name:    "learning_coach",
				Persona: "You are a patient learning coach with memory of recent conversations. You suggest study plans and quiz ideas, building on what was already covered.",
			},
		},
		Turns: []Turn{
			{Agent: "content_creator", Message: "Create a caption for a video about learning Python"},
			{Agent: "content_creator", Message: "Make it more professional"},
			{Agent: "content_creator", Message: "Now create a playlist for coding sessions"},
			{Agent: "learning_coach", Message: "Help me plan a study schedule for Go"},
			{Agent: "learning_coach", Message: "Add a weekly quiz to that plan"},
		},
	}
}
