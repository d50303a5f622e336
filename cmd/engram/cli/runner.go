package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/engram/internal/memory"
	"github.com/felixgeelhaar/engram/internal/observe"
	"github.com/felixgeelhaar/engram/internal/provider"
	"github.com/felixgeelhaar/engram/internal/script"
	"github.com/felixgeelhaar/engram/internal/store"
	"github.com/felixgeelhaar/engram/internal/tool"
	"github.com/felixgeelhaar/engram/internal/ui"
	"github.com/google/uuid"
)

// maxToolRounds bounds how many times one turn may go back to the
// provider with tool results before we take the answer as-is.
const maxToolRounds = 4

type Runner struct {
	Observer *observe.Observer
	Store    store.Storage
	Provider provider.Provider
	Script   *script.Script
	Session  string
	UI       ui.UI
}

func NewRunner(obs *observe.Observer, s store.Storage, p provider.Provider, sc *script.Script, session string, u ui.UI) *Runner {
	if u == nil {
		u = ui.SilentUI{}
	}
	return &Runner{
		Observer: obs,
		Store:    s,
		Provider: p,
		Script:   sc,
		Session:  session,
		UI:       u,
	}
}

func (r *Runner) Run(ctx context.Context) error {
	ctx, span := r.Observer.StartSpan(ctx, "DemoRun")
	defer span.End()

	r.UI.UpdateStatus("Starting demo...")
	r.Observer.Log().Info().Str("provider", r.Provider.Name()).Msg("Engram: conversational memory demo")

	validation := r.Script.Validate()
	for _, w := range validation.Warnings {
		r.Observer.Log().Warn().Str("warning", w).Msg("script lint")
	}
	if !validation.Valid {
		r.Observer.Log().Error().Str("errors", strings.Join(validation.Errors, ", ")).Msg("Invalid script")
		return fmt.Errorf("invalid script")
	}

	if r.Session == "" {
		r.Session = r.Script.Session
	}
	if r.Session == "" {
		r.Session = uuid.NewString()
	}
	r.Observer.Log().Info().Str("session", r.Session).Int("turns", len(r.Script.Turns)).Msg("starting demo run")

	// One registry per agent: the memory tool is bound to its agent at
	// construction, so an agent can only ever read its own history.
	formatter := memory.NewFormatter(r.Store)
	registries := make(map[string]*tool.Registry, len(r.Script.Agents))
	for _, a := range r.Script.Agents {
		reg := tool.NewRegistry()
		mem := tool.NewMemory(a.Name, formatter)
		if err := reg.Register(mem.Definition(), mem.Executor()); err != nil {
			return err
		}
		registries[a.Name] = reg
	}

	r.UI.UpdateStatus("Running turns...")
	for i, turn := range r.Script.Turns {
		r.UI.UpdateTurn(i + 1)
		r.UI.Log(fmt.Sprintf("[%s] User: %s", turn.Agent, turn.Message))

		reply, usage, err := r.runTurn(ctx, i+1, turn, registries[turn.Agent])
		if err != nil {
			r.UI.UpdateStatus("Run failed")
			return err
		}

		ex := &store.Exchange{
			Agent:         turn.Agent,
			UserMessage:   turn.Message,
			AgentResponse: reply,
			SessionID:     r.Session,
		}
		if err := r.Store.SaveExchange(ex); err != nil {
			r.Observer.Log().Error().Err(err).Msg("Failed to save exchange")
			r.UI.UpdateStatus("Run failed")
			return err
		}

		r.UI.Log(fmt.Sprintf("[%s] Agent: %s", turn.Agent, reply))
		r.Observer.Log().Info().
			Str("agent", turn.Agent).
			Int("turn", i+1).
			Int("tokens", usage.TotalTokens).
			Msg("turn complete")
	}

	r.UI.UpdateStatus("Completed")
	fmt.Println("Demo run complete.")
	return nil
}

// runTurn drives one scripted message through the provider, executing
// any memory reads it asks for along the way. Each turn starts a fresh
// conversation: continuity comes only from what the agent reads back
// out of the store.
func (r *Runner) runTurn(ctx context.Context, n int, turn script.Turn, reg *tool.Registry) (string, provider.Usage, error) {
	ctx, span := r.Observer.StartTurnSpan(ctx, turn.Agent, n)
	defer span.End()

	turnLog := r.Observer.Log().With().Str("agent", turn.Agent).Logger()

	content := turn.Message
	if persona := r.Script.Persona(turn.Agent); persona != "" {
		content = persona + "\n\n" + turn.Message
	}

	history := []provider.Message{{Role: "user", Content: content}}
	specs := reg.Specs()

	var total provider.Usage
	for round := 0; ; round++ {
		resp, err := r.Provider.Chat(ctx, history, specs)
		if err != nil {
			turnLog.Error().Int("turn", n).Err(err).Msg("provider call failed")
			return "", total, err
		}

		total.PromptTokens += resp.Usage.PromptTokens
		total.CompletionTokens += resp.Usage.CompletionTokens
		total.TotalTokens += resp.Usage.TotalTokens

		if len(resp.ToolCalls) == 0 || round >= maxToolRounds {
			return resp.Content, total, nil
		}

		history = append(history, provider.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			r.UI.Log(fmt.Sprintf("[%s] Tool: %s", turn.Agent, call.Name))
			out, err := reg.Execute(ctx, call)
			if err != nil {
				// The model sees the failure and answers without it.
				turnLog.Warn().Str("tool", call.Name).Err(err).Msg("tool call failed")
				out = fmt.Sprintf("tool error: %v", err)
			}
			history = append(history, provider.Message{
				Role:       "tool",
				Content:    out,
				ToolCallID: call.ID,
			})
		}
	}
}
