package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/felixgeelhaar/engram/internal/observe"
	"github.com/felixgeelhaar/engram/internal/provider"
	"github.com/felixgeelhaar/engram/internal/script"
	"github.com/felixgeelhaar/engram/internal/ui"
	"github.com/felixgeelhaar/engram/internal/ui/tui"
	"github.com/spf13/cobra"
)

var (
	scriptPath   string
	verbose      bool
	providerType string
	modelName    string
	ciMode       bool
	interactive  bool
	sessionTag   string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "engram",
	Short: "Short-term memory for conversational agents",
	Long: `Engram records every user/agent exchange per agent and hands the model a
get_memory tool, so an agent can read its own recent history back before
answering instead of starting cold each turn.`,
}

var demoCmd = &cobra.Command{
	Use:   "demo [script-file]",
	Short: "Run a scripted multi-agent conversation against the memory store",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			scriptPath = args[0]
		}
		runDemo()
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.AddCommand(demoCmd)
	demoCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	demoCmd.Flags().StringVarP(&providerType, "provider", "p", "stub", "AI Provider (stub, ollama, openai, gemini, anthropic)")
	demoCmd.Flags().StringVarP(&modelName, "model", "m", "", "Model name (default depends on provider)")
	demoCmd.Flags().BoolVar(&ciMode, "ci", false, "CI mode: JSON output, non-interactive")
	demoCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Watch the run in a TUI")
	demoCmd.Flags().StringVar(&sessionTag, "session", "", "Session tag for saved exchanges (default: script's tag or a fresh id)")
}

func runDemo() {
	// Initialize Observer
	var obs *observe.Observer
	if ciMode {
		obs = observe.NewJSON(os.Stdout, verbose)
	} else {
		obs = observe.New(os.Stdout, verbose)
	}
	defer obs.Close()

	// Initialize Store
	storeLayer, err := openStore()
	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Failed to init store")
	}
	defer storeLayer.Close()

	// Load Script
	var sc *script.Script
	if scriptPath == "" {
		sc = script.Default()
	} else {
		sc, err = script.Load(scriptPath)
		if err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to load script")
		}
	}

	// Initialize Provider
	var p provider.Provider
	var pErr error

	switch providerType {
	case "stub":
		stub := provider.NewStubProvider()
		if interactive && !ciMode {
			// Instant replies make the TUI flash past; slow the stub
			// down enough to watch.
			stub.Latency = 400 * time.Millisecond
		}
		p = stub
	case "openai":
		apiKey := resolveAPIKey(storeLayer, "OPENAI_API_KEY", "openai.api_key")
		baseURL, _ := storeLayer.GetConfig("openai.base_url")
		p, pErr = provider.NewOpenAIProvider(apiKey, baseURL, modelName)
	case "ollama":
		p, pErr = provider.NewOllamaProvider(modelName)
	case "gemini":
		apiKey := resolveAPIKey(storeLayer, "GEMINI_API_KEY", "gemini.api_key")
		p, pErr = provider.NewGeminiProvider(apiKey, modelName)
	case "anthropic":
		apiKey := resolveAPIKey(storeLayer, "ANTHROPIC_API_KEY", "anthropic.api_key")
		p, pErr = provider.NewAnthropicProvider(apiKey, modelName)
	default:
		obs.Log().Fatal().Str("provider", providerType).Msg("Unknown provider")
	}

	if pErr != nil {
		obs.Log().Fatal().Err(pErr).Msg("Failed to initialize provider")
	}

	var u ui.UI
	if interactive && !ciMode {
		model := tui.NewModel("Engram demo", len(sc.Turns))
		program := tea.NewProgram(model)
		u = tui.NewTUI(program)

		go func() {
			runner := NewRunner(obs, storeLayer, p, sc, sessionTag, u)
			_ = runner.Run(context.Background())
			program.Quit()
		}()

		if _, err := program.Run(); err != nil {
			fmt.Printf("Alas, there's been an error: %v", err)
			os.Exit(1)
		}
	} else {
		runner := NewRunner(obs, storeLayer, p, sc, sessionTag, nil)
		if err := runner.Run(context.Background()); err != nil {
			os.Exit(1)
		}
	}
}
