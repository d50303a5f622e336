package cli

import (
	"fmt"
	"os"

	"github.com/felixgeelhaar/engram/internal/memory"
	"github.com/spf13/cobra"
)

var (
	historyLimit   int
	historyContext bool
)

var historyCmd = &cobra.Command{
	Use:   "history [agent]",
	Short: "Show an agent's recent exchanges in chronological order",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		agent := args[0]

		s := getStore()
		defer s.Close()

		if historyContext {
			f := memory.NewFormatter(s)
			block, err := f.FormatContext(agent, historyLimit)
			if err != nil {
				fmt.Printf("Failed to load history: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(block)
			return
		}

		exchanges, err := s.GetRecentExchanges(agent, historyLimit)
		if err != nil {
			fmt.Printf("Failed to load history: %v\n", err)
			os.Exit(1)
		}
		if len(exchanges) == 0 {
			fmt.Printf("No exchanges recorded for %s\n", agent)
			return
		}
		for _, ex := range exchanges {
			fmt.Printf("[%d] %s\n", ex.ID, ex.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Printf("  User: %s\n", ex.UserMessage)
			fmt.Printf("  You:  %s\n", ex.AgentResponse)
		}
	},
}

func init() {
	RootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "How many recent exchanges to show")
	historyCmd.Flags().BoolVar(&historyContext, "context", false, "Print the block exactly as agents receive it")
}
