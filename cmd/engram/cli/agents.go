package cli

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents [pattern]",
	Short: "List agents with recorded history",
	Long: `Lists every agent that has exchanges on file, with a count and the time
of its last activity. An optional glob pattern filters the names, e.g.
"content_*" or "*coach".`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pattern := ""
		if len(args) > 0 {
			pattern = args[0]
		}

		s := getStore()
		defer s.Close()

		stats, err := s.ListAgents()
		if err != nil {
			fmt.Printf("Failed to list agents: %v\n", err)
			os.Exit(1)
		}

		shown := 0
		for _, stat := range stats {
			if pattern != "" {
				match, err := doublestar.Match(pattern, stat.Agent)
				if err != nil {
					fmt.Printf("Bad pattern: %v\n", err)
					os.Exit(1)
				}
				if !match {
					continue
				}
			}
			fmt.Printf("%-24s %4d exchanges  last active %s\n",
				stat.Agent, stat.Exchanges, stat.LastActive.Local().Format("2006-01-02 15:04"))
			shown++
		}
		if shown == 0 {
			fmt.Println("No agents recorded yet.")
		}
	},
}

func init() {
	RootCmd.AddCommand(agentsCmd)
}
