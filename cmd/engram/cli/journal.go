package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/felixgeelhaar/engram/internal/store"
	"github.com/spf13/cobra"
)

var (
	journalAgent string
	journalTags  []string
	journalLimit int
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Keep free-form notes alongside the conversation log",
}

var journalAddCmd = &cobra.Command{
	Use:   "add [entry]",
	Short: "Record a journal entry",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := getStore()
		defer s.Close()

		j := &store.Journal{
			Agent: journalAgent,
			Entry: args[0],
			Tags:  journalTags,
		}
		if err := s.SaveJournal(j); err != nil {
			fmt.Printf("Failed to save journal entry: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Journal entry %d saved\n", j.ID)
	},
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recent journal entries, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		s := getStore()
		defer s.Close()

		var (
			entries []store.Journal
			err     error
		)
		if journalAgent != "" {
			entries, err = s.GetJournalsByAgent(journalAgent, journalLimit)
		} else {
			entries, err = s.ListJournals(journalLimit)
		}
		if err != nil {
			fmt.Printf("Failed to list journal entries: %v\n", err)
			os.Exit(1)
		}
		printJournals(entries)
	},
}

var journalSearchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Search journal entries and tags",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := getStore()
		defer s.Close()

		entries, err := s.SearchJournals(args[0], journalLimit)
		if err != nil {
			fmt.Printf("Failed to search journal: %v\n", err)
			os.Exit(1)
		}
		printJournals(entries)
	},
}

func printJournals(entries []store.Journal) {
	if len(entries) == 0 {
		fmt.Println("No journal entries found.")
		return
	}
	for _, j := range entries {
		fmt.Printf("[%d] %s  %s\n", j.ID, j.CreatedAt.Local().Format("2006-01-02 15:04"), j.Agent)
		fmt.Printf("  %s\n", j.Entry)
		if len(j.Tags) > 0 {
			fmt.Printf("  tags: %s\n", strings.Join(j.Tags, ", "))
		}
	}
}

func init() {
	RootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalAddCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalSearchCmd)
	journalCmd.PersistentFlags().StringVarP(&journalAgent, "agent", "a", "", "Agent the entry belongs to")
	journalCmd.PersistentFlags().IntVarP(&journalLimit, "limit", "n", 20, "How many entries to show")
	journalAddCmd.Flags().StringSliceVarP(&journalTags, "tags", "t", nil, "Comma-separated tags")
}
