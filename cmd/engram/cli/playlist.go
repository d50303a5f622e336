package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/felixgeelhaar/engram/internal/store"
	"github.com/spf13/cobra"
)

var playlistLimit int

var playlistCmd = &cobra.Command{
	Use:   "playlist",
	Short: "Manage saved playlists",
}

var playlistSaveCmd = &cobra.Command{
	Use:   "save [name] [items...]",
	Short: "Save a named playlist",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := getStore()
		defer s.Close()

		p := &store.Playlist{
			Name:  args[0],
			Items: args[1:],
		}
		if err := s.SavePlaylist(p); err != nil {
			fmt.Printf("Failed to save playlist: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Playlist %q saved with %d items\n", p.Name, len(p.Items))
	},
}

var playlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show saved playlists, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		s := getStore()
		defer s.Close()

		playlists, err := s.ListPlaylists(playlistLimit)
		if err != nil {
			fmt.Printf("Failed to list playlists: %v\n", err)
			os.Exit(1)
		}
		if len(playlists) == 0 {
			fmt.Println("No playlists saved yet.")
			return
		}
		for _, p := range playlists {
			fmt.Printf("[%d] %s  (%d items)\n", p.ID, p.Name, len(p.Items))
			if len(p.Items) > 0 {
				fmt.Printf("  %s\n", strings.Join(p.Items, ", "))
			}
		}
	},
}

func init() {
	RootCmd.AddCommand(playlistCmd)
	playlistCmd.AddCommand(playlistSaveCmd)
	playlistCmd.AddCommand(playlistListCmd)
	playlistCmd.PersistentFlags().IntVarP(&playlistLimit, "limit", "n", 20, "How many playlists to show")
}
