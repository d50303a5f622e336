package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/felixgeelhaar/engram/internal/secret"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		value := args[1]

		// API keys are sealed before they touch the database.
		if strings.HasSuffix(key, ".api_key") {
			keeper, err := secret.NewKeeper()
			if err != nil {
				fmt.Printf("Failed to init secret keeper: %v\n", err)
				os.Exit(1)
			}
			sealed, err := keeper.Encrypt(value)
			if err != nil {
				fmt.Printf("Failed to seal value: %v\n", err)
				os.Exit(1)
			}
			value = sealed
		}

		s := getStore()
		defer s.Close()

		if err := s.SetConfig(key, value); err != nil {
			fmt.Printf("Failed to set config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration saved: %s\n", key)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]

		s := getStore()
		defer s.Close()

		val, err := s.GetConfig(key)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		switch {
		case val == "":
			fmt.Println("(not set)")
		case strings.HasSuffix(key, ".api_key"):
			// API keys only ever print masked.
			plain := val
			if keeper, err := secret.NewKeeper(); err == nil {
				if p, derr := keeper.Decrypt(val); derr == nil {
					plain = p
				}
			}
			fmt.Println(secret.Mask(plain))
		default:
			fmt.Println(val)
		}
	},
}

func init() {
	RootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
}
