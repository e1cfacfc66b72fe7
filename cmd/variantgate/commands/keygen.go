package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anatolev-dev/variantgate/internal/auth"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an admin API key",
	Long: `Generate a new admin API key and its bcrypt hash.

Configure the hash on the server (ADMIN_API_KEY_HASH) and keep the
plain key for clients. The plain key is shown only once.

Example:
  variantgate keygen`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := auth.GenerateAPIKey()
		if err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}

		hash, err := auth.HashAPIKey(key)
		if err != nil {
			return fmt.Errorf("failed to hash key: %w", err)
		}

		if quiet {
			fmt.Println(key)
			return nil
		}

		fmt.Printf("API key:  %s\n", key)
		fmt.Printf("Key hash: %s\n", hash)
		fmt.Println("\nSet ADMIN_API_KEY_HASH to the hash on the server and store the key securely.")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
