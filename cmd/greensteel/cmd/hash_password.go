package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/greensteel/gateway/internal/domain/account"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Hash a password for seeding accounts",
	Long: `Hash a password with Argon2id in the PHC string format used by
the account store. Useful for seeding accounts directly in SQLite.

Example:
  greensteel hash-password "my-secret-password"
  # Output: $argon2id$v=19$m=48128,t=1,p=1$...

Security note: The password will appear in shell history.
Consider clearing history after use or using an environment variable:
  greensteel hash-password "$MY_PASSWORD"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := account.HashPassword(args[0])
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}
