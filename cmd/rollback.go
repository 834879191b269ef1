package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var steps int

func init() {
	rollbackCmd.Flags().IntVarP(&steps, "steps", "s", 1, "Number of migrations to rollback")
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback migrations",
	Long: `Rollback the last applied migration, or several, newest first.

Examples:
  evolve rollback            # Rollback the last migration
  evolve rollback --steps=3  # Rollback the last 3 migrations
  evolve rollback -s 5       # Rollback the last 5 migrations
`,
	Run: func(cmd *cobra.Command, args []string) {
		if steps < 1 {
			fmt.Println("❌ Steps must be at least 1")
			os.Exit(1)
		}

		ctx := context.Background()
		r, err := openRouter(ctx)
		if err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}

		rolled := 0
		for i := 0; i < steps; i++ {
			done, err := r.Done(ctx)
			if err != nil {
				fmt.Println("❌ Rollback failed:", err)
				os.Exit(1)
			}
			if len(done) == 0 {
				break
			}
			last := done[len(done)-1]
			if err := r.Rollback(ctx, last); err != nil {
				fmt.Println("❌ Rollback failed:", err)
				os.Exit(1)
			}
			fmt.Println("✅ Rolled back:", last)
			rolled++
		}

		if rolled == 0 {
			fmt.Println("✅ No applied migrations to rollback.")
		}
	},
}
