package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/evolve/router"
)

var mergeCmd = &cobra.Command{
	Use:   "merge [name]",
	Short: "Collapse migration history into a single script",
	Long: `Replace every recorded migration with one script that recreates the
current state from scratch. The ledger is rewritten to contain just the
merged entry, marked as applied without running any DDL.

Examples:
  evolve merge            # Collapse history into 001_initial
  evolve merge baseline   # Collapse history into 001_baseline
`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := ""
		if len(args) > 0 {
			name = args[0]
		}

		ctx := context.Background()
		r, err := openRouter(ctx)
		if err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}

		if err := r.Merge(ctx, name); err != nil {
			if errors.Is(err, router.ErrNoChanges) {
				fmt.Println("✅ Nothing to merge: history is empty.")
				return
			}
			fmt.Println("❌ Merge failed:", err)
			os.Exit(1)
		}
		fmt.Println("✅ Migration history merged.")
	},
}
