package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/evolve/router"
)

var createEmpty bool

var createCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Record a new migration from model changes",
	Long: `Compare declared models against the state the recorded migrations
produce, and write the difference as a new migration script with its rollback.

Examples:
  evolve create                  # Auto-named migration from model changes
  evolve create add_user_email   # Named migration from model changes
  evolve create scaffold --empty # Empty script to fill in by hand
`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := "auto"
		if len(args) > 0 {
			name = args[0]
		}

		ctx := context.Background()
		r, err := openRouter(ctx)
		if err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}

		created, err := r.Create(ctx, name, !createEmpty)
		if errors.Is(err, router.ErrNoChanges) {
			fmt.Println("✅ No changes detected; nothing to record.")
			return
		}
		if err != nil {
			fmt.Println("❌ Create failed:", err)
			os.Exit(1)
		}
		if created == "" {
			return
		}
		fmt.Println("✅ Created migration:", created)
	},
}

func init() {
	createCmd.Flags().BoolVar(&createEmpty, "empty", false, "Write an empty script instead of diffing models")
}
