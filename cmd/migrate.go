package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	migrateFake   bool
	migrateTo     string
	dryRunMigrate bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	Long: `Apply every pending migration in order.

Examples:
  evolve migrate                   # Apply everything pending
  evolve migrate --to 003_tags     # Stop after the named migration
  evolve migrate --fake            # Mark as applied without running DDL
  evolve migrate --dry-run         # Print the SQL without executing it
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		r, err := openRouter(ctx)
		if err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}

		if dryRunMigrate {
			preview, err := r.Preview(ctx)
			if err != nil {
				fmt.Println("❌ Dry run failed:", err)
				os.Exit(1)
			}
			if len(preview) == 0 {
				fmt.Println("✅ Nothing to migrate.")
				return
			}
			for _, p := range preview {
				fmt.Printf("-- %s\n", p.Name)
				for _, stmt := range p.Statements {
					fmt.Println(stmt)
				}
			}
			return
		}

		applied, err := r.Run(ctx, migrateTo, migrateFake)
		if err != nil {
			fmt.Println("❌ Migration failed:", err)
			os.Exit(1)
		}
		if len(applied) == 0 {
			fmt.Println("✅ Nothing to migrate.")
			return
		}
		for _, name := range applied {
			fmt.Println("✅ Applied:", name)
		}
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateFake, "fake", false, "Replay state and record history without executing DDL")
	migrateCmd.Flags().StringVar(&migrateTo, "to", "", "Stop after the named migration")
	migrateCmd.Flags().BoolVar(&dryRunMigrate, "dry-run", false, "Preview the SQL that would be executed without applying migrations")
}
