package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/evolve/database"
	"github.com/ridoystarlord/evolve/ledger"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the applied-migrations ledger",
	Long: `Show the ledger of applied migrations with timestamps.

Examples:
  evolve history               # Show all ledger entries
  evolve history --limit 10    # Show the last 10 entries
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		db, err := database.Get(ctx)
		if err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}

		entries, err := readHistory(ctx, db, historyLimit)
		if err != nil {
			fmt.Println("❌ History error:", err)
			os.Exit(1)
		}
		if len(entries) == 0 {
			fmt.Println("🕒 No migrations have been applied yet.")
			return
		}

		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("✅ %d applied migration(s):\n", len(entries))
		for _, e := range entries {
			line := fmt.Sprintf("   %3d  %s  %s", e.ID, green(e.Name), gray(e.MigratedAt.Format("2006-01-02 15:04:05")))
			if e.Module != nil {
				line += gray("  [" + *e.Module + "]")
			}
			fmt.Println(line)
		}
	},
}

func readHistory(ctx context.Context, db *database.Postgres, limit int) ([]ledger.Entry, error) {
	query := fmt.Sprintf(`SELECT id, name, module, migrated_at FROM %q ORDER BY id;`, ledger.TableName)

	rows, err := db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %v", ledger.TableName, err)
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[ledger.Entry])
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %v", ledger.TableName, err)
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Show only the last N entries")
}
