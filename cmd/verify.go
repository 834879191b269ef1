package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/evolve/database"
	"github.com/ridoystarlord/evolve/diff"
	"github.com/ridoystarlord/evolve/introspect"
	"github.com/ridoystarlord/evolve/ledger"
	"github.com/ridoystarlord/evolve/schema"
	"github.com/ridoystarlord/evolve/utils"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the live database against recorded migrations",
	Long: `Introspect the live database and compare it with the state the
recorded migrations produce. Reports drift introduced outside the
migration history, such as manual DDL.

Examples:
  evolve verify
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		r, err := openRouter(ctx)
		if err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}

		m, err := r.Migrator(ctx)
		if err != nil {
			fmt.Println("❌ Verify failed:", err)
			os.Exit(1)
		}
		expected := m.Tables()

		db, err := database.Get(ctx)
		if err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}
		actual, err := introspect.Database(ctx, db.Pool(), utils.SchemaName())
		if err != nil {
			fmt.Println("❌ Introspection failed:", err)
			os.Exit(1)
		}
		actual = dropLedgerTable(actual)

		drift := diff.Many(expected, actual, false)
		if len(drift) == 0 {
			fmt.Println("✅ Database matches recorded migrations.")
			return
		}

		red := color.New(color.FgRed).SprintFunc()
		fmt.Printf("❌ Database has drifted: %d difference(s) found:\n", len(drift))
		for _, op := range drift {
			fmt.Println("   -", red(op.String()))
		}
		os.Exit(1)
	},
}

func dropLedgerTable(tables []schema.Table) []schema.Table {
	out := tables[:0]
	for _, t := range tables {
		if t.Name == ledger.TableName {
			continue
		}
		out = append(out, t)
	}
	return out
}
