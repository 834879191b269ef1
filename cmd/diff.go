package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/evolve/diff"
	"github.com/ridoystarlord/evolve/generator"
)

var diffSQL bool

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show what 'evolve create --auto' would record",
	Long: `Show the operations between your declared models and the state the
recorded migrations produce, without writing anything.

Examples:
  evolve diff         # Show operations
  evolve diff --sql   # Show the SQL the operations would generate
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		r, err := openRouter(ctx)
		if err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}

		models, err := loadModels()
		if err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}

		m, err := r.Migrator(ctx)
		if err != nil {
			fmt.Println("❌ Diff failed:", err)
			os.Exit(1)
		}
		pending, err := r.Diff(ctx)
		if err != nil {
			fmt.Println("❌ Diff failed:", err)
			os.Exit(1)
		}
		for _, name := range pending {
			if err := r.RunOne(ctx, name, m, true, false, false); err != nil {
				fmt.Println("❌ Diff failed:", err)
				os.Exit(1)
			}
		}

		ops := diff.Many(models, m.Tables(), false)
		if len(ops) == 0 {
			fmt.Println("✅ Models match recorded migrations. No changes found.")
			return
		}

		if diffSQL {
			statements, err := generator.Statements(ops)
			if err != nil {
				fmt.Println("❌ Generating SQL:", err)
				os.Exit(1)
			}
			for _, stmt := range statements {
				fmt.Println(stmt)
			}
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("🕒 %d pending change(s):\n", len(ops))
		for _, op := range ops {
			fmt.Println("   -", cyan(op.String()))
		}
	},
}

func init() {
	diffCmd.Flags().BoolVar(&diffSQL, "sql", false, "Render the changes as SQL statements")
}
