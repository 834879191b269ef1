package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/evolve/emitter"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the schema the recorded migrations produce",
	Long: `Replay the applied migration history and print the resulting table
snapshots as declarative YAML. This is the state auto-create diffs against,
not necessarily what the live database contains (see 'evolve verify').

Examples:
  evolve schema
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
			fmt.Println("❌ Replaying history:", err)
			os.Exit(1)
		}

		tables := m.Tables()
		if len(tables) == 0 {
			fmt.Println("🕒 No tables: migration history is empty.")
			return
		}
		for i := range tables {
			out, err := emitter.Snapshot(&tables[i])
			if err != nil {
				fmt.Println("❌ Rendering snapshot:", err)
				os.Exit(1)
			}
			os.Stdout.Write(out)
		}
	},
}
