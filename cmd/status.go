package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		r, err := openRouter(ctx)
		if err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}

		done, err := r.Done(ctx)
		if err != nil {
			fmt.Println("❌ Status error:", err)
			os.Exit(1)
		}
		pending, err := r.Diff(ctx)
		if err != nil {
			fmt.Println("❌ Status error:", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		fmt.Println("✅ Applied migrations:")
		if len(done) == 0 {
			fmt.Println("   (none)")
		}
		for _, name := range done {
			fmt.Println("   -", green(name))
		}

		fmt.Println("\n🕒 Pending migrations:")
		if len(pending) == 0 {
			fmt.Println("   (none)")
		}
		for _, name := range pending {
			fmt.Println("   -", yellow(name))
		}
	},
}
