package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/evolve/validator"
)

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate declared models",
	Long: `Check declared models for problems before they become broken
migrations: invalid identifiers, duplicate columns, multiple primary keys,
dangling foreign keys, indexes over missing columns.

Examples:
  evolve validate          # Human-readable report
  evolve validate --json   # Machine-readable report
`,
	Run: func(cmd *cobra.Command, args []string) {
		models, err := loadModels()
		if err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}

		result := validator.ValidateTables(models)

		if validateJSON {
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				fmt.Println("❌ Encoding report:", err)
				os.Exit(1)
			}
			fmt.Println(string(out))
			if !result.Valid {
				os.Exit(1)
			}
			return
		}

		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		for _, e := range result.Errors {
			fmt.Printf("❌ %s: %s\n", red(location(e)), e.Message)
		}
		for _, w := range result.Warnings {
			fmt.Printf("⚠️  %s: %s\n", yellow(location(w)), w.Message)
		}

		if result.Valid {
			fmt.Printf("✅ %d table(s) validated, %d warning(s).\n", len(models), len(result.Warnings))
			return
		}
		fmt.Printf("❌ Validation failed with %d error(s).\n", len(result.Errors))
		os.Exit(1)
	},
}

func location(e validator.ValidationError) string {
	if e.Column != "" {
		return e.Table + "." + e.Column
	}
	return e.Table
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output the report as JSON")
}
