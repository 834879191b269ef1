package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/evolve/database"
	"github.com/ridoystarlord/evolve/ledger"
	"github.com/ridoystarlord/evolve/loader"
	"github.com/ridoystarlord/evolve/router"
	"github.com/ridoystarlord/evolve/schema"
	"github.com/ridoystarlord/evolve/utils"
)

var rootCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Schema migrations with automatic diffing and reversible history",
	Long: `evolve keeps your declared schema and your database in step.

Examples:

  evolve init
  evolve create add_users --auto
  evolve migrate
  evolve rollback
`,
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}
}

// Register subcommands
func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(healthCmd)
}

// openRouter wires the shared database handle, the ledger and the migration
// directory into a ready router. Every database-facing command starts here.
func openRouter(ctx context.Context) (*router.Router, error) {
	db, err := database.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %v", err)
	}

	led := ledger.NewPostgres(db, "")
	src := router.NewFileSource(utils.MigrationsDir())

	return router.New(db, led, src,
		router.WithSchema(utils.SchemaName()),
		router.WithModels(loadModels),
	)
}

// loadModels reads declared tables from the YAML models file, falling back
// to struct tags in the models directory when no YAML file exists.
func loadModels() ([]schema.Table, error) {
	file := utils.ModelsFile()
	if _, err := os.Stat(file); err == nil {
		return loader.LoadModelsFromYAML(file)
	}
	if _, err := os.Stat("models"); err == nil {
		return loader.LoadModelsFromTags("models")
	}
	return nil, fmt.Errorf("no %s file and no models directory found; run 'evolve init' first", file)
}
