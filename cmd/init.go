package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/evolve/utils"
)

var initStructs bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new evolve project",
	Long: `Initialize a new evolve project with a models file and a migrations directory.

Default: a YAML models file
- Declarative table definitions, easy to review in version control

Alternative: Go structs with evolve tags (--structs)
- Type-safe, IDE-friendly schema definition

Examples:
  evolve init             # Initialize with a YAML models file
  evolve init --structs   # Initialize with Go struct models`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := os.MkdirAll(utils.MigrationsDir(), 0755); err != nil {
			fmt.Println("❌ Failed to create migrations directory:", err)
			os.Exit(1)
		}

		if initStructs {
			initStructModels()
			return
		}

		file := utils.ModelsFile()
		if _, err := os.Stat(file); err == nil {
			fmt.Printf("❌ %s already exists!\n", file)
			return
		}

		content := `# Declared tables. Run 'evolve create --auto' after editing.
tables:
  - name: users
    columns:
      - name: id
        type: serial
        primary: true
      - name: email
        type: text
        unique: true
        not_null: true
      - name: name
        type: text
        not_null: true
        index: true
      - name: status
        type: text
        default: active
      - name: created_at
        type: timestamp
        default: now()

  - name: posts
    columns:
      - name: id
        type: serial
        primary: true
      - name: title
        type: text
        not_null: true
      - name: user_id
        type: integer
        fk:
          references: users.id
          on_delete: CASCADE
      - name: created_at
        type: timestamp
        default: now()
    indexes:
      - columns: [user_id, created_at]
`
		if err := os.WriteFile(file, []byte(content), 0644); err != nil {
			fmt.Printf("❌ Error creating %s: %v\n", file, err)
			os.Exit(1)
		}
		fmt.Printf("✅ Created %s example file.\n", file)
		fmt.Printf("📝 Edit %s to declare your tables\n", file)
		fmt.Println("🚀 Run 'evolve create --auto' to record your first migration")
	},
}

func initStructModels() {
	if _, err := os.Stat("models"); err == nil {
		fmt.Println("❌ models directory already exists!")
		return
	}
	if err := os.MkdirAll("models", 0755); err != nil {
		fmt.Println("❌ Failed to create models directory:", err)
		os.Exit(1)
	}

	content := `package models

import "time"

// User is an example model. Field tags declare the column definition.
type User struct {
	ID        int       ` + "`evolve:\"primary;type:serial\"`" + `
	Email     string    ` + "`evolve:\"unique;not_null\"`" + `
	Name      string    ` + "`evolve:\"not_null;index\"`" + `
	Status    string    ` + "`evolve:\"default:active\"`" + `
	CreatedAt time.Time ` + "`evolve:\"default:now()\"`" + `
}

// Post references users via a foreign key tag.
type Post struct {
	ID        int       ` + "`evolve:\"primary;type:serial\"`" + `
	Title     string    ` + "`evolve:\"not_null\"`" + `
	UserID    int       ` + "`evolve:\"fk:users.id:CASCADE\"`" + `
	CreatedAt time.Time ` + "`evolve:\"default:now()\"`" + `
}
`
	if err := os.WriteFile("models/models.go", []byte(content), 0644); err != nil {
		fmt.Println("❌ Failed to create models/models.go:", err)
		os.Exit(1)
	}

	fmt.Println("✅ Models directory created successfully!")
	fmt.Println("📝 Edit the structs in models/models.go to declare your tables")
	fmt.Println("🚀 Run 'evolve create --auto' to record your first migration")
}

func init() {
	initCmd.Flags().BoolVar(&initStructs, "structs", false, "Use Go struct models instead of a YAML file")
}
