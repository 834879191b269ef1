package utils

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("ℹ️  No .env file found, continuing...")
	}
}

// MigrationsDir is where numbered migration scripts live.
func MigrationsDir() string {
	if dir := os.Getenv("EVOLVE_DIR"); dir != "" {
		return dir
	}
	return "migrations"
}

// SchemaName is the optional postgres schema (namespace) to migrate.
func SchemaName() string {
	return os.Getenv("EVOLVE_SCHEMA")
}

// ModelsFile is the declarative model file diffed against history.
func ModelsFile() string {
	if f := os.Getenv("EVOLVE_MODELS"); f != "" {
		return f
	}
	return "models.yaml"
}
