package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/ridoystarlord/evolve/database"
)

// TableName is the applied-migrations ledger stored in the target database.
const TableName = "migrate_history"

// Entry is one applied migration.
type Entry struct {
	ID         int
	Name       string
	Module     *string
	MigratedAt time.Time
}

// Ledger persists the ordered record of which migrations have been applied.
// Append and Remove take the DB handle to use so the write can join the
// transaction the migration itself runs in.
type Ledger interface {
	Ensure(ctx context.Context) error
	Done(ctx context.Context) ([]string, error)
	Append(ctx context.Context, db database.DB, name string) error
	Remove(ctx context.Context, db database.DB, name string) error
	Clear(ctx context.Context) error
}

// Postgres keeps the ledger in the migrated database itself.
type Postgres struct {
	db     database.DB
	module string
}

// NewPostgres builds a ledger over db. module is an optional label recorded
// with every entry, for repositories hosting several migration sets.
func NewPostgres(db database.DB, module string) *Postgres {
	return &Postgres{db: db, module: module}
}

func (l *Postgres) Ensure(ctx context.Context) error {
	err := l.db.Exec(ctx, fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %q (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		module TEXT,
		migrated_at TIMESTAMP NOT NULL DEFAULT now()
	);`, TableName))
	if err != nil {
		return fmt.Errorf("ensure %s table: %w", TableName, err)
	}
	return nil
}

func (l *Postgres) Done(ctx context.Context) ([]string, error) {
	names, err := l.db.QueryStrings(ctx,
		fmt.Sprintf(`SELECT name FROM %q ORDER BY id;`, TableName))
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	return names, nil
}

func (l *Postgres) Append(ctx context.Context, db database.DB, name string) error {
	var module *string
	if l.module != "" {
		module = &l.module
	}
	err := db.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %q (name, module) VALUES ($1, $2);`, TableName), name, module)
	if err != nil {
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	return nil
}

func (l *Postgres) Remove(ctx context.Context, db database.DB, name string) error {
	err := db.Exec(ctx, fmt.Sprintf(`DELETE FROM %q WHERE name = $1;`, TableName), name)
	if err != nil {
		return fmt.Errorf("remove migration record %s: %w", name, err)
	}
	return nil
}

func (l *Postgres) Clear(ctx context.Context) error {
	if err := l.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %q;`, TableName)); err != nil {
		return fmt.Errorf("clear migration records: %w", err)
	}
	return nil
}

// Memory is an in-process ledger for tests and ephemeral runs.
type Memory struct {
	Names []string
}

func (l *Memory) Ensure(ctx context.Context) error { return nil }

func (l *Memory) Done(ctx context.Context) ([]string, error) {
	return append([]string(nil), l.Names...), nil
}

func (l *Memory) Append(ctx context.Context, _ database.DB, name string) error {
	l.Names = append(l.Names, name)
	return nil
}

func (l *Memory) Remove(ctx context.Context, _ database.DB, name string) error {
	for i, n := range l.Names {
		if n == name {
			l.Names = append(l.Names[:i], l.Names[i+1:]...)
			return nil
		}
	}
	return nil
}

func (l *Memory) Clear(ctx context.Context) error {
	l.Names = nil
	return nil
}
