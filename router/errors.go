package router

import "errors"

var (
	// ErrInvalidDatabase is returned at construction for a nil database,
	// ledger or source handle.
	ErrInvalidDatabase = errors.New("invalid database handle")

	// ErrNoChanges reports that auto-create or merge found nothing to do.
	// Callers treat it as a warning, not a failure.
	ErrNoChanges = errors.New("no changes found")

	// ErrNoMigrations reports an empty ledger where at least one applied
	// migration was required.
	ErrNoMigrations = errors.New("no migrations are found")

	// ErrNotLastMigration refuses a rollback of anything but the most
	// recently applied migration.
	ErrNotLastMigration = errors.New("only the last migration can be rolled back")

	// ErrCompileUnsupported is returned by sources that cannot write new
	// migration scripts (module-backed collections).
	ErrCompileUnsupported = errors.New("source cannot compile migrations")

	// ErrUnknownMigration reports a name the source cannot resolve.
	ErrUnknownMigration = errors.New("unknown migration")
)
