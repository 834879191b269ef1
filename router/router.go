package router

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ridoystarlord/evolve/database"
	"github.com/ridoystarlord/evolve/diff"
	"github.com/ridoystarlord/evolve/ledger"
	"github.com/ridoystarlord/evolve/migrator"
	"github.com/ridoystarlord/evolve/schema"
)

// ModelsFunc supplies the live model declarations auto-create diffs against
// the replayed history. How models are declared is the caller's business.
type ModelsFunc func() ([]schema.Table, error)

// Router drives the migration lifecycle: it maps the source's scripts onto
// the ledger (todo/done/diff), reconstructs current schema state by fake
// replay, and applies or rolls back migrations one transaction at a time.
type Router struct {
	db     database.DB
	ledger ledger.Ledger
	source Source
	schema string
	ignore map[string]bool
	models ModelsFunc
	logger *log.Logger

	ensured bool
}

type Option func(*Router)

// WithSchema selects a postgres schema (namespace); it is re-selected before
// DDL every time a migration runs.
func WithSchema(name string) Option {
	return func(r *Router) { r.schema = name }
}

// WithModels wires the model-declaration capability used by auto-create.
func WithModels(fn ModelsFunc) Option {
	return func(r *Router) { r.models = fn }
}

// WithIgnore excludes tables from auto-create diffs (the ledger's own table,
// externally managed tables).
func WithIgnore(tables ...string) Option {
	return func(r *Router) {
		for _, t := range tables {
			r.ignore[t] = true
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(r *Router) { r.logger = l }
}

func New(db database.DB, led ledger.Ledger, src Source, opts ...Option) (*Router, error) {
	if db == nil || led == nil || src == nil {
		return nil, ErrInvalidDatabase
	}
	r := &Router{
		db:     db,
		ledger: led,
		source: src,
		ignore: map[string]bool{},
		logger: log.New(os.Stderr, "", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Todo lists migrations known to the source, in sequence order.
func (r *Router) Todo() ([]string, error) {
	return r.source.Todo()
}

// Done lists applied migrations from the ledger, in applied order.
func (r *Router) Done(ctx context.Context) ([]string, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	return r.ledger.Done(ctx)
}

// Diff lists migrations on disk but not in the ledger, preserving the
// source's ordering.
func (r *Router) Diff(ctx context.Context) ([]string, error) {
	todo, err := r.Todo()
	if err != nil {
		return nil, err
	}
	done, err := r.Done(ctx)
	if err != nil {
		return nil, err
	}
	applied := map[string]bool{}
	for _, name := range done {
		applied[name] = true
	}
	var pending []string
	for _, name := range todo {
		if !applied[name] {
			pending = append(pending, name)
		}
	}
	return pending, nil
}

// Migrator replays every applied migration in fake mode against a fresh
// migrator, reconstructing the current registry from history without issuing
// any DDL. Each call builds its own instance; registries are never shared
// across independent computations.
func (r *Router) Migrator(ctx context.Context) (*migrator.Migrator, error) {
	m := migrator.New(r.db, r.schema)
	done, err := r.Done(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range done {
		if err := r.RunOne(ctx, name, m, true, false, false); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Create writes a new numbered migration. With auto set it loads the model
// declarations, replays history (applied and pending) to reconstruct state,
// and renders the forward and reverse diff; otherwise the script is empty,
// to be filled in by hand. Returns ErrNoChanges when an auto diff is empty.
func (r *Router) Create(ctx context.Context, name string, auto bool) (string, error) {
	var forward, reverse []diff.Operation
	if auto {
		if r.models == nil {
			r.logger.Println("Can't load models: no model source configured")
			return "", nil
		}
		models, err := r.models()
		if err != nil {
			r.logger.Printf("Can't load models: %v", err)
			return "", nil
		}
		models = r.filterIgnored(models)

		m, err := r.Migrator(ctx)
		if err != nil {
			return "", err
		}
		pending, err := r.Diff(ctx)
		if err != nil {
			return "", err
		}
		for _, mig := range pending {
			if err := r.RunOne(ctx, mig, m, true, false, false); err != nil {
				return "", err
			}
		}

		forward = diff.Many(models, m.Tables(), false)
		if len(forward) == 0 {
			r.logger.Println("No changes found.")
			return "", ErrNoChanges
		}
		reverse = diff.Many(models, m.Tables(), true)
	}

	r.logger.Printf("Creating migration %q", name)
	created, err := r.source.Compile(name, forward, reverse, -1)
	if err != nil {
		return "", err
	}
	r.logger.Printf("Migration has been created as %q", created)
	return created, nil
}

// Run applies every pending migration in order, stopping after target if one
// is named. With fake set, state is replayed without real DDL but ledger
// rows are still written. Returns the names applied.
func (r *Router) Run(ctx context.Context, target string, fake bool) ([]string, error) {
	r.logger.Println("Starting migrations")

	pending, err := r.Diff(ctx)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		r.logger.Println("There is nothing to migrate")
		return nil, nil
	}

	m, err := r.Migrator(ctx)
	if err != nil {
		return nil, err
	}
	var applied []string
	for _, name := range pending {
		if err := r.RunOne(ctx, name, m, fake, false, fake); err != nil {
			return applied, err
		}
		applied = append(applied, name)
		if target != "" && target == name {
			break
		}
	}
	return applied, nil
}

// PendingSQL is the DDL one pending migration would execute.
type PendingSQL struct {
	Name       string
	Statements []string
}

// Preview renders the DDL every pending migration would run, in order,
// without touching the database.
func (r *Router) Preview(ctx context.Context) ([]PendingSQL, error) {
	pending, err := r.Diff(ctx)
	if err != nil {
		return nil, err
	}
	m, err := r.Migrator(ctx)
	if err != nil {
		return nil, err
	}

	var out []PendingSQL
	for _, name := range pending {
		mig, err := r.source.Read(name)
		if err != nil {
			return nil, err
		}
		if mig.Migrate != nil {
			if err := mig.Migrate(ctx, m, r.db, true); err != nil {
				return nil, fmt.Errorf("previewing %s: %w", name, err)
			}
		}
		out = append(out, PendingSQL{Name: name, Statements: m.Pending()})
		m.Clean()
	}
	return out, nil
}

// RunOne executes exactly one migration against the given migrator. In fake
// mode the procedure runs, the registry mutates, and the queue is discarded
// without reaching the database; force additionally writes the ledger row.
// A real run wraps the procedure, its DDL and the ledger write in one
// transaction: any failure rolls the whole transaction back and propagates
// after logging. downgrade selects the rollback procedure.
func (r *Router) RunOne(ctx context.Context, name string, m *migrator.Migrator, fake, downgrade, force bool) error {
	mig, err := r.source.Read(name)
	if err != nil {
		return err
	}

	if fake {
		if mig.Migrate != nil {
			if err := mig.Migrate(ctx, m, r.db, true); err != nil {
				return fmt.Errorf("fake replay of %s: %w", name, err)
			}
		}
		if force {
			if err := r.ensure(ctx); err != nil {
				return err
			}
			if err := r.ledger.Append(ctx, r.db, name); err != nil {
				return err
			}
			r.logger.Printf("Done %s", name)
		}
		m.Clean()
		return nil
	}

	if err := r.ensure(ctx); err != nil {
		return err
	}
	err = r.db.Transaction(ctx, func(tx database.DB) error {
		bound := m.Bind(tx)
		if !downgrade {
			r.logger.Printf("Migrate %q", name)
			if mig.Migrate != nil {
				if err := mig.Migrate(ctx, bound, tx, false); err != nil {
					return err
				}
			}
			if err := bound.Run(ctx); err != nil {
				return err
			}
			if err := r.ledger.Append(ctx, tx, name); err != nil {
				return err
			}
		} else {
			r.logger.Printf("Rolling back %s", name)
			if mig.Rollback != nil {
				if err := mig.Rollback(ctx, bound, tx, false); err != nil {
					return err
				}
			}
			if err := bound.Run(ctx); err != nil {
				return err
			}
			if err := r.ledger.Remove(ctx, tx, name); err != nil {
				return err
			}
		}
		r.logger.Printf("Done %s", name)
		return nil
	})
	if err != nil {
		tag := "Migration"
		if downgrade {
			tag = "Rollback"
		}
		r.logger.Printf("%s failed: %s: %v", tag, name, err)
		return fmt.Errorf("%s %s: %w", strings.ToLower(tag), name, err)
	}
	return nil
}

// Rollback reverses the most recently applied migration. Anything else is
// refused with ErrNotLastMigration and the ledger is left unchanged.
func (r *Router) Rollback(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	done, err := r.Done(ctx)
	if err != nil {
		return err
	}
	if len(done) == 0 {
		return ErrNoMigrations
	}
	if name != done[len(done)-1] {
		return fmt.Errorf("%w: %s is not the last applied migration", ErrNotLastMigration, name)
	}

	m, err := r.Migrator(ctx)
	if err != nil {
		return err
	}
	if err := r.RunOne(ctx, name, m, false, true, false); err != nil {
		return err
	}
	r.logger.Printf("Downgraded migration: %s", name)
	return nil
}

// Merge collapses the whole migration set into a single new migration that
// recreates the current registry, deletes the old scripts and leaves exactly
// one ledger row. The merged rollback drops everything; history before the
// merge is not recoverable.
func (r *Router) Merge(ctx context.Context, name string) error {
	if name == "" {
		name = "initial"
	}
	current, err := r.Migrator(ctx)
	if err != nil {
		return err
	}
	tables := current.Tables()

	forward := diff.Many(tables, nil, false)
	if len(forward) == 0 {
		r.logger.Println("Can't merge migrations")
		return ErrNoChanges
	}
	reverse := diff.Many(nil, tables, false)

	if err := r.Clear(ctx); err != nil {
		return err
	}

	r.logger.Printf("Merge migrations into %q", name)
	created, err := r.source.Compile(name, forward, reverse, 0)
	if err != nil {
		return err
	}
	fresh := migrator.New(r.db, r.schema)
	if err := r.RunOne(ctx, created, fresh, true, false, true); err != nil {
		return err
	}
	r.logger.Printf("Migrations have been merged into %q", created)
	return nil
}

// Clear deletes every ledger row and every script the source holds.
// Destructive; used by merge and tests.
func (r *Router) Clear(ctx context.Context) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}
	if err := r.ledger.Clear(ctx); err != nil {
		return err
	}
	return r.source.Clear()
}

func (r *Router) ensure(ctx context.Context) error {
	if r.ensured {
		return nil
	}
	if err := r.ledger.Ensure(ctx); err != nil {
		return err
	}
	r.ensured = true
	return nil
}

func (r *Router) filterIgnored(models []schema.Table) []schema.Table {
	if len(r.ignore) == 0 {
		return models
	}
	kept := models[:0]
	for _, t := range models {
		if !r.ignore[t.Name] {
			kept = append(kept, t)
		}
	}
	return kept
}
