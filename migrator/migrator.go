package migrator

import (
	"context"
	"fmt"
	"sort"

	"github.com/ridoystarlord/evolve/database"
	"github.com/ridoystarlord/evolve/diff"
	"github.com/ridoystarlord/evolve/generator"
	"github.com/ridoystarlord/evolve/schema"
)

// Migrator owns a live registry of table snapshots and a queue of pending
// DDL. Every mutating call updates the registry immediately and enqueues the
// matching statements, so the registry always reflects the post-operation
// schema even before Run executes. Run flushes the queue inside the bound
// connection; Clean discards it, which is how fake replay reconstructs state
// without touching the database.
type Migrator struct {
	db     database.DB
	schema string
	orm    map[string]*schema.Table
	queue  []string
}

// New creates a migrator bound to db. schemaName optionally selects a
// postgres schema; when set, every Run issues a search_path selection before
// any DDL.
func New(db database.DB, schemaName string) *Migrator {
	return &Migrator{
		db:     db,
		schema: schemaName,
		orm:    map[string]*schema.Table{},
	}
}

// Bind returns a migrator sharing this registry but executing against db,
// used to run a migration inside a transaction handle.
func (m *Migrator) Bind(db database.DB) *Migrator {
	return &Migrator{
		db:     db,
		schema: m.schema,
		orm:    m.orm,
		queue:  append([]string(nil), m.queue...),
	}
}

// Table returns the live snapshot for a table, or nil.
func (m *Migrator) Table(name string) *schema.Table {
	return m.orm[name]
}

// Tables returns a sorted deep copy of the registry.
func (m *Migrator) Tables() []schema.Table {
	names := make([]string, 0, len(m.orm))
	for name := range m.orm {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]schema.Table, 0, len(names))
	for _, name := range names {
		out = append(out, *m.orm[name].Clone())
	}
	return out
}

// Pending returns the queued statements, in enqueue order.
func (m *Migrator) Pending() []string {
	return append([]string(nil), m.queue...)
}

// Run executes all enqueued DDL in order, then clears the queue.
func (m *Migrator) Run(ctx context.Context) error {
	if len(m.queue) == 0 {
		return nil
	}
	if m.schema != "" {
		if err := m.db.Exec(ctx, fmt.Sprintf("SET search_path TO %s", m.schema)); err != nil {
			return fmt.Errorf("select schema %s: %w", m.schema, err)
		}
	}
	for _, stmt := range m.queue {
		if err := m.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute %q: %w", stmt, err)
		}
	}
	m.queue = nil
	return nil
}

// Clean discards the pending queue without executing it. The registry keeps
// its mutations.
func (m *Migrator) Clean() {
	m.queue = nil
}

// Apply dispatches operations to the matching registry mutation and enqueues
// their DDL; it is how data-form migration scripts drive the migrator.
func (m *Migrator) Apply(ops ...diff.Operation) error {
	for _, op := range ops {
		if err := m.applyRegistry(op); err != nil {
			return err
		}
		if err := m.enqueue(op); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) CreateTable(t schema.Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return m.Apply(diff.Operation{Type: diff.CreateTable, Table: t.Name, Def: t.Clone()})
}

func (m *Migrator) DropTable(name string) error {
	t, err := m.lookup(name)
	if err != nil {
		return err
	}
	return m.Apply(diff.Operation{Type: diff.DropTable, Table: name, Def: t.Clone()})
}

func (m *Migrator) AddColumns(table string, cols ...schema.Column) error {
	for _, col := range cols {
		c := col
		if err := m.Apply(diff.Operation{Type: diff.AddColumn, Table: table, Column: &c}); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) DropColumns(table string, names ...string) error {
	t, err := m.lookup(table)
	if err != nil {
		return err
	}
	for _, name := range names {
		col := t.Column(name)
		if col == nil {
			return fmt.Errorf("table %q has no column %q", table, name)
		}
		if fk := t.ForeignKeyOn(name); fk != nil {
			f := *fk
			if err := m.Apply(diff.Operation{Type: diff.DropForeignKey, Table: table, ForeignKey: &f}); err != nil {
				return err
			}
		}
		c := *col
		if err := m.Apply(diff.Operation{Type: diff.DropColumn, Table: table, Name: name, OldColumn: &c}); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFields drops columns from the registry only; no DDL is generated.
func (m *Migrator) RemoveFields(table string, names ...string) error {
	t, err := m.lookup(table)
	if err != nil {
		return err
	}
	for _, name := range names {
		removeColumn(t, name)
	}
	return nil
}

func (m *Migrator) RenameField(table, oldName, newName string) error {
	if _, err := m.lookup(table); err != nil {
		return err
	}
	return m.Apply(diff.Operation{Type: diff.RenameColumn, Table: table, Name: oldName, NewName: newName})
}

func (m *Migrator) AddNotNull(table string, columns ...string) error {
	return m.columnFlagOps(diff.AddNotNull, table, columns)
}

func (m *Migrator) DropNotNull(table string, columns ...string) error {
	return m.columnFlagOps(diff.DropNotNull, table, columns)
}

func (m *Migrator) AddDefault(table, column, value string) error {
	if _, err := m.lookup(table); err != nil {
		return err
	}
	return m.Apply(diff.Operation{Type: diff.AddDefault, Table: table, Name: column, Default: &value})
}

func (m *Migrator) DropDefault(table, column string) error {
	t, err := m.lookup(table)
	if err != nil {
		return err
	}
	var old *string
	if col := t.Column(column); col != nil {
		old = col.Default
	}
	return m.Apply(diff.Operation{Type: diff.DropDefault, Table: table, Name: column, OldDefault: old})
}

// ChangeColumns replaces column definitions, generating an explicit
// ALTER ... TYPE for each type change. Composite indexes referencing a
// changed column are no longer valid and are cleared from the registry.
func (m *Migrator) ChangeColumns(table string, cols ...schema.Column) error {
	t, err := m.lookup(table)
	if err != nil {
		return err
	}
	for _, col := range cols {
		old := t.Column(col.Name)
		if old == nil {
			return fmt.Errorf("table %q has no column %q", table, col.Name)
		}
		oc, nc := *old, col
		if err := m.Apply(diff.Operation{
			Type: diff.AlterColumnType, Table: table, Name: col.Name, Column: &nc, OldColumn: &oc,
		}); err != nil {
			return err
		}
		clearIndexesOn(t, col.Name)
	}
	return nil
}

// ChangeFields is change-columns over multiple fields; kept as the name used
// by handwritten migrations.
func (m *Migrator) ChangeFields(table string, cols ...schema.Column) error {
	return m.ChangeColumns(table, cols...)
}

func (m *Migrator) AddIndex(table string, unique bool, columns ...string) error {
	if _, err := m.lookup(table); err != nil {
		return err
	}
	return m.Apply(diff.Operation{Type: diff.AddIndex, Table: table, Columns: columns, Unique: unique})
}

func (m *Migrator) DropIndex(table string, columns ...string) error {
	t, err := m.lookup(table)
	if err != nil {
		return err
	}
	wasUnique := false
	if len(columns) == 1 {
		if col := t.Column(columns[0]); col != nil {
			wasUnique = col.Unique
		}
	} else {
		wasUnique = t.HasIndex(columns, true)
	}
	return m.Apply(diff.Operation{Type: diff.DropIndex, Table: table, Columns: columns, WasUnique: wasUnique})
}

func (m *Migrator) AddForeignKey(table string, fk schema.ForeignKey) error {
	if _, err := m.lookup(table); err != nil {
		return err
	}
	f := fk
	return m.Apply(diff.Operation{Type: diff.AddForeignKey, Table: table, ForeignKey: &f})
}

func (m *Migrator) DropForeignKey(table, column string) error {
	t, err := m.lookup(table)
	if err != nil {
		return err
	}
	fk := t.ForeignKeyOn(column)
	if fk == nil {
		return fmt.Errorf("table %q has no foreign key on %q", table, column)
	}
	f := *fk
	return m.Apply(diff.Operation{Type: diff.DropForeignKey, Table: table, ForeignKey: &f})
}

// SQL enqueues a raw statement; the registry is not touched.
func (m *Migrator) SQL(statement string) {
	m.queue = append(m.queue, statement)
}

func (m *Migrator) columnFlagOps(kind diff.OperationType, table string, columns []string) error {
	if _, err := m.lookup(table); err != nil {
		return err
	}
	for _, col := range columns {
		if err := m.Apply(diff.Operation{Type: kind, Table: table, Name: col}); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) lookup(table string) (*schema.Table, error) {
	t, ok := m.orm[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	return t, nil
}

func (m *Migrator) enqueue(op diff.Operation) error {
	stmts, err := generator.Statement(op)
	if err != nil {
		return err
	}
	m.queue = append(m.queue, stmts...)
	return nil
}
