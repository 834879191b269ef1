package diff

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/evolve/schema"
)

type OperationType string

const (
	CreateTable     OperationType = "create_table"
	DropTable       OperationType = "drop_table"
	AddColumn       OperationType = "add_column"
	DropColumn      OperationType = "drop_column"
	AlterColumnType OperationType = "alter_column_type"
	RenameColumn    OperationType = "rename_column"
	AddNotNull      OperationType = "add_not_null"
	DropNotNull     OperationType = "drop_not_null"
	AddDefault      OperationType = "add_default"
	DropDefault     OperationType = "drop_default"
	AddIndex        OperationType = "add_index"
	DropIndex       OperationType = "drop_index"
	AddForeignKey   OperationType = "add_foreign_key"
	DropForeignKey  OperationType = "drop_foreign_key"
	RawSQL          OperationType = "sql"
)

// Operation is one atomic, reversible schema change. Each variant carries
// enough payload to render code, execute DDL and compute its inverse.
type Operation struct {
	Type       OperationType      `yaml:"op"`
	Table      string             `yaml:"table,omitempty"`
	Def        *schema.Table      `yaml:"def,omitempty"`         // create_table, drop_table
	Column     *schema.Column     `yaml:"column,omitempty"`      // add_column; new definition for alter_column_type
	OldColumn  *schema.Column     `yaml:"old_column,omitempty"`  // drop_column, alter_column_type
	Name       string             `yaml:"name,omitempty"`        // column name for column-level operations
	NewName    string             `yaml:"new_name,omitempty"`    // rename_column
	Default    *string            `yaml:"default,omitempty"`     // add_default
	OldDefault *string            `yaml:"old_default,omitempty"` // add_default, drop_default
	Columns    []string           `yaml:"columns,omitempty"`     // add_index, drop_index
	Unique     bool               `yaml:"unique,omitempty"`      // add_index
	WasUnique  bool               `yaml:"was_unique,omitempty"`  // drop_index
	ForeignKey *schema.ForeignKey `yaml:"foreign_key,omitempty"` // add_foreign_key, drop_foreign_key
	SQL        string             `yaml:"sql,omitempty"`         // raw passthrough
}

// One computes the ordered operation list that transforms old into new.
// A nil old means the table is being created, a nil new that it is dropped.
//
// The emission order within one table is fixed: added columns, dropped
// foreign keys, dropped columns, renames, protective index/not-null drops
// around type changes, type changes, add-not-null, default changes, index
// definition changes (drop then add), added foreign keys. Dependent DDL can
// never fail because of emission order.
func One(old, new *schema.Table) []Operation {
	switch {
	case old == nil && new == nil:
		return nil
	case old == nil:
		return []Operation{{Type: CreateTable, Table: new.Name, Def: new.Clone()}}
	case new == nil:
		return []Operation{{Type: DropTable, Table: old.Name, Def: old.Clone()}}
	}

	table := new.Name
	var (
		adds, dropFKs, drops, renames     []Operation
		protDrops, dropNN, typeOps, addNN []Operation
		defaults, idxOps, addFKs          []Operation
	)

	oldCols := map[string]schema.Column{}
	for _, c := range old.Columns {
		oldCols[c.Name] = c
	}
	newCols := map[string]schema.Column{}
	for _, c := range new.Columns {
		newCols[c.Name] = c
	}

	var added, removed []schema.Column
	for _, c := range new.Columns {
		if _, ok := oldCols[c.Name]; !ok {
			added = append(added, c)
		}
	}
	for _, c := range old.Columns {
		if _, ok := newCols[c.Name]; !ok {
			removed = append(removed, c)
		}
	}

	renamed := map[string]string{} // old name -> new name
	if len(added) == 1 && len(removed) == 1 && isRename(old, new, removed[0], added[0]) {
		renames = append(renames, Operation{
			Type:    RenameColumn,
			Table:   table,
			Name:    removed[0].Name,
			NewName: added[0].Name,
		})
		renamed[removed[0].Name] = added[0].Name
		added, removed = nil, nil
	}

	for _, c := range added {
		col := c
		adds = append(adds, Operation{Type: AddColumn, Table: table, Column: &col})
		if fk := new.ForeignKeyOn(c.Name); fk != nil {
			f := *fk
			addFKs = append(addFKs, Operation{Type: AddForeignKey, Table: table, ForeignKey: &f})
		}
	}
	for _, c := range removed {
		if fk := old.ForeignKeyOn(c.Name); fk != nil {
			f := *fk
			dropFKs = append(dropFKs, Operation{Type: DropForeignKey, Table: table, ForeignKey: &f})
		}
		col := c
		drops = append(drops, Operation{Type: DropColumn, Table: table, Name: c.Name, OldColumn: &col})
	}

	// Foreign keys added, removed or retargeted on surviving columns.
	for _, nc := range new.Columns {
		oldName := nc.Name
		for from, to := range renamed {
			if to == nc.Name {
				oldName = from
			}
		}
		if _, ok := oldCols[oldName]; !ok {
			continue
		}
		ofk := old.ForeignKeyOn(oldName)
		nfk := new.ForeignKeyOn(nc.Name)
		switch {
		case ofk != nil && nfk == nil:
			f := *ofk
			dropFKs = append(dropFKs, Operation{Type: DropForeignKey, Table: table, ForeignKey: &f})
		case ofk == nil && nfk != nil:
			f := *nfk
			addFKs = append(addFKs, Operation{Type: AddForeignKey, Table: table, ForeignKey: &f})
		case ofk != nil && nfk != nil && !sameForeignKey(*ofk, *nfk, renamed):
			of, nf := *ofk, *nfk
			dropFKs = append(dropFKs, Operation{Type: DropForeignKey, Table: table, ForeignKey: &of})
			addFKs = append(addFKs, Operation{Type: AddForeignKey, Table: table, ForeignKey: &nf})
		}
	}

	// Column-level structural changes, in declaration order of the new table.
	for _, nc := range new.Columns {
		oc, ok := oldCols[nc.Name]
		if !ok {
			continue
		}
		typeChanged := !oc.SameType(nc)
		oldIndexed := oc.Unique || oc.Index
		newIndexed := nc.Unique || nc.Index
		indexChanged := oc.Unique != nc.Unique || oc.Index != nc.Index

		// A type change invalidates the index and the not-null constraint on
		// some engines, so both are dropped up front and re-added after, even
		// when their declarations did not change.
		if typeChanged && oldIndexed && !indexChanged {
			protDrops = append(protDrops, Operation{
				Type: DropIndex, Table: table, Columns: []string{nc.Name}, WasUnique: oc.Unique,
			})
		}
		if oc.NotNull && (!nc.NotNull || typeChanged) {
			dropNN = append(dropNN, Operation{Type: DropNotNull, Table: table, Name: nc.Name})
		}
		if typeChanged {
			ocol, ncol := oc, nc
			typeOps = append(typeOps, Operation{
				Type: AlterColumnType, Table: table, Name: nc.Name, Column: &ncol, OldColumn: &ocol,
			})
		}
		if nc.NotNull && (!oc.NotNull || typeChanged) {
			addNN = append(addNN, Operation{Type: AddNotNull, Table: table, Name: nc.Name})
		}
		if !strptrEqual(oc.Default, nc.Default) {
			if nc.Default == nil {
				defaults = append(defaults, Operation{
					Type: DropDefault, Table: table, Name: nc.Name, OldDefault: oc.Default,
				})
			} else {
				defaults = append(defaults, Operation{
					Type: AddDefault, Table: table, Name: nc.Name, Default: nc.Default, OldDefault: oc.Default,
				})
			}
		}
		switch {
		case indexChanged:
			// Never an in-place alter: drop the old index, add the new one.
			if oldIndexed {
				idxOps = append(idxOps, Operation{
					Type: DropIndex, Table: table, Columns: []string{nc.Name}, WasUnique: oc.Unique,
				})
			}
			if newIndexed {
				idxOps = append(idxOps, Operation{
					Type: AddIndex, Table: table, Columns: []string{nc.Name}, Unique: nc.Unique,
				})
			}
		case typeChanged && oldIndexed:
			idxOps = append(idxOps, Operation{
				Type: AddIndex, Table: table, Columns: []string{nc.Name}, Unique: nc.Unique,
			})
		}
	}

	// Composite indexes are compared at the tuple level with the same
	// drop-then-add policy. An index whose column is being dropped goes away
	// with the column and is not dropped twice.
	for _, idx := range old.Indexes {
		if new.HasIndex(idx.Columns, idx.Unique) || touchesRemoved(idx, removed) {
			continue
		}
		protDrops = append(protDrops, Operation{
			Type: DropIndex, Table: table, Columns: append([]string(nil), idx.Columns...), WasUnique: idx.Unique,
		})
	}
	for _, idx := range new.Indexes {
		if old.HasIndex(idx.Columns, idx.Unique) {
			continue
		}
		idxOps = append(idxOps, Operation{
			Type: AddIndex, Table: table, Columns: append([]string(nil), idx.Columns...), Unique: idx.Unique,
		})
	}

	var ops []Operation
	ops = append(ops, adds...)
	ops = append(ops, dropFKs...)
	ops = append(ops, drops...)
	ops = append(ops, renames...)
	ops = append(ops, protDrops...)
	ops = append(ops, dropNN...)
	ops = append(ops, typeOps...)
	ops = append(ops, addNN...)
	ops = append(ops, defaults...)
	ops = append(ops, idxOps...)
	ops = append(ops, addFKs...)
	return ops
}

// Many computes the bulk diff between two table sets: creates for tables only
// in news, drops for tables only in olds, and a per-table One for the rest.
// With reverse set the inputs are swapped, so the rollback list is derived
// independently with the same ordering rules instead of reversing the
// forward list.
func Many(news, olds []schema.Table, reverse bool) []Operation {
	if reverse {
		news, olds = olds, news
	}

	oldByName := map[string]*schema.Table{}
	for i := range olds {
		oldByName[olds[i].Name] = &olds[i]
	}
	newByName := map[string]bool{}
	for i := range news {
		newByName[news[i].Name] = true
	}

	var ops []Operation
	for i := range news {
		ops = append(ops, One(oldByName[news[i].Name], &news[i])...)
	}
	for i := range olds {
		if !newByName[olds[i].Name] {
			ops = append(ops, One(&olds[i], nil)...)
		}
	}
	return ops
}

// Invert returns the paired rollback operation. The second result is false
// for operations with no computable inverse (raw SQL).
func (op Operation) Invert() (Operation, bool) {
	switch op.Type {
	case CreateTable:
		return Operation{Type: DropTable, Table: op.Table, Def: op.Def}, true
	case DropTable:
		return Operation{Type: CreateTable, Table: op.Table, Def: op.Def}, true
	case AddColumn:
		return Operation{Type: DropColumn, Table: op.Table, Name: op.Column.Name, OldColumn: op.Column}, true
	case DropColumn:
		return Operation{Type: AddColumn, Table: op.Table, Column: op.OldColumn}, true
	case AlterColumnType:
		return Operation{
			Type: AlterColumnType, Table: op.Table, Name: op.Name,
			Column: op.OldColumn, OldColumn: op.Column,
		}, true
	case RenameColumn:
		return Operation{Type: RenameColumn, Table: op.Table, Name: op.NewName, NewName: op.Name}, true
	case AddNotNull:
		return Operation{Type: DropNotNull, Table: op.Table, Name: op.Name}, true
	case DropNotNull:
		return Operation{Type: AddNotNull, Table: op.Table, Name: op.Name}, true
	case AddDefault:
		if op.OldDefault == nil {
			return Operation{Type: DropDefault, Table: op.Table, Name: op.Name, OldDefault: op.Default}, true
		}
		return Operation{
			Type: AddDefault, Table: op.Table, Name: op.Name, Default: op.OldDefault, OldDefault: op.Default,
		}, true
	case DropDefault:
		return Operation{Type: AddDefault, Table: op.Table, Name: op.Name, Default: op.OldDefault}, true
	case AddIndex:
		return Operation{Type: DropIndex, Table: op.Table, Columns: op.Columns, WasUnique: op.Unique}, true
	case DropIndex:
		return Operation{Type: AddIndex, Table: op.Table, Columns: op.Columns, Unique: op.WasUnique}, true
	case AddForeignKey:
		return Operation{Type: DropForeignKey, Table: op.Table, ForeignKey: op.ForeignKey}, true
	case DropForeignKey:
		return Operation{Type: AddForeignKey, Table: op.Table, ForeignKey: op.ForeignKey}, true
	}
	return Operation{}, false
}

func (op Operation) String() string {
	switch op.Type {
	case CreateTable, DropTable:
		return fmt.Sprintf("%s %s", op.Type, op.Table)
	case AddColumn:
		return fmt.Sprintf("%s %s.%s", op.Type, op.Table, op.Column.Name)
	case RenameColumn:
		return fmt.Sprintf("%s %s.%s -> %s", op.Type, op.Table, op.Name, op.NewName)
	case AddIndex, DropIndex:
		return fmt.Sprintf("%s %s(%s)", op.Type, op.Table, strings.Join(op.Columns, ", "))
	case AddForeignKey, DropForeignKey:
		return fmt.Sprintf("%s %s.%s", op.Type, op.Table, op.ForeignKey.Column)
	case RawSQL:
		return string(RawSQL)
	}
	return fmt.Sprintf("%s %s.%s", op.Type, op.Table, op.Name)
}

// isRename reports whether the single added/removed column pair is the same
// definition under a new name, including any foreign key declared on it.
func isRename(old, new *schema.Table, removed, added schema.Column) bool {
	probe := added
	probe.Name = removed.Name
	if !probe.Equal(removed) {
		return false
	}
	ofk := old.ForeignKeyOn(removed.Name)
	nfk := new.ForeignKeyOn(added.Name)
	if (ofk == nil) != (nfk == nil) {
		return false
	}
	if ofk == nil {
		return true
	}
	o, n := *ofk, *nfk
	o.Column, n.Column = "", ""
	return o == n
}

func sameForeignKey(a, b schema.ForeignKey, renamed map[string]string) bool {
	if to, ok := renamed[a.Column]; ok {
		a.Column = to
	}
	return a == b && a.Target() == b.Target()
}

func touchesRemoved(idx schema.Index, removed []schema.Column) bool {
	for _, col := range idx.Columns {
		for _, r := range removed {
			if r.Name == col {
				return true
			}
		}
	}
	return false
}

func strptrEqual(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}
