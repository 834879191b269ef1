package migrator

import (
	"fmt"

	"github.com/ridoystarlord/evolve/diff"
	"github.com/ridoystarlord/evolve/schema"
)

// applyRegistry performs the in-memory half of an operation. It is the same
// mutation whether the DDL really executes or the run is fake; only the queue
// differs.
func (m *Migrator) applyRegistry(op diff.Operation) error {
	switch op.Type {
	case diff.CreateTable:
		if op.Def == nil {
			return fmt.Errorf("create_table %q has no definition", op.Table)
		}
		m.orm[op.Table] = op.Def.Clone()
		return nil

	case diff.DropTable:
		delete(m.orm, op.Table)
		return nil

	case diff.RawSQL:
		return nil
	}

	t, err := m.lookup(op.Table)
	if err != nil {
		return err
	}

	switch op.Type {
	case diff.AddColumn:
		if t.Column(op.Column.Name) != nil {
			return fmt.Errorf("table %q already has column %q", op.Table, op.Column.Name)
		}
		t.Columns = append(t.Columns, *op.Column)

	case diff.DropColumn:
		removeColumn(t, op.Name)

	case diff.AlterColumnType:
		col := t.Column(op.Name)
		if col == nil {
			return fmt.Errorf("table %q has no column %q", op.Table, op.Name)
		}
		next := *op.Column
		next.Name = col.Name
		*col = next

	case diff.RenameColumn:
		col := t.Column(op.Name)
		if col == nil {
			return fmt.Errorf("table %q has no column %q", op.Table, op.Name)
		}
		col.Name = op.NewName
		for i := range t.Indexes {
			for j, c := range t.Indexes[i].Columns {
				if c == op.Name {
					t.Indexes[i].Columns[j] = op.NewName
				}
			}
		}
		for i := range t.ForeignKeys {
			if t.ForeignKeys[i].Column == op.Name {
				t.ForeignKeys[i].Column = op.NewName
			}
		}

	case diff.AddNotNull, diff.DropNotNull:
		col := t.Column(op.Name)
		if col == nil {
			return fmt.Errorf("table %q has no column %q", op.Table, op.Name)
		}
		col.NotNull = op.Type == diff.AddNotNull

	case diff.AddDefault:
		col := t.Column(op.Name)
		if col == nil {
			return fmt.Errorf("table %q has no column %q", op.Table, op.Name)
		}
		col.Default = op.Default

	case diff.DropDefault:
		col := t.Column(op.Name)
		if col == nil {
			return fmt.Errorf("table %q has no column %q", op.Table, op.Name)
		}
		col.Default = nil

	case diff.AddIndex:
		if len(op.Columns) == 1 {
			col := t.Column(op.Columns[0])
			if col == nil {
				return fmt.Errorf("table %q has no column %q", op.Table, op.Columns[0])
			}
			col.Unique = op.Unique
			col.Index = !op.Unique
		} else if !t.HasIndex(op.Columns, op.Unique) {
			t.Indexes = append(t.Indexes, schema.Index{
				Columns: append([]string(nil), op.Columns...),
				Unique:  op.Unique,
			})
		}

	case diff.DropIndex:
		if len(op.Columns) == 1 {
			if col := t.Column(op.Columns[0]); col != nil {
				col.Unique = false
				col.Index = false
			}
		} else {
			removeIndex(t, op.Columns)
		}

	case diff.AddForeignKey:
		for i := range t.ForeignKeys {
			if t.ForeignKeys[i].Column == op.ForeignKey.Column {
				t.ForeignKeys[i] = *op.ForeignKey
				return nil
			}
		}
		t.ForeignKeys = append(t.ForeignKeys, *op.ForeignKey)

	case diff.DropForeignKey:
		for i := range t.ForeignKeys {
			if t.ForeignKeys[i].Column == op.ForeignKey.Column {
				t.ForeignKeys = append(t.ForeignKeys[:i], t.ForeignKeys[i+1:]...)
				break
			}
		}

	default:
		return fmt.Errorf("unsupported operation: %s", op.Type)
	}
	return nil
}

func removeColumn(t *schema.Table, name string) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			t.Columns = append(t.Columns[:i], t.Columns[i+1:]...)
			break
		}
	}
	for i := range t.ForeignKeys {
		if t.ForeignKeys[i].Column == name {
			t.ForeignKeys = append(t.ForeignKeys[:i], t.ForeignKeys[i+1:]...)
			break
		}
	}
	clearIndexesOn(t, name)
}

// clearIndexesOn removes composite indexes referencing the column.
func clearIndexesOn(t *schema.Table, name string) {
	kept := t.Indexes[:0]
	for _, idx := range t.Indexes {
		touches := false
		for _, c := range idx.Columns {
			if c == name {
				touches = true
				break
			}
		}
		if !touches {
			kept = append(kept, idx)
		}
	}
	if len(kept) == 0 {
		t.Indexes = nil
	} else {
		t.Indexes = kept
	}
}

func removeIndex(t *schema.Table, columns []string) {
	for i, idx := range t.Indexes {
		if len(idx.Columns) != len(columns) {
			continue
		}
		match := true
		for j := range columns {
			if idx.Columns[j] != columns[j] {
				match = false
				break
			}
		}
		if match {
			t.Indexes = append(t.Indexes[:i], t.Indexes[i+1:]...)
			return
		}
	}
}
