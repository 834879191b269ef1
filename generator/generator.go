package generator

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/evolve/diff"
	"github.com/ridoystarlord/evolve/schema"
)

// Statements converts a list of operations into postgres DDL, in the same
// order the diff engine emitted them.
func Statements(ops []diff.Operation) ([]string, error) {
	var stmts []string
	for _, op := range ops {
		batch, err := Statement(op)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, batch...)
	}
	return stmts, nil
}

// Statement renders one operation. Some operations expand into several
// statements (a created table brings its indexes and constraints along).
func Statement(op diff.Operation) ([]string, error) {
	switch op.Type {
	case diff.CreateTable:
		return createTable(op.Def), nil

	case diff.DropTable:
		return []string{fmt.Sprintf(`DROP TABLE IF EXISTS %q;`, op.Table)}, nil

	case diff.AddColumn:
		stmts := []string{fmt.Sprintf(`ALTER TABLE %q ADD COLUMN %s;`, op.Table, columnDef(*op.Column))}
		if op.Column.Index && !op.Column.Unique {
			stmts = append(stmts, createIndex(op.Table, []string{op.Column.Name}, false))
		}
		return stmts, nil

	case diff.DropColumn:
		return []string{fmt.Sprintf(`ALTER TABLE %q DROP COLUMN %q;`, op.Table, op.Name)}, nil

	case diff.AlterColumnType:
		// Conversions with no defined path are rendered best-effort as a
		// cast; the engine reports whatever it can construct.
		t := op.Column.SQLType()
		return []string{fmt.Sprintf(`ALTER TABLE %q ALTER COLUMN %q TYPE %s USING %q::%s;`,
			op.Table, op.Name, t, op.Name, t)}, nil

	case diff.RenameColumn:
		return []string{fmt.Sprintf(`ALTER TABLE %q RENAME COLUMN %q TO %q;`,
			op.Table, op.Name, op.NewName)}, nil

	case diff.AddNotNull:
		return []string{fmt.Sprintf(`ALTER TABLE %q ALTER COLUMN %q SET NOT NULL;`, op.Table, op.Name)}, nil

	case diff.DropNotNull:
		return []string{fmt.Sprintf(`ALTER TABLE %q ALTER COLUMN %q DROP NOT NULL;`, op.Table, op.Name)}, nil

	case diff.AddDefault:
		if op.Default == nil || *op.Default == schema.CallableDefault {
			return nil, nil
		}
		return []string{fmt.Sprintf(`ALTER TABLE %q ALTER COLUMN %q SET DEFAULT %s;`,
			op.Table, op.Name, *op.Default)}, nil

	case diff.DropDefault:
		return []string{fmt.Sprintf(`ALTER TABLE %q ALTER COLUMN %q DROP DEFAULT;`, op.Table, op.Name)}, nil

	case diff.AddIndex:
		return []string{createIndex(op.Table, op.Columns, op.Unique)}, nil

	case diff.DropIndex:
		idx := schema.Index{Columns: op.Columns}
		return []string{fmt.Sprintf(`DROP INDEX IF EXISTS %q;`, idx.Name(op.Table))}, nil

	case diff.AddForeignKey:
		return []string{addForeignKey(op.Table, *op.ForeignKey)}, nil

	case diff.DropForeignKey:
		return []string{fmt.Sprintf(`ALTER TABLE %q DROP CONSTRAINT %q;`,
			op.Table, op.ForeignKey.ConstraintName(op.Table))}, nil

	case diff.RawSQL:
		return []string{op.SQL}, nil
	}

	return nil, fmt.Errorf("unsupported operation: %s", op.Type)
}

func createTable(t *schema.Table) []string {
	var defs []string
	for _, col := range t.Columns {
		defs = append(defs, columnDef(col))
	}
	stmts := []string{fmt.Sprintf(`CREATE TABLE %q (%s);`, t.Name, strings.Join(defs, ", "))}

	for _, col := range t.Columns {
		if col.Index && !col.Unique {
			stmts = append(stmts, createIndex(t.Name, []string{col.Name}, false))
		}
	}
	for _, idx := range t.Indexes {
		stmts = append(stmts, createIndex(t.Name, idx.Columns, idx.Unique))
	}
	for _, fk := range t.ForeignKeys {
		stmts = append(stmts, addForeignKey(t.Name, fk))
	}
	return stmts
}

func columnDef(col schema.Column) string {
	def := fmt.Sprintf("%q %s", col.Name, col.SQLType())
	if col.Primary {
		def += " PRIMARY KEY"
	}
	if col.NotNull && !col.Primary {
		def += " NOT NULL"
	}
	if col.Unique {
		def += " UNIQUE"
	}
	if col.Default != nil && *col.Default != schema.CallableDefault {
		def += fmt.Sprintf(" DEFAULT %s", *col.Default)
	}
	return def
}

func createIndex(table string, columns []string, unique bool) string {
	idx := schema.Index{Columns: columns, Unique: unique}
	stmt := "CREATE"
	if unique {
		stmt += " UNIQUE"
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return fmt.Sprintf(`%s INDEX %q ON %q (%s);`, stmt, idx.Name(table), table, strings.Join(quoted, ", "))
}

func addForeignKey(table string, fk schema.ForeignKey) string {
	stmt := fmt.Sprintf(`ALTER TABLE %q ADD CONSTRAINT %q FOREIGN KEY (%q) REFERENCES %q (%q)`,
		table, fk.ConstraintName(table), fk.Column, fk.ReferencesTable, fk.Target())
	if fk.OnDelete != "" {
		stmt += fmt.Sprintf(" ON DELETE %s", fk.OnDelete)
	}
	return stmt + ";"
}
