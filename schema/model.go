package schema

import (
	"fmt"
	"strings"
)

// CallableDefault marks a default value that cannot be rendered as a SQL
// literal. The generator skips it and the column keeps no server-side default.
const CallableDefault = "<callable>"

// Table is a point-in-time snapshot of one table's structure.
type Table struct {
	Name        string       `yaml:"name"`
	Columns     []Column     `yaml:"columns"`
	Indexes     []Index      `yaml:"indexes,omitempty"`
	ForeignKeys []ForeignKey `yaml:"foreign_keys,omitempty"`
}

type Column struct {
	Name      string  `yaml:"name"`
	Type      string  `yaml:"type"`
	Primary   bool    `yaml:"primary,omitempty"`
	NotNull   bool    `yaml:"not_null,omitempty"`
	Unique    bool    `yaml:"unique,omitempty"`
	Index     bool    `yaml:"index,omitempty"`
	Default   *string `yaml:"default,omitempty"`
	MaxLength int     `yaml:"max_length,omitempty"`
}

// Index is a table-level index over one or more columns.
type Index struct {
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique,omitempty"`
}

type ForeignKey struct {
	Column           string `yaml:"column"`
	ReferencesTable  string `yaml:"references_table"`
	ReferencesColumn string `yaml:"references_column,omitempty"`
	OnDelete         string `yaml:"on_delete,omitempty"`
	Backref          string `yaml:"backref,omitempty"`
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// ForeignKeyOn returns the foreign key declared on the given column, or nil.
func (t *Table) ForeignKeyOn(column string) *ForeignKey {
	for i := range t.ForeignKeys {
		if t.ForeignKeys[i].Column == column {
			return &t.ForeignKeys[i]
		}
	}
	return nil
}

// Clone returns a deep copy, so snapshots can be mutated independently.
func (t *Table) Clone() *Table {
	out := &Table{Name: t.Name}
	out.Columns = append([]Column(nil), t.Columns...)
	for i, c := range out.Columns {
		if c.Default != nil {
			d := *c.Default
			out.Columns[i].Default = &d
		}
	}
	for _, idx := range t.Indexes {
		out.Indexes = append(out.Indexes, Index{
			Columns: append([]string(nil), idx.Columns...),
			Unique:  idx.Unique,
		})
	}
	out.ForeignKeys = append([]ForeignKey(nil), t.ForeignKeys...)
	return out
}

// Equal reports structural equality: same columns in the same order with the
// same options, same index tuples and same foreign keys.
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Name != other.Name || len(t.Columns) != len(other.Columns) {
		return false
	}
	for i := range t.Columns {
		if !t.Columns[i].Equal(other.Columns[i]) {
			return false
		}
	}
	if len(t.Indexes) != len(other.Indexes) || len(t.ForeignKeys) != len(other.ForeignKeys) {
		return false
	}
	for _, idx := range t.Indexes {
		if !other.HasIndex(idx.Columns, idx.Unique) {
			return false
		}
	}
	for _, fk := range t.ForeignKeys {
		got := other.ForeignKeyOn(fk.Column)
		if got == nil || *got != fk {
			return false
		}
	}
	return true
}

// HasIndex reports whether the table declares an index over exactly the given
// column tuple with the given uniqueness.
func (t *Table) HasIndex(columns []string, unique bool) bool {
	for _, idx := range t.Indexes {
		if idx.Unique != unique || len(idx.Columns) != len(columns) {
			continue
		}
		match := true
		for i := range columns {
			if idx.Columns[i] != columns[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Validate checks the snapshot invariants: non-empty name, unique column
// names and at most one primary key.
func (t *Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table has no name")
	}
	seen := map[string]bool{}
	primaries := 0
	for _, c := range t.Columns {
		if seen[c.Name] {
			return fmt.Errorf("table %q: duplicate column %q", t.Name, c.Name)
		}
		seen[c.Name] = true
		if c.Primary {
			primaries++
		}
	}
	if primaries > 1 {
		return fmt.Errorf("table %q: more than one primary key", t.Name)
	}
	return nil
}

func (c Column) Equal(other Column) bool {
	if (c.Default == nil) != (other.Default == nil) {
		return false
	}
	if c.Default != nil && *c.Default != *other.Default {
		return false
	}
	c.Default, other.Default = nil, nil
	return c == other
}

// SameType reports whether two columns share the same column type, including
// max-length classes that imply a type change (varchar(255) vs varchar(1024)).
func (c Column) SameType(other Column) bool {
	return c.Type == other.Type && c.MaxLength == other.MaxLength
}

// SQLType renders the column's type with its length modifier, if any.
func (c Column) SQLType() string {
	if c.MaxLength > 0 {
		return fmt.Sprintf("%s(%d)", c.Type, c.MaxLength)
	}
	return c.Type
}

func (idx Index) Name(table string) string {
	return fmt.Sprintf("idx_%s_%s", table, strings.Join(idx.Columns, "_"))
}

func (fk ForeignKey) ConstraintName(table string) string {
	return fmt.Sprintf("fk_%s_%s", table, fk.Column)
}

// Target returns the referenced column, defaulting to the id primary key.
func (fk ForeignKey) Target() string {
	if fk.ReferencesColumn == "" {
		return "id"
	}
	return fk.ReferencesColumn
}
