package emitter

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ridoystarlord/evolve/diff"
	"github.com/ridoystarlord/evolve/schema"
)

// Header is written at the top of every generated script.
const Header = `# Generated by evolve. Edit if you must, but keep migrate and
# rollback inverse to each other. Type changes without a defined conversion
# are rendered best-effort and may need a manual USING clause.
`

// Script is one migration in data form: an ordered forward operation list
// and its independently derived rollback list.
type Script struct {
	Name     string           `yaml:"name"`
	Migrate  []diff.Operation `yaml:"migrate"`
	Rollback []diff.Operation `yaml:"rollback"`
}

// Render produces a re-loadable migration script. Operations appear one per
// list entry, in the order the diff engine emitted them.
func Render(name string, forward, reverse []diff.Operation) ([]byte, error) {
	doc := Script{Name: name, Migrate: forward, Rollback: reverse}
	body, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("render migration %s: %w", name, err)
	}
	return append([]byte(Header), body...), nil
}

// Parse reads a script back. Round-trip safe: re-rendering the parsed script
// yields an equivalent operation list.
func Parse(data []byte) (*Script, error) {
	var doc Script
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse migration script: %w", err)
	}
	return &doc, nil
}

// Snapshot renders a table snapshot as a standalone declarative definition: a
// single create_table operation carrying the full table, field options in
// declaration order, composite indexes last.
func Snapshot(t *schema.Table) ([]byte, error) {
	op := diff.Operation{Type: diff.CreateTable, Table: t.Name, Def: t.Clone()}
	body, err := yaml.Marshal([]diff.Operation{op})
	if err != nil {
		return nil, fmt.Errorf("render snapshot of %s: %w", t.Name, err)
	}
	return body, nil
}
