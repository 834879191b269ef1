package loader

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ridoystarlord/evolve/schema"
)

type yamlFile struct {
	Tables []yamlTable `yaml:"tables"`
}

type yamlTable struct {
	Name    string       `yaml:"name"`
	Columns []yamlColumn `yaml:"columns"`
	Indexes []yamlIndex  `yaml:"indexes"`
}

type yamlColumn struct {
	Name      string          `yaml:"name"`
	Type      string          `yaml:"type"`
	Primary   bool            `yaml:"primary"`
	Unique    bool            `yaml:"unique"`
	Index     bool            `yaml:"index"`
	NotNull   bool            `yaml:"not_null"`
	Default   *string         `yaml:"default"`
	MaxLength int             `yaml:"max_length"`
	FK        *yamlForeignKey `yaml:"fk"`
}

type yamlIndex struct {
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique"`
}

type yamlForeignKey struct {
	References string `yaml:"references"` // table or table.column
	OnDelete   string `yaml:"on_delete"`
	Backref    string `yaml:"backref"`
}

// LoadModelsFromYAML reads declarative table definitions and projects them
// into snapshots. Column-level fk declarations become table-level foreign
// keys; option order in the file is preserved in the snapshot.
func LoadModelsFromYAML(filename string) ([]schema.Table, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}

	var yf yamlFile
	if err := yaml.Unmarshal(data, &yf); err != nil {
		return nil, fmt.Errorf("unmarshalling YAML: %w", err)
	}

	var models []schema.Table
	for _, t := range yf.Tables {
		table := schema.Table{Name: t.Name}
		for _, c := range t.Columns {
			table.Columns = append(table.Columns, schema.Column{
				Name:      c.Name,
				Type:      c.Type,
				Primary:   c.Primary,
				Unique:    c.Unique,
				Index:     c.Index,
				NotNull:   c.NotNull,
				Default:   c.Default,
				MaxLength: c.MaxLength,
			})
			if c.FK != nil {
				fk, err := parseReference(c.Name, c.FK)
				if err != nil {
					return nil, fmt.Errorf("table %q column %q: %w", t.Name, c.Name, err)
				}
				table.ForeignKeys = append(table.ForeignKeys, fk)
			}
		}
		for _, idx := range t.Indexes {
			table.Indexes = append(table.Indexes, schema.Index{
				Columns: idx.Columns,
				Unique:  idx.Unique,
			})
		}
		if err := table.Validate(); err != nil {
			return nil, err
		}
		models = append(models, table)
	}

	return models, nil
}

func parseReference(column string, fk *yamlForeignKey) (schema.ForeignKey, error) {
	if fk.References == "" {
		return schema.ForeignKey{}, fmt.Errorf("fk has no references target")
	}
	out := schema.ForeignKey{
		Column:   column,
		OnDelete: fk.OnDelete,
		Backref:  fk.Backref,
	}
	if i := strings.IndexByte(fk.References, '.'); i >= 0 {
		out.ReferencesTable = fk.References[:i]
		out.ReferencesColumn = fk.References[i+1:]
	} else {
		out.ReferencesTable = fk.References
	}
	return out, nil
}
