package loader

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/ridoystarlord/evolve/schema"
)

// TagLoader projects Go structs carrying `evolve:"..."` tags into table
// snapshots, parsing source files rather than linking against them.
type TagLoader struct {
	modelsDir string
}

func NewTagLoader(modelsDir string) *TagLoader {
	return &TagLoader{modelsDir: modelsDir}
}

// LoadModelsFromTags loads snapshots from every Go file under modelsDir.
func LoadModelsFromTags(modelsDir string) ([]schema.Table, error) {
	return NewTagLoader(modelsDir).Load()
}

func (tl *TagLoader) Load() ([]schema.Table, error) {
	if _, err := os.Stat(tl.modelsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("models directory %q does not exist", tl.modelsDir)
	}

	var models []schema.Table
	err := filepath.Walk(tl.modelsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		fileModels, err := tl.parseGoFile(path)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		models = append(models, fileModels...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}
	return models, nil
}

func (tl *TagLoader) parseGoFile(filePath string) ([]schema.Table, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var models []schema.Table
	ast.Inspect(node, func(n ast.Node) bool {
		spec, ok := n.(*ast.TypeSpec)
		if !ok {
			return true
		}
		structType, ok := spec.Type.(*ast.StructType)
		if !ok {
			return true
		}
		if model := tl.parseStruct(spec.Name.Name, structType); model != nil {
			models = append(models, *model)
		}
		return true
	})
	return models, nil
}

func (tl *TagLoader) parseStruct(structName string, structType *ast.StructType) *schema.Table {
	table := &schema.Table{Name: toSnakeCase(structName)}
	tagged := false

	for _, field := range structType.Fields.List {
		if len(field.Names) == 0 || !ast.IsExported(field.Names[0].Name) {
			continue
		}
		raw := tagValue(field.Tag)
		if raw == "" {
			continue
		}
		tagged = true
		if raw == "-" {
			continue
		}
		col, fk := tl.parseFieldTag(field.Names[0].Name, goType(field.Type), raw)
		table.Columns = append(table.Columns, col)
		if fk != nil {
			fk.Column = col.Name
			table.ForeignKeys = append(table.ForeignKeys, *fk)
		}
	}

	if !tagged {
		return nil
	}
	return table
}

// parseFieldTag reads one tag value, e.g.
// `evolve:"type:varchar;max_length:255;not_null;unique;fk:orgs.id:CASCADE"`.
func (tl *TagLoader) parseFieldTag(fieldName, fieldType, raw string) (schema.Column, *schema.ForeignKey) {
	col := schema.Column{Name: toSnakeCase(fieldName)}
	var fk *schema.ForeignKey

	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if kv := strings.SplitN(part, ":", 2); len(kv) == 2 && isTagKey(kv[0]) {
			value := strings.TrimSpace(kv[1])
			switch strings.TrimSpace(kv[0]) {
			case "column":
				col.Name = value
			case "type":
				col.Type = value
			case "default":
				col.Default = &value
			case "max_length":
				fmt.Sscanf(value, "%d", &col.MaxLength)
			case "fk":
				fk = parseForeignKeyTag(value)
			}
			continue
		}
		switch part {
		case "primary":
			col.Primary = true
		case "unique":
			col.Unique = true
		case "not_null":
			col.NotNull = true
		case "index":
			col.Index = true
		}
	}

	if col.Type == "" {
		col.Type = inferDataType(fieldType)
	}
	return col, fk
}

func isTagKey(k string) bool {
	switch strings.TrimSpace(k) {
	case "column", "type", "default", "max_length", "fk":
		return true
	}
	return false
}

// parseForeignKeyTag reads "table.column:on_delete:backref"; column,
// on_delete and backref are optional.
func parseForeignKeyTag(spec string) *schema.ForeignKey {
	parts := strings.Split(spec, ":")
	refParts := strings.SplitN(parts[0], ".", 2)

	fk := &schema.ForeignKey{ReferencesTable: refParts[0]}
	if len(refParts) == 2 {
		fk.ReferencesColumn = refParts[1]
	}
	if len(parts) > 1 {
		fk.OnDelete = parts[1]
	}
	if len(parts) > 2 {
		fk.Backref = parts[2]
	}
	return fk
}

func tagValue(tag *ast.BasicLit) string {
	if tag == nil {
		return ""
	}
	return reflect.StructTag(strings.Trim(tag.Value, "`")).Get("evolve")
}

func goType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return goType(t.X)
	case *ast.ArrayType:
		return "[]" + goType(t.Elt)
	case *ast.SelectorExpr:
		if x, ok := t.X.(*ast.Ident); ok {
			return x.Name + "." + t.Sel.Name
		}
	}
	return ""
}

func inferDataType(goType string) string {
	switch goType {
	case "int", "int32":
		return "integer"
	case "int64":
		return "bigint"
	case "string":
		return "text"
	case "bool":
		return "boolean"
	case "float32", "float64":
		return "numeric"
	case "time.Time":
		return "timestamp"
	case "uuid.UUID":
		return "uuid"
	}
	if strings.HasPrefix(goType, "[]") {
		return "jsonb"
	}
	return "text"
}

func toSnakeCase(s string) string {
	var b strings.Builder
	var prev rune
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' && prev >= 'a' && prev <= 'z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
		prev = r
	}
	return strings.ToLower(b.String())
}
