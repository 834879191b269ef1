package validator

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/evolve/schema"
)

// ValidationError represents a single finding with details
type ValidationError struct {
	Type     string `json:"type"`
	Table    string `json:"table,omitempty"`
	Column   string `json:"column,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "error", "warning"
}

// ValidationResult contains all validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
}

// ValidateTables checks declared snapshots for problems that would surface
// later as broken migrations: bad identifiers, duplicate columns, multiple
// primary keys, dangling foreign keys, indexes over missing columns.
func ValidateTables(tables []schema.Table) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	for _, table := range tables {
		validateTable(table, result)
	}
	validateCrossTable(tables, result)

	result.Valid = len(result.Errors) == 0
	return result
}

func (r *ValidationResult) addError(errType, table, column, message string) {
	r.Errors = append(r.Errors, ValidationError{
		Type: errType, Table: table, Column: column,
		Message: message, Severity: "error",
	})
}

func (r *ValidationResult) addWarning(errType, table, column, message string) {
	r.Warnings = append(r.Warnings, ValidationError{
		Type: errType, Table: table, Column: column,
		Message: message, Severity: "warning",
	})
}

func validateTable(table schema.Table, result *ValidationResult) {
	if err := validateIdentifier("table", table.Name); err != nil {
		result.addError("table_name", table.Name, "", err.Error())
	}
	if isReservedKeyword(table.Name) {
		result.addError("table_name", table.Name, "",
			fmt.Sprintf("table name '%s' is a reserved keyword", table.Name))
	}

	if len(table.Columns) == 0 {
		result.addError("no_columns", table.Name, "",
			fmt.Sprintf("table '%s' must have at least one column", table.Name))
		return
	}

	columnNames := make(map[string]bool)
	hasPrimaryKey := false

	for _, column := range table.Columns {
		if columnNames[column.Name] {
			result.addError("duplicate_column", table.Name, column.Name,
				fmt.Sprintf("duplicate column name '%s' in table '%s'", column.Name, table.Name))
			continue
		}
		columnNames[column.Name] = true

		if err := validateIdentifier("column", column.Name); err != nil {
			result.addError("column_name", table.Name, column.Name, err.Error())
		}
		if column.Type == "" && !column.Primary {
			result.addError("data_type", table.Name, column.Name,
				fmt.Sprintf("column '%s' has no type", column.Name))
		} else if column.Type != "" && !validDataType(column.Type) {
			result.addError("data_type", table.Name, column.Name,
				fmt.Sprintf("unsupported data type '%s'", column.Type))
		}

		if column.Primary {
			if hasPrimaryKey {
				result.addError("multiple_primary_keys", table.Name, column.Name,
					fmt.Sprintf("table '%s' has more than one primary key column", table.Name))
			}
			hasPrimaryKey = true
		}

		if column.MaxLength > 0 && column.Type != "varchar" && column.Type != "char" {
			result.addWarning("max_length", table.Name, column.Name,
				fmt.Sprintf("max_length is ignored for type '%s'", column.Type))
		}
	}

	if !hasPrimaryKey {
		result.addWarning("no_primary_key", table.Name, "",
			fmt.Sprintf("table '%s' has no primary key defined", table.Name))
	}

	for _, index := range table.Indexes {
		for _, columnName := range index.Columns {
			if !columnNames[columnName] {
				result.addError("index_column_not_found", table.Name, columnName,
					fmt.Sprintf("index '%s' references non-existent column '%s'",
						index.Name(table.Name), columnName))
			}
		}
	}

	for _, fk := range table.ForeignKeys {
		if !columnNames[fk.Column] {
			result.addError("foreign_key_column_not_found", table.Name, fk.Column,
				fmt.Sprintf("foreign key is declared on non-existent column '%s'", fk.Column))
		}
		if fk.ReferencesTable == "" {
			result.addError("foreign_key", table.Name, fk.Column,
				"foreign key references table cannot be empty")
		}
		if fk.OnDelete != "" && !validReferentialAction(fk.OnDelete) {
			result.addError("foreign_key", table.Name, fk.Column,
				fmt.Sprintf("invalid on_delete action '%s'", fk.OnDelete))
		}
	}
}

// validateCrossTable checks that every foreign key target resolves to a
// declared table and column.
func validateCrossTable(tables []schema.Table, result *ValidationResult) {
	byName := make(map[string]*schema.Table, len(tables))
	for i := range tables {
		byName[tables[i].Name] = &tables[i]
	}

	for _, table := range tables {
		for _, fk := range table.ForeignKeys {
			target, exists := byName[fk.ReferencesTable]
			if !exists {
				result.addError("foreign_key_table_not_found", table.Name, fk.Column,
					fmt.Sprintf("foreign key references non-existent table '%s'", fk.ReferencesTable))
				continue
			}
			if target.Column(fk.Target()) == nil {
				result.addError("foreign_key_column_not_found", table.Name, fk.Column,
					fmt.Sprintf("foreign key references non-existent column '%s' in table '%s'",
						fk.Target(), fk.ReferencesTable))
			}
		}
	}
}

func validateIdentifier(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s name cannot be empty", kind)
	}
	if len(name) > 63 {
		return fmt.Errorf("%s name '%s' is too long (max 63 characters)", kind, name)
	}
	for _, char := range name {
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '_') {
			return fmt.Errorf("%s name '%s' contains invalid character '%c'", kind, name, char)
		}
	}
	return nil
}

func isReservedKeyword(name string) bool {
	switch strings.ToLower(name) {
	case "user", "order", "group", "table", "index", "view", "schema":
		return true
	}
	return false
}

func validDataType(dataType string) bool {
	validTypes := map[string]bool{
		"smallint": true, "integer": true, "bigint": true,
		"decimal": true, "numeric": true, "real": true, "double precision": true,
		"float8": true, "serial": true, "bigserial": true, "smallserial": true,

		"varchar": true, "char": true, "text": true,

		"bytea": true,

		"timestamp": true, "timestamptz": true,
		"date": true, "time": true, "timetz": true, "interval": true,

		"boolean": true, "bool": true,

		"json": true, "jsonb": true,

		"uuid": true,

		"cidr": true, "inet": true, "macaddr": true,

		"tsvector": true, "tsquery": true,
	}
	return validTypes[strings.ToLower(dataType)]
}

func validReferentialAction(action string) bool {
	switch strings.ToUpper(action) {
	case "CASCADE", "SET NULL", "SET DEFAULT", "RESTRICT", "NO ACTION":
		return true
	}
	return false
}
