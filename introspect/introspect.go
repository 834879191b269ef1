package introspect

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ridoystarlord/evolve/schema"
)

// Database reads the live catalog of one schema back into table snapshots,
// so the actual state can be compared against declared models.
func Database(ctx context.Context, pool *pgxpool.Pool, schemaName string) ([]schema.Table, error) {
	if schemaName == "" {
		schemaName = "public"
	}

	tablesQuery := `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = $1 AND table_type='BASE TABLE'
	ORDER BY table_name;
	`

	rows, err := pool.Query(ctx, tablesQuery, schemaName)
	if err != nil {
		return nil, fmt.Errorf("querying tables: %v", err)
	}
	defer rows.Close()

	var tableNames []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("scanning table name: %v", err)
		}
		tableNames = append(tableNames, tableName)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterating table rows: %v", rows.Err())
	}

	var tables []schema.Table
	for _, tableName := range tableNames {
		table := schema.Table{Name: tableName}

		if table.Columns, err = getColumns(ctx, pool, schemaName, tableName); err != nil {
			return nil, fmt.Errorf("getting columns for table %s: %v", tableName, err)
		}
		if table.ForeignKeys, err = getForeignKeys(ctx, pool, schemaName, tableName); err != nil {
			return nil, fmt.Errorf("getting foreign keys for table %s: %v", tableName, err)
		}
		if err = attachIndexes(ctx, pool, schemaName, &table); err != nil {
			return nil, fmt.Errorf("getting indexes for table %s: %v", tableName, err)
		}

		tables = append(tables, table)
	}

	return tables, nil
}

func getColumns(ctx context.Context, pool *pgxpool.Pool, schemaName, tableName string) ([]schema.Column, error) {
	columnsQuery := `
	SELECT
		c.column_name,
		c.data_type,
		c.character_maximum_length,
		(c.is_nullable = 'NO') as not_null,
		c.column_default,
		(CASE WHEN tc.constraint_type = 'PRIMARY KEY' THEN true ELSE false END) as is_primary
	FROM information_schema.columns c
	LEFT JOIN information_schema.key_column_usage kcu
		ON c.table_name = kcu.table_name AND c.column_name = kcu.column_name
		AND c.table_schema = kcu.table_schema
	LEFT JOIN information_schema.table_constraints tc
		ON kcu.constraint_name = tc.constraint_name AND kcu.table_name = tc.table_name
		AND tc.constraint_type = 'PRIMARY KEY'
	WHERE c.table_schema = $1 AND c.table_name = $2
	ORDER BY c.ordinal_position;
	`

	rows, err := pool.Query(ctx, columnsQuery, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %v", err)
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var maxLength *int
		if err := rows.Scan(
			&col.Name,
			&col.Type,
			&maxLength,
			&col.NotNull,
			&col.Default,
			&col.Primary,
		); err != nil {
			return nil, fmt.Errorf("scanning column: %v", err)
		}
		col.Type = canonicalType(col.Type)
		if maxLength != nil {
			col.MaxLength = *maxLength
		}
		if col.Primary {
			// Serial defaults are an artifact of the primary key, not a
			// declared default.
			if col.Default != nil && strings.HasPrefix(*col.Default, "nextval(") {
				col.Default = nil
			}
			col.NotNull = false
		}
		columns = append(columns, col)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterating column rows: %v", rows.Err())
	}

	return columns, nil
}

func getForeignKeys(ctx context.Context, pool *pgxpool.Pool, schemaName, tableName string) ([]schema.ForeignKey, error) {
	foreignKeysQuery := `
	SELECT
		kcu.column_name,
		ccu.table_name AS foreign_table_name,
		ccu.column_name AS foreign_column_name,
		COALESCE(rc.delete_rule, '')
	FROM information_schema.table_constraints AS tc
	JOIN information_schema.key_column_usage AS kcu
		ON tc.constraint_name = kcu.constraint_name
		AND tc.table_schema = kcu.table_schema
	JOIN information_schema.constraint_column_usage AS ccu
		ON ccu.constraint_name = tc.constraint_name
		AND ccu.table_schema = tc.table_schema
	LEFT JOIN information_schema.referential_constraints AS rc
		ON tc.constraint_name = rc.constraint_name
	WHERE tc.constraint_type = 'FOREIGN KEY'
		AND tc.table_schema = $1
		AND tc.table_name = $2;
	`

	rows, err := pool.Query(ctx, foreignKeysQuery, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("querying foreign keys: %v", err)
	}
	defer rows.Close()

	var foreignKeys []schema.ForeignKey
	for rows.Next() {
		var fk schema.ForeignKey
		var onDelete string
		if err := rows.Scan(
			&fk.Column,
			&fk.ReferencesTable,
			&fk.ReferencesColumn,
			&onDelete,
		); err != nil {
			return nil, fmt.Errorf("scanning foreign key: %v", err)
		}
		if onDelete != "" && onDelete != "NO ACTION" {
			fk.OnDelete = onDelete
		}
		foreignKeys = append(foreignKeys, fk)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterating foreign key rows: %v", rows.Err())
	}

	sort.Slice(foreignKeys, func(i, j int) bool {
		return foreignKeys[i].Column < foreignKeys[j].Column
	})
	return foreignKeys, nil
}

// attachIndexes maps single-column indexes onto column flags and keeps
// composite indexes as table-level entries. Primary key and foreign key
// constraint indexes are skipped.
func attachIndexes(ctx context.Context, pool *pgxpool.Pool, schemaName string, table *schema.Table) error {
	indexesQuery := `
	SELECT
		i.relname,
		array_to_string(array_agg(a.attname ORDER BY k.ord), ',') as column_names,
		ix.indisunique,
		ix.indisprimary
	FROM pg_class t
	JOIN pg_namespace n ON n.oid = t.relnamespace
	JOIN pg_index ix ON ix.indrelid = t.oid
	JOIN pg_class i ON i.oid = ix.indexrelid
	JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord) ON true
	JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
	WHERE n.nspname = $1 AND t.relname = $2
	GROUP BY i.relname, ix.indisunique, ix.indisprimary
	ORDER BY i.relname;
	`

	rows, err := pool.Query(ctx, indexesQuery, schemaName, table.Name)
	if err != nil {
		return fmt.Errorf("querying indexes: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var indexName, columnNames string
		var unique, primary bool
		if err := rows.Scan(&indexName, &columnNames, &unique, &primary); err != nil {
			return fmt.Errorf("scanning index: %v", err)
		}
		if primary {
			continue
		}

		columns := splitColumns(columnNames)
		if len(columns) == 1 {
			col := table.Column(columns[0])
			if col == nil || col.Primary {
				continue
			}
			if unique {
				col.Unique = true
			} else {
				col.Index = true
			}
			continue
		}
		if !table.HasIndex(columns, unique) {
			table.Indexes = append(table.Indexes, schema.Index{Columns: columns, Unique: unique})
		}
	}
	return rows.Err()
}

func splitColumns(columnNames string) []string {
	columns := strings.Split(columnNames, ",")
	for i, col := range columns {
		columns[i] = strings.TrimSpace(col)
	}
	return columns
}

// canonicalType folds information_schema spellings back into the short
// names used in declarations, so comparisons do not report false drift.
func canonicalType(dataType string) string {
	switch dataType {
	case "character varying":
		return "varchar"
	case "character":
		return "char"
	case "timestamp without time zone":
		return "timestamp"
	case "timestamp with time zone":
		return "timestamptz"
	case "time without time zone":
		return "time"
	case "double precision":
		return "float8"
	case "ARRAY":
		return "jsonb"
	}
	return dataType
}
