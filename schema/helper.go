package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mikependon/repodb/dialect"
	"github.com/mikependon/repodb/dialect/sql"
)

// ErrTableNotFound is returned when a table has no discoverable columns.
var ErrTableNotFound = errors.New("schema: table not found")

// Helper discovers the columns of a table.
type Helper interface {
	Fields(ctx context.Context, q dialect.ExecQuerier, table string) (Fields, error)
}

// HelperFunc adapts a function to the Helper interface.
type HelperFunc func(ctx context.Context, q dialect.ExecQuerier, table string) (Fields, error)

// Fields implements Helper.
func (f HelperFunc) Fields(ctx context.Context, q dialect.ExecQuerier, table string) (Fields, error) {
	return f(ctx, q, table)
}

var helpers = struct {
	sync.RWMutex
	m map[string]Helper
}{
	m: map[string]Helper{
		dialect.SQLServer: &infoSchemaHelper{dialect: dialect.SQLServer, text: sqlServerFields},
		dialect.MySQL:     &infoSchemaHelper{dialect: dialect.MySQL, text: mySQLFields},
		dialect.Postgres:  &infoSchemaHelper{dialect: dialect.Postgres, text: postgresFields},
		dialect.SQLite:    sqliteHelper{},
	},
}

// RegisterHelper adds or replaces the helper of a dialect.
func RegisterHelper(name string, h Helper) {
	helpers.Lock()
	defer helpers.Unlock()
	helpers.m[name] = h
}

// HelperFor returns the helper registered for the given dialect or driver
// name.
func HelperFor(name string) (Helper, bool) {
	helpers.RLock()
	defer helpers.RUnlock()
	if h, ok := helpers.m[name]; ok {
		return h, true
	}
	h, ok := helpers.m[dialect.Normalize(name)]
	return h, ok
}

const sqlServerFields = `SELECT C.[name], CONVERT(BIT, COALESCE(P.[is_primary_key], 0)), C.[is_identity], C.[is_nullable], ` +
	`TY.[name], C.[max_length], C.[precision], C.[scale] ` +
	`FROM [sys].[columns] C ` +
	`INNER JOIN [sys].[types] TY ON TY.[user_type_id] = C.[user_type_id] ` +
	`INNER JOIN [sys].[objects] O ON O.[object_id] = C.[object_id] ` +
	`LEFT JOIN (SELECT IC.[object_id], IC.[column_id], I.[is_primary_key] FROM [sys].[indexes] I ` +
	`INNER JOIN [sys].[index_columns] IC ON IC.[object_id] = I.[object_id] AND IC.[index_id] = I.[index_id] ` +
	`WHERE I.[is_primary_key] = 1) P ON P.[object_id] = C.[object_id] AND P.[column_id] = C.[column_id] ` +
	`WHERE O.[type] = 'U' AND O.[name] = :Table AND SCHEMA_NAME(O.[schema_id]) = :Schema ` +
	`ORDER BY C.[column_id];`

const mySQLFields = `SELECT COLUMN_NAME, CASE WHEN COLUMN_KEY = 'PRI' THEN 1 ELSE 0 END, ` +
	`CASE WHEN EXTRA LIKE '%auto_increment%' THEN 1 ELSE 0 END, CASE WHEN IS_NULLABLE = 'YES' THEN 1 ELSE 0 END, ` +
	`DATA_TYPE, COALESCE(CHARACTER_MAXIMUM_LENGTH, 0), COALESCE(NUMERIC_PRECISION, 0), COALESCE(NUMERIC_SCALE, 0) ` +
	`FROM INFORMATION_SCHEMA.COLUMNS ` +
	`WHERE TABLE_SCHEMA = COALESCE(NULLIF(:Schema, ''), DATABASE()) AND TABLE_NAME = :Table ` +
	`ORDER BY ORDINAL_POSITION;`

const postgresFields = `SELECT C.column_name, CASE WHEN PK.column_name IS NULL THEN false ELSE true END, ` +
	`CASE WHEN C.is_identity = 'YES' OR C.column_default LIKE 'nextval(%' THEN true ELSE false END, ` +
	`CASE WHEN C.is_nullable = 'YES' THEN true ELSE false END, ` +
	`C.data_type, COALESCE(C.character_maximum_length, 0), COALESCE(C.numeric_precision, 0), COALESCE(C.numeric_scale, 0) ` +
	`FROM information_schema.columns C ` +
	`LEFT JOIN (SELECT KCU.table_schema, KCU.table_name, KCU.column_name FROM information_schema.table_constraints TC ` +
	`INNER JOIN information_schema.key_column_usage KCU ON KCU.constraint_name = TC.constraint_name AND KCU.table_schema = TC.table_schema ` +
	`WHERE TC.constraint_type = 'PRIMARY KEY') PK ` +
	`ON PK.table_schema = C.table_schema AND PK.table_name = C.table_name AND PK.column_name = C.column_name ` +
	`WHERE C.table_schema = :Schema AND C.table_name = :Table ` +
	`ORDER BY C.ordinal_position;`

// infoSchemaHelper reads the columns from the catalog views of the
// database. Every query returns the name, primary, identity and nullable
// flags, type, size, precision and scale of each column.
type infoSchemaHelper struct {
	dialect string
	text    string
}

func (h *infoSchemaHelper) Fields(ctx context.Context, q dialect.ExecQuerier, table string) (Fields, error) {
	s, _ := dialect.Get(h.dialect)
	schemaName, name := SplitTable(s, table)
	text, args, err := s.Rebind(h.text, map[string]any{"Schema": schemaName, "Table": name})
	if err != nil {
		return nil, err
	}
	rows := &sql.Rows{}
	if err := q.Query(ctx, text, args, rows); err != nil {
		return nil, fmt.Errorf("schema: query fields of %s: %w", table, err)
	}
	defer rows.Close()
	var fields Fields
	for rows.Next() {
		f := &Field{}
		if err := rows.Scan(&f.Name, &f.IsPrimary, &f.IsIdentity, &f.IsNullable, &f.Type, &f.Size, &f.Precision, &f.Scale); err != nil {
			return nil, fmt.Errorf("schema: scan fields of %s: %w", table, err)
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return fields, nil
}

// SplitTable splits a possibly schema qualified table name into its
// unquoted schema and name. The dialect default schema is used when the
// name is not qualified.
func SplitTable(s dialect.Setting, table string) (schemaName, name string) {
	name = s.Unquote(table)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return s.DefaultSchema, name
}
