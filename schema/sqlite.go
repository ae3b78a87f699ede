package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/mikependon/repodb/dialect"
	dsql "github.com/mikependon/repodb/dialect/sql"
)

// sqliteHelper reads the columns with PRAGMA table_info. A single INTEGER
// primary key aliases the rowid and is reported as the identity.
type sqliteHelper struct{}

func (sqliteHelper) Fields(ctx context.Context, q dialect.ExecQuerier, table string) (Fields, error) {
	s, _ := dialect.Get(dialect.SQLite)
	schemaName, name := SplitTable(s, table)
	text := "PRAGMA " + s.Quote(schemaName) + ".table_info(" + s.Quote(name) + ");"
	rows := &dsql.Rows{}
	if err := q.Query(ctx, text, []any{}, rows); err != nil {
		return nil, fmt.Errorf("schema: query fields of %s: %w", table, err)
	}
	defer rows.Close()
	var (
		fields Fields
		pks    int
	)
	for rows.Next() {
		var (
			cid, notNull, pk int
			typ              string
			dflt             sql.NullString
			f                = &Field{}
		)
		if err := rows.Scan(&cid, &f.Name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("schema: scan fields of %s: %w", table, err)
		}
		f.IsPrimary = pk > 0
		f.IsNullable = notNull == 0 && pk == 0
		f.Type, f.Size, f.Precision, f.Scale = parseType(typ)
		if f.IsPrimary {
			pks++
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	if p := fields.Primary(); pks == 1 && strings.EqualFold(p.Type, "INTEGER") {
		p.IsIdentity = true
	}
	return fields, nil
}

// parseType splits a declared type such as "DECIMAL(18,2)" or
// "VARCHAR(20)" into its name and size or precision and scale.
func parseType(typ string) (name string, size, precision, scale int64) {
	name = strings.TrimSpace(typ)
	open := strings.IndexByte(name, '(')
	if open < 0 || !strings.HasSuffix(name, ")") {
		return name, 0, 0, 0
	}
	args := strings.Split(name[open+1:len(name)-1], ",")
	name = strings.TrimSpace(name[:open])
	first, _ := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
	if len(args) == 1 {
		return name, first, 0, 0
	}
	second, _ := strconv.ParseInt(strings.TrimSpace(args[1]), 10, 64)
	return name, 0, first, second
}
