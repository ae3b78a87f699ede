package repodb

import (
	"context"
	"reflect"
	"slices"

	"github.com/mikependon/repodb/dialect"
	sqldriver "github.com/mikependon/repodb/dialect/sql"
	"github.com/mikependon/repodb/query"
	"github.com/mikependon/repodb/statement"
)

// batchParams names the values of the rows the way the builders name
// their placeholders: row i of a batch is suffixed with _i.
func batchParams(params map[string]any, columns []string, rows []Record, prefix string) map[string]any {
	if params == nil {
		params = make(map[string]any, len(columns)*len(rows))
	}
	for i, row := range rows {
		for _, c := range columns {
			params[statement.ParamName(prefix+dialect.ParamName(c), i)] = row[c]
		}
	}
	return params
}

// whereParams adds the parameters of a filter to params.
func whereParams(params map[string]any, where *query.QueryGroup) map[string]any {
	if params == nil {
		params = make(map[string]any)
	}
	for k, v := range where.Params() {
		params[k] = v
	}
	return params
}

// chunks splits n rows into batches of size.
func chunks(n, size int) [][2]int {
	if size < 1 {
		size = 1
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}

// queryColumn returns the first column of every row of every result set.
func queryColumn(ctx context.Context, s Session, key, text string, params map[string]any) ([]any, error) {
	var out []any
	err := queryRows(ctx, s, key, text, params, func(rows *sqldriver.Rows) (any, error) {
		for {
			for rows.Next() {
				var v any
				if err := rows.Scan(&v); err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			if !rows.NextResultSet() {
				break
			}
		}
		return int64(len(out)), nil
	})
	return out, err
}

// insertRows inserts the rows in batches and returns the key of each row:
// the identity read back from the database, else the primary key value.
// Dialects that report identities through LastInsertId insert one row per
// statement when the table has an identity.
func insertRows(ctx context.Context, s Session, b *binding, rows []Record, op string, batch int) ([]any, error) {
	db := s.DB()
	returning := db.setting.ReturningIdentity
	if b.identity != "" && !returning {
		batch = 1
	}
	keys := make([]any, len(rows))
	for _, c := range chunks(len(rows), batch) {
		chunk := rows[c[0]:c[1]]
		req := &statement.InsertRequest{
			Table:     b.table,
			Fields:    b.columns,
			Primary:   b.primary,
			Identity:  b.identity,
			BatchSize: len(chunk),
		}
		text, err := db.command(commandKey(opInsertAll, b.table, b.columns, b.primary, b.identity, len(chunk)), func(sb statement.Builder) (string, error) {
			if len(chunk) == 1 {
				return sb.CreateInsert(req)
			}
			return sb.CreateInsertAll(req)
		})
		if err != nil {
			return nil, err
		}
		params := batchParams(nil, b.columns, chunk, "")
		if b.identity != "" && returning {
			ids, err := queryColumn(ctx, s, op, text, params)
			if err != nil {
				return nil, err
			}
			copy(keys[c[0]:c[1]], ids)
			continue
		}
		res, err := execute(ctx, s, op, text, params)
		if err != nil {
			return nil, err
		}
		for i, row := range chunk {
			keys[c[0]+i] = row[b.primary]
		}
		if b.identity != "" {
			if id, err := res.LastInsertId(); err == nil {
				keys[c[0]] = id
			}
		}
	}
	return keys, nil
}

// mergeRows upserts the rows and returns the key of each row. When the
// rows are matched on the identity, rows without an identity value are
// new: they are inserted and their generated identity is read back.
func mergeRows(ctx context.Context, s Session, b *binding, rows []Record, qualifiers []string, op string, batch int) ([]any, error) {
	matchOn := qualifiers
	if len(matchOn) == 0 && b.primary != "" {
		matchOn = []string{b.primary}
	}
	var fresh, known []int
	for i, row := range rows {
		if b.identity != "" && containsFold(matchOn, b.identity) && isZero(row[b.identity]) {
			fresh = append(fresh, i)
		} else {
			known = append(known, i)
		}
	}
	keys := make([]any, len(rows))
	if len(known) > 0 {
		mb := *b
		mb.columns = slices.Clone(b.columns)
		for _, q := range matchOn {
			if !containsFold(mb.columns, q) {
				mb.columns = append(mb.columns, q)
			}
		}
		out, err := upsertRows(ctx, s, &mb, pick(rows, known), qualifiers, op, batch)
		if err != nil {
			return nil, err
		}
		for j, i := range known {
			keys[i] = out[j]
		}
	}
	if len(fresh) > 0 {
		out, err := insertRows(ctx, s, b, pick(rows, fresh), op, batch)
		if err != nil {
			return nil, err
		}
		for j, i := range fresh {
			keys[i] = out[j]
		}
	}
	return keys, nil
}

func pick(rows []Record, idx []int) []Record {
	out := make([]Record, len(idx))
	for j, i := range idx {
		out[j] = rows[i]
	}
	return out
}

// upsertRows merges the rows in batches. Batches of more than one row are
// used only by dialects accepting several statements per command.
func upsertRows(ctx context.Context, s Session, b *binding, rows []Record, qualifiers []string, op string, batch int) ([]any, error) {
	db := s.DB()
	if !db.setting.MultiStatements {
		batch = 1
	}
	key := b.identity
	if key == "" {
		key = b.primary
	}
	returning := key != "" && db.setting.ReturningIdentity
	keys := make([]any, len(rows))
	for _, c := range chunks(len(rows), batch) {
		chunk := rows[c[0]:c[1]]
		req := &statement.MergeRequest{
			Table:      b.table,
			Fields:     b.columns,
			Qualifiers: qualifiers,
			Primary:    b.primary,
			Identity:   b.identity,
			BatchSize:  len(chunk),
		}
		text, err := db.command(commandKey(opMergeAll, b.table, b.columns, qualifiers, b.primary, b.identity, len(chunk)), func(sb statement.Builder) (string, error) {
			return sb.CreateMergeAll(req)
		})
		if err != nil {
			return nil, err
		}
		params := batchParams(nil, b.columns, chunk, "")
		if returning {
			ids, err := queryColumn(ctx, s, op, text, params)
			if err != nil {
				return nil, err
			}
			copy(keys[c[0]:c[1]], ids)
			continue
		}
		res, err := execute(ctx, s, op, text, params)
		if err != nil {
			return nil, err
		}
		for i, row := range chunk {
			keys[c[0]+i] = row[key]
		}
		if b.identity != "" && len(chunk) == 1 && isZero(keys[c[0]]) {
			if id, err := res.LastInsertId(); err == nil && id > 0 {
				keys[c[0]] = id
			}
		}
	}
	return keys, nil
}

// updateRow updates the rows matching where with the values of row.
func updateRow(ctx context.Context, s Session, b *binding, row Record, where *query.QueryGroup, op string) (int64, error) {
	db := s.DB()
	text, err := db.builder.CreateUpdate(&statement.UpdateRequest{
		Table:    b.table,
		Fields:   b.columns,
		Where:    where,
		Primary:  b.primary,
		Identity: b.identity,
	})
	if err != nil {
		return 0, err
	}
	params := batchParams(nil, b.columns, []Record{row}, "")
	params = whereParams(params, where.WithPrefix(statement.WherePrefix))
	res, err := execute(ctx, s, op, text, params)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// updateRows updates every row matched by its qualifiers, or by its
// primary key.
func updateRows(ctx context.Context, s Session, b *binding, rows []Record, qualifiers []string, op string, batch int) (int64, error) {
	db := s.DB()
	if !db.setting.MultiStatements {
		batch = 1
	}
	keys := qualifiers
	if len(keys) == 0 && b.primary != "" {
		keys = []string{b.primary}
	}
	var affected int64
	for _, c := range chunks(len(rows), batch) {
		chunk := rows[c[0]:c[1]]
		req := &statement.UpdateRequest{
			Table:      b.table,
			Fields:     b.columns,
			Qualifiers: qualifiers,
			Primary:    b.primary,
			Identity:   b.identity,
			BatchSize:  len(chunk),
		}
		text, err := db.command(commandKey(opUpdateAll, b.table, b.columns, qualifiers, b.primary, b.identity, len(chunk)), func(sb statement.Builder) (string, error) {
			return sb.CreateUpdateAll(req)
		})
		if err != nil {
			return affected, err
		}
		params := batchParams(nil, b.columns, chunk, "")
		params = batchParams(params, keys, chunk, statement.WherePrefix)
		res, err := execute(ctx, s, op, text, params)
		if err != nil {
			return affected, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return affected, err
		}
		affected += n
	}
	return affected, nil
}

// deleteRows deletes the rows matching where. A nil where deletes every
// row.
func deleteRows(ctx context.Context, s Session, table string, where *query.QueryGroup, o *options, op string) (int64, error) {
	db := s.DB()
	req := &statement.DeleteRequest{Table: table, Where: where, Hints: o.hints}
	var text string
	var err error
	if where.IsEmpty() {
		text, err = db.command(commandKey(opDeleteAll, table, o.hints), func(sb statement.Builder) (string, error) {
			return sb.CreateDeleteAll(req)
		})
	} else {
		text, err = db.builder.CreateDelete(req)
	}
	if err != nil {
		return 0, err
	}
	res, err := execute(ctx, s, o.key(op), text, where.Params())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// truncate removes every row of a table.
func truncate(ctx context.Context, s Session, table string, o *options) (int64, error) {
	db := s.DB()
	text, err := db.command(commandKey(opTruncate, table), func(sb statement.Builder) (string, error) {
		return sb.CreateTruncate(&statement.TruncateRequest{Table: table})
	})
	if err != nil {
		return 0, err
	}
	res, err := execute(ctx, s, o.key(opTruncate), text, nil)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.IsZero()
}
