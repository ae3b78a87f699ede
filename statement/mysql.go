package statement

import (
	"fmt"

	"github.com/mikependon/repodb/dialect"
)

// NewMySQL returns the MySQL builder. It pages with "LIMIT offset, rows"
// and upserts with ON DUPLICATE KEY UPDATE. Identities are read from the
// last insert id.
func NewMySQL() *BaseBuilder {
	b := newBaseBuilder(dialect.MySQL)
	b.paging = limitCommaPaging
	b.merge = duplicateKeyMerge
	return b
}

func limitCommaPaging(_ *BaseBuilder, qb *QueryBuilder, req *BatchQueryRequest) {
	qb.Select().
		FieldsFrom(req.Fields).
		From().
		TableNameFrom(req.Table).
		WhereFrom(req.Where).
		OrderByFrom(req.OrderBy).
		WriteText(fmt.Sprintf("LIMIT %d, %d", req.Page*req.RowsPerPage, req.RowsPerPage))
}

func duplicateKeyMerge(b *BaseBuilder, qb *QueryBuilder, req *MergeRequest, index int) error {
	qualifiers, insert, update, err := mergeFields(req)
	if err != nil {
		return err
	}
	if len(update) == 0 {
		update = qualifiers[:1]
	}
	sets := make([]string, len(update))
	for i, f := range update {
		sets[i] = b.setting.Quote(f) + " = VALUES(" + b.setting.Quote(f) + ")"
	}
	qb.InsertInto().
		TableNameFrom(req.Table).
		OpenParen().
		FieldsFrom(insert).
		CloseParen().
		Values().
		OpenParen().
		ParametersFrom(insert, index).
		CloseParen().
		WriteText("ON DUPLICATE KEY UPDATE").
		WriteText(joinComma(sets))
	return nil
}
