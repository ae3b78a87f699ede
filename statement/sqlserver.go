package statement

import (
	"fmt"

	"github.com/mikependon/repodb/dialect"
)

// NewSQLServer returns the SQL Server builder. It limits rows with TOP,
// pages with ROW_NUMBER, returns identities with OUTPUT and upserts with
// MERGE.
func NewSQLServer() *BaseBuilder {
	b := newBaseBuilder(dialect.SQLServer)
	b.useTop = true
	b.countFunc = "COUNT_BIG(1)"
	b.returning = returnOutput
	b.paging = rowNumberPaging
	b.merge = sqlServerMerge
	return b
}

func rowNumberPaging(b *BaseBuilder, qb *QueryBuilder, req *BatchQueryRequest) {
	first := req.Page*req.RowsPerPage + 1
	last := (req.Page + 1) * req.RowsPerPage
	qb.WriteText("WITH CTE AS").
		OpenParen().
		Select().
		WriteText("ROW_NUMBER() OVER").
		OpenParen().
		OrderByFrom(req.OrderBy).
		CloseParen().
		WriteText("AS " + b.setting.Quote("RowNumber")).
		Comma().
		FieldsFrom(req.Fields).
		From().
		TableNameFrom(req.Table).
		HintsFrom(req.Hints).
		WhereFrom(req.Where).
		CloseParen().
		Select().
		FieldsFrom(req.Fields).
		From().
		WriteText("CTE WHERE").
		WriteText(fmt.Sprintf("(%s BETWEEN %d AND %d)", b.setting.Quote("RowNumber"), first, last)).
		OrderByFrom(req.OrderBy)
}

// sqlServerMerge renders a MERGE for the batch row index. The identity is
// never inserted nor updated.
func sqlServerMerge(b *BaseBuilder, qb *QueryBuilder, req *MergeRequest, index int) error {
	qualifiers, insert, update, err := mergeFields(req)
	if err != nil {
		return err
	}
	insert = without(insert, req.Identity)
	qb.WriteText("MERGE").
		TableNameFrom(req.Table).
		WriteText("AS T USING").
		OpenParen().
		Select().
		ParametersAsFieldsFrom(req.Fields, index).
		CloseParen().
		WriteText("AS S ON").
		OpenParen().
		FieldsAndAliasFieldsFrom(qualifiers, "S", "T", " AND ").
		CloseParen().
		WriteText("WHEN NOT MATCHED THEN INSERT")
	if len(insert) == 0 {
		qb.WriteText("DEFAULT VALUES")
	} else {
		qb.OpenParen().
			FieldsFrom(insert).
			CloseParen().
			Values().
			OpenParen().
			AsAliasFieldsFrom(insert, "S").
			CloseParen()
	}
	if len(update) > 0 {
		qb.WriteText("WHEN MATCHED THEN UPDATE SET").
			FieldsAndAliasFieldsFrom(update, "T", "S", ", ")
	}
	if key := returnKey(req.Primary, req.Identity); key != "" {
		qb.WriteText("OUTPUT INSERTED." + b.setting.Quote(key))
	}
	return nil
}
