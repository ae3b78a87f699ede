package statement

import (
	"github.com/mikependon/repodb/dialect"
)

// NewPostgres returns the PostgreSQL builder. Identities are returned with
// RETURNING and upserts use ON CONFLICT ... DO UPDATE.
func NewPostgres() *BaseBuilder {
	b := newBaseBuilder(dialect.Postgres)
	b.returning = returnReturning
	b.merge = onConflictMerge("EXCLUDED")
	return b
}

// onConflictMerge renders an INSERT ... ON CONFLICT upsert. The conflict
// target is the qualifiers, which must be covered by a unique index.
func onConflictMerge(excluded string) func(*BaseBuilder, *QueryBuilder, *MergeRequest, int) error {
	return func(b *BaseBuilder, qb *QueryBuilder, req *MergeRequest, index int) error {
		qualifiers, insert, update, err := mergeFields(req)
		if err != nil {
			return err
		}
		if len(update) == 0 {
			update = qualifiers[:1]
		}
		sets := make([]string, len(update))
		for i, f := range update {
			sets[i] = b.setting.Quote(f) + " = " + excluded + "." + b.setting.Quote(f)
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
			WriteText("ON CONFLICT").
			OpenParen().
			FieldsFrom(qualifiers).
			CloseParen().
			WriteText("DO UPDATE SET").
			WriteText(joinComma(sets))
		if key := returnKey(req.Primary, req.Identity); key != "" && b.returning == returnReturning {
			qb.WriteText("RETURNING " + b.setting.Quote(key))
		}
		return nil
	}
}
