package statement

import (
	"fmt"
	"strings"

	"github.com/mikependon/repodb/dialect"
)

type returnStyle int

const (
	returnNone returnStyle = iota
	returnOutput
	returnReturning
)

// BaseBuilder implements Builder. The dialect specific parts (row limiting,
// paging, upserts and identity retrieval) are configured by the dialect
// constructors. Custom builders can embed a *BaseBuilder and override the
// operations they render differently.
type BaseBuilder struct {
	setting   dialect.Setting
	useTop    bool
	countFunc string
	returning returnStyle
	truncate  bool
	paging    func(*BaseBuilder, *QueryBuilder, *BatchQueryRequest)
	merge     func(*BaseBuilder, *QueryBuilder, *MergeRequest, int) error
}

var _ Builder = (*BaseBuilder)(nil)

func newBaseBuilder(name string) *BaseBuilder {
	s, ok := dialect.Get(name)
	if !ok {
		panic(fmt.Sprintf("statement: unknown dialect %q", name))
	}
	return &BaseBuilder{
		setting:   s,
		countFunc: "COUNT(*)",
		truncate:  true,
		paging:    limitOffsetPaging,
	}
}

// Setting implements Builder.
func (b *BaseBuilder) Setting() dialect.Setting { return b.setting }

// CreateQuery implements Builder.
func (b *BaseBuilder) CreateQuery(req *QueryRequest) (string, error) {
	if err := b.check(req.Table, req.Hints); err != nil {
		return "", err
	}
	if len(req.Fields) == 0 {
		return "", ErrNoFields
	}
	qb := NewQueryBuilder(b.setting).Select()
	if b.useTop {
		qb.Top(req.Top)
	}
	qb.FieldsFrom(req.Fields).
		From().
		TableNameFrom(req.Table).
		HintsFrom(req.Hints).
		WhereFrom(req.Where).
		OrderByFrom(req.OrderBy)
	if !b.useTop {
		qb.Limit(req.Top)
	}
	return qb.End().Build()
}

// CreateQueryAll implements Builder. Where and Top are ignored.
func (b *BaseBuilder) CreateQueryAll(req *QueryRequest) (string, error) {
	r := *req
	r.Where, r.Top = nil, 0
	return b.CreateQuery(&r)
}

// CreateBatchQuery implements Builder.
func (b *BaseBuilder) CreateBatchQuery(req *BatchQueryRequest) (string, error) {
	if err := b.check(req.Table, req.Hints); err != nil {
		return "", err
	}
	switch {
	case len(req.Fields) == 0:
		return "", ErrNoFields
	case len(req.OrderBy) == 0:
		return "", ErrNoOrderBy
	case req.Page < 0:
		return "", ErrInvalidPage
	case req.RowsPerPage < 1:
		return "", ErrInvalidRowsPerPage
	}
	qb := NewQueryBuilder(b.setting)
	b.paging(b, qb, req)
	return qb.End().Build()
}

func limitOffsetPaging(_ *BaseBuilder, qb *QueryBuilder, req *BatchQueryRequest) {
	qb.Select().
		FieldsFrom(req.Fields).
		From().
		TableNameFrom(req.Table).
		HintsFrom(req.Hints).
		WhereFrom(req.Where).
		OrderByFrom(req.OrderBy).
		Limit(req.RowsPerPage).
		Offset(req.Page * req.RowsPerPage)
}

// CreateCount implements Builder.
func (b *BaseBuilder) CreateCount(req *CountRequest) (string, error) {
	if err := b.check(req.Table, req.Hints); err != nil {
		return "", err
	}
	return NewQueryBuilder(b.setting).
		Select().
		WriteText(b.countFunc + " AS " + b.setting.Quote("CountValue")).
		From().
		TableNameFrom(req.Table).
		HintsFrom(req.Hints).
		WhereFrom(req.Where).
		End().
		Build()
}

// CreateCountAll implements Builder. Where is ignored.
func (b *BaseBuilder) CreateCountAll(req *CountRequest) (string, error) {
	r := *req
	r.Where = nil
	return b.CreateCount(&r)
}

// CreateExists implements Builder.
func (b *BaseBuilder) CreateExists(req *CountRequest) (string, error) {
	if err := b.check(req.Table, req.Hints); err != nil {
		return "", err
	}
	qb := NewQueryBuilder(b.setting).Select()
	if b.useTop {
		qb.Top(1)
	}
	qb.WriteText("1 AS " + b.setting.Quote("ExistsValue")).
		From().
		TableNameFrom(req.Table).
		HintsFrom(req.Hints).
		WhereFrom(req.Where)
	if !b.useTop {
		qb.Limit(1)
	}
	return qb.End().Build()
}

// CreateAggregate implements Builder.
func (b *BaseBuilder) CreateAggregate(req *AggregateRequest) (string, error) {
	if err := b.check(req.Table, req.Hints); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.Field) == "" {
		return "", ErrNoAggregateField
	}
	arg := b.setting.Quote(req.Field)
	if req.Function == Average && b.setting.AverageableType != "" {
		arg = "CONVERT(" + b.setting.AverageableType + ", " + arg + ")"
	}
	return NewQueryBuilder(b.setting).
		Select().
		WriteText(req.Function.String() + "(" + arg + ") AS " + b.setting.Quote(req.Function.Alias())).
		From().
		TableNameFrom(req.Table).
		HintsFrom(req.Hints).
		WhereFrom(req.Where).
		End().
		Build()
}

// CreateAggregateAll implements Builder. Where is ignored.
func (b *BaseBuilder) CreateAggregateAll(req *AggregateRequest) (string, error) {
	r := *req
	r.Where = nil
	return b.CreateAggregate(&r)
}

// CreateInsert implements Builder.
func (b *BaseBuilder) CreateInsert(req *InsertRequest) (string, error) {
	return b.insert(req, 1)
}

// CreateInsertAll implements Builder. It renders a single INSERT with
// BatchSize rows of values.
func (b *BaseBuilder) CreateInsertAll(req *InsertRequest) (string, error) {
	return b.insert(req, max(req.BatchSize, 1))
}

func (b *BaseBuilder) insert(req *InsertRequest, rows int) (string, error) {
	if err := b.check(req.Table, ""); err != nil {
		return "", err
	}
	fields := without(req.Fields, req.Identity)
	if len(fields) == 0 {
		return "", ErrNoFields
	}
	qb := NewQueryBuilder(b.setting).
		InsertInto().
		TableNameFrom(req.Table).
		OpenParen().
		FieldsFrom(fields).
		CloseParen()
	if req.Identity != "" && b.returning == returnOutput {
		qb.WriteText("OUTPUT INSERTED." + b.setting.Quote(req.Identity))
	}
	qb.Values()
	for i := 0; i < rows; i++ {
		if i > 0 {
			qb.Comma()
		}
		qb.OpenParen().ParametersFrom(fields, i).CloseParen()
	}
	if req.Identity != "" && b.returning == returnReturning {
		qb.WriteText("RETURNING " + b.setting.Quote(req.Identity))
	}
	return qb.End().Build()
}

// CreateMerge implements Builder.
func (b *BaseBuilder) CreateMerge(req *MergeRequest) (string, error) {
	r := *req
	r.BatchSize = 1
	return b.CreateMergeAll(&r)
}

// CreateMergeAll implements Builder. Batches of more than one row are
// rendered as one statement per row and require a dialect accepting
// multiple statements per command.
func (b *BaseBuilder) CreateMergeAll(req *MergeRequest) (string, error) {
	if err := b.check(req.Table, ""); err != nil {
		return "", err
	}
	rows := max(req.BatchSize, 1)
	if rows > 1 && !b.setting.MultiStatements {
		return "", fmt.Errorf("%w by %s", ErrMultiStatementsNotSupported, b.setting.Name)
	}
	qb := NewQueryBuilder(b.setting)
	for i := 0; i < rows; i++ {
		if err := b.merge(b, qb, req, i); err != nil {
			return "", err
		}
		qb.End()
	}
	return qb.Build()
}

// mergeFields splits the merge request into the qualifiers, the inserted
// fields and the updated fields. The identity is inserted only when it is
// one of the qualifiers.
func mergeFields(req *MergeRequest) (qualifiers, insert, update []string, err error) {
	if len(req.Fields) == 0 {
		return nil, nil, nil, ErrNoFields
	}
	qualifiers = req.Qualifiers
	if len(qualifiers) == 0 && req.Primary != "" {
		qualifiers = []string{req.Primary}
	}
	if len(qualifiers) == 0 {
		return nil, nil, nil, ErrNoQualifiers
	}
	for _, q := range qualifiers {
		if !contains(req.Fields, q) {
			return nil, nil, nil, fmt.Errorf("%w: %s", ErrInvalidQualifier, q)
		}
	}
	insert = req.Fields
	if !contains(qualifiers, req.Identity) {
		insert = without(req.Fields, req.Identity)
	}
	update = without(without(req.Fields, qualifiers...), req.Primary, req.Identity)
	return qualifiers, insert, update, nil
}

// CreateUpdate implements Builder. Primary and identity fields are never
// updated.
func (b *BaseBuilder) CreateUpdate(req *UpdateRequest) (string, error) {
	if err := b.check(req.Table, ""); err != nil {
		return "", err
	}
	fields := without(req.Fields, req.Primary, req.Identity)
	if len(fields) == 0 {
		return "", ErrNoFields
	}
	return NewQueryBuilder(b.setting).
		Update().
		TableNameFrom(req.Table).
		Set().
		FieldsAndParametersFrom(fields, 0, "", ", ").
		WhereFrom(req.Where.WithPrefix(WherePrefix)).
		End().
		Build()
}

// CreateUpdateAll implements Builder. Every row is filtered by the
// qualifiers, or by the primary key when no qualifier is given.
func (b *BaseBuilder) CreateUpdateAll(req *UpdateRequest) (string, error) {
	if err := b.check(req.Table, ""); err != nil {
		return "", err
	}
	qualifiers := req.Qualifiers
	if len(qualifiers) == 0 && req.Primary != "" {
		qualifiers = []string{req.Primary}
	}
	if len(qualifiers) == 0 {
		return "", ErrNoQualifiers
	}
	fields := without(without(req.Fields, qualifiers...), req.Primary, req.Identity)
	if len(fields) == 0 {
		return "", ErrNoFields
	}
	rows := max(req.BatchSize, 1)
	if rows > 1 && !b.setting.MultiStatements {
		return "", fmt.Errorf("%w by %s", ErrMultiStatementsNotSupported, b.setting.Name)
	}
	qb := NewQueryBuilder(b.setting)
	for i := 0; i < rows; i++ {
		qb.Update().
			TableNameFrom(req.Table).
			Set().
			FieldsAndParametersFrom(fields, i, "", ", ").
			WriteText("WHERE").
			OpenParen().
			FieldsAndParametersFrom(qualifiers, i, WherePrefix, " AND ").
			CloseParen().
			End()
	}
	return qb.Build()
}

// CreateDelete implements Builder.
func (b *BaseBuilder) CreateDelete(req *DeleteRequest) (string, error) {
	if err := b.check(req.Table, req.Hints); err != nil {
		return "", err
	}
	return NewQueryBuilder(b.setting).
		Delete().
		From().
		TableNameFrom(req.Table).
		HintsFrom(req.Hints).
		WhereFrom(req.Where).
		End().
		Build()
}

// CreateDeleteAll implements Builder. Where is ignored.
func (b *BaseBuilder) CreateDeleteAll(req *DeleteRequest) (string, error) {
	r := *req
	r.Where = nil
	return b.CreateDelete(&r)
}

// CreateTruncate implements Builder.
func (b *BaseBuilder) CreateTruncate(req *TruncateRequest) (string, error) {
	if err := b.check(req.Table, ""); err != nil {
		return "", err
	}
	qb := NewQueryBuilder(b.setting)
	if b.truncate {
		qb.Truncate()
	} else {
		qb.Delete().From()
	}
	return qb.TableNameFrom(req.Table).End().Build()
}

func (b *BaseBuilder) check(table, hints string) error {
	if strings.TrimSpace(table) == "" {
		return ErrEmptyTable
	}
	if strings.TrimSpace(hints) != "" && !b.setting.TableHintsSupported {
		return fmt.Errorf("%w by %s", ErrHintsNotSupported, b.setting.Name)
	}
	return nil
}

// returnKey is the field returned by upserts: the identity, else the
// primary key.
func returnKey(primary, identity string) string {
	if identity != "" {
		return identity
	}
	return primary
}

func contains(fields []string, name string) bool {
	if name == "" {
		return false
	}
	for _, f := range fields {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

func without(fields []string, names ...string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !contains(names, f) {
			out = append(out, f)
		}
	}
	return out
}

func joinComma(parts []string) string { return strings.Join(parts, ", ") }
