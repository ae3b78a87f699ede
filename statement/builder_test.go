package statement

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikependon/repodb/dialect"
	"github.com/mikependon/repodb/query"
)

type statementTest struct {
	name  string
	build func() (string, error)
	want  string
}

func runStatementTests(t *testing.T, tests []statementTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := tt.build()
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

var personFields = []string{"Id", "Name", "Age"}

func TestQueryBuilder(t *testing.T) {
	s, _ := dialect.Get(dialect.SQLServer)
	qb := NewQueryBuilder(s)
	text, err := qb.Select().
		Top(3).
		FieldsFrom([]string{"Id", "Name"}).
		From().
		TableNameFrom("dbo.Person").
		HintsFrom(query.NoLock).
		WhereFrom(query.And(query.Eq("Id", 1))).
		OrderByFrom([]query.OrderField{query.Desc("Id")}).
		End().
		Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT TOP (3) [Id], [Name] FROM [dbo].[Person] WITH (NOLOCK) WHERE ([Id] = :Id) ORDER BY [Id] DESC;", text)

	text, err = qb.Clear().
		InsertInto().
		TableNameFrom("Person").
		OpenParen().
		FieldsFrom([]string{"A", "B"}).
		CloseParen().
		Values().
		OpenParen().
		ParametersFrom([]string{"A", "B"}, 2).
		CloseParen().
		End().
		Build()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO [Person] ([A], [B]) VALUES (:A_2, :B_2);", text)

	_, err = qb.Clear().
		Select().
		WhereFrom(&query.QueryGroup{Fields: []*query.QueryField{query.NewQueryField("Age", query.OpBetween, 1)}}).
		Build()
	require.Error(t, err)
	assert.Error(t, qb.Err())
}

func TestParamName(t *testing.T) {
	assert.Equal(t, "Name", ParamName("Name", 0))
	assert.Equal(t, "Name_3", ParamName("[Name]", 3))
	assert.Equal(t, ":First_Name_1", Placeholder("First Name", 1))
}

func TestAggregate(t *testing.T) {
	assert.Equal(t, "AVG", Average.String())
	assert.Equal(t, "MaxValue", Max.Alias())
	assert.Equal(t, "MIN", Min.String())
	assert.Equal(t, "SumValue", Sum.Alias())
}

func TestValidation(t *testing.T) {
	sqlite := NewSQLite()
	tests := []struct {
		name  string
		build func() (string, error)
		err   error
	}{
		{
			name:  "empty_table",
			build: func() (string, error) { return sqlite.CreateQuery(&QueryRequest{Fields: personFields}) },
			err:   ErrEmptyTable,
		},
		{
			name:  "no_fields",
			build: func() (string, error) { return sqlite.CreateQuery(&QueryRequest{Table: "Person"}) },
			err:   ErrNoFields,
		},
		{
			name: "batch_without_order",
			build: func() (string, error) {
				return sqlite.CreateBatchQuery(&BatchQueryRequest{Table: "Person", Fields: personFields, RowsPerPage: 10})
			},
			err: ErrNoOrderBy,
		},
		{
			name: "negative_page",
			build: func() (string, error) {
				return sqlite.CreateBatchQuery(&BatchQueryRequest{
					Table: "Person", Fields: personFields, OrderBy: []query.OrderField{query.Asc("Id")}, Page: -1, RowsPerPage: 10,
				})
			},
			err: ErrInvalidPage,
		},
		{
			name: "zero_rows_per_page",
			build: func() (string, error) {
				return sqlite.CreateBatchQuery(&BatchQueryRequest{
					Table: "Person", Fields: personFields, OrderBy: []query.OrderField{query.Asc("Id")},
				})
			},
			err: ErrInvalidRowsPerPage,
		},
		{
			name: "hints",
			build: func() (string, error) {
				return sqlite.CreateQuery(&QueryRequest{Table: "Person", Fields: personFields, Hints: query.NoLock})
			},
			err: ErrHintsNotSupported,
		},
		{
			name: "merge_without_qualifiers",
			build: func() (string, error) {
				return sqlite.CreateMerge(&MergeRequest{Table: "Person", Fields: personFields})
			},
			err: ErrNoQualifiers,
		},
		{
			name: "merge_unknown_qualifier",
			build: func() (string, error) {
				return sqlite.CreateMerge(&MergeRequest{Table: "Person", Fields: personFields, Qualifiers: []string{"Email"}})
			},
			err: ErrInvalidQualifier,
		},
		{
			name: "merge_batch",
			build: func() (string, error) {
				return sqlite.CreateMergeAll(&MergeRequest{Table: "Person", Fields: personFields, Primary: "Id", BatchSize: 2})
			},
			err: ErrMultiStatementsNotSupported,
		},
		{
			name: "update_batch",
			build: func() (string, error) {
				return sqlite.CreateUpdateAll(&UpdateRequest{Table: "Person", Fields: personFields, Primary: "Id", BatchSize: 2})
			},
			err: ErrMultiStatementsNotSupported,
		},
		{
			name: "update_only_keys",
			build: func() (string, error) {
				return sqlite.CreateUpdate(&UpdateRequest{Table: "Person", Fields: []string{"Id"}, Primary: "Id"})
			},
			err: ErrNoFields,
		},
		{
			name: "insert_only_identity",
			build: func() (string, error) {
				return sqlite.CreateInsert(&InsertRequest{Table: "Person", Fields: []string{"Id"}, Identity: "Id"})
			},
			err: ErrNoFields,
		},
		{
			name:  "aggregate_without_field",
			build: func() (string, error) { return sqlite.CreateAggregate(&AggregateRequest{Table: "Person"}) },
			err:   ErrNoAggregateField,
		},
		{
			name:  "truncate_without_table",
			build: func() (string, error) { return sqlite.CreateTruncate(&TruncateRequest{}) },
			err:   ErrEmptyTable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}
}

type auditedBuilder struct {
	*BaseBuilder
}

func (b auditedBuilder) CreateTruncate(req *TruncateRequest) (string, error) {
	return "DELETE FROM " + b.Setting().Quote(req.Table) + "; DELETE FROM [sqlite_sequence];", nil
}

func TestRegistry(t *testing.T) {
	b, ok := Get("sqlite3")
	require.True(t, ok)
	assert.Equal(t, dialect.SQLite, b.Setting().Name)

	_, ok = Get("oracle")
	assert.False(t, ok)
	assert.Panics(t, func() { MustGet("oracle") })

	Register("sqlite-audited", auditedBuilder{NewSQLite()})
	b = MustGet("sqlite-audited")
	text, err := b.CreateTruncate(&TruncateRequest{Table: "Person"})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM [Person]; DELETE FROM [sqlite_sequence];", text)
	text, err = b.CreateCountAll(&CountRequest{Table: "Person"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) AS [CountValue] FROM [Person];", text)
}
