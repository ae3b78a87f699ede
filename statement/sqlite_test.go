package statement

import (
	"testing"

	"github.com/mikependon/repodb/query"
)

func TestSQLiteBuilder(t *testing.T) {
	b := NewSQLite()
	runStatementTests(t, []statementTest{
		{
			name: "query",
			build: func() (string, error) {
				return b.CreateQuery(&QueryRequest{Table: "Person", Fields: []string{"Id", "Name"}, Top: 5})
			},
			want: "SELECT [Id], [Name] FROM [Person] LIMIT 5;",
		},
		{
			name: "batch_query",
			build: func() (string, error) {
				return b.CreateBatchQuery(&BatchQueryRequest{
					Table: "Person", Fields: []string{"Id", "Name"},
					OrderBy: []query.OrderField{query.Asc("Id")}, RowsPerPage: 3,
				})
			},
			want: "SELECT [Id], [Name] FROM [Person] ORDER BY [Id] ASC LIMIT 3 OFFSET 0;",
		},
		{
			name: "exists",
			build: func() (string, error) {
				return b.CreateExists(&CountRequest{Table: "Person", Where: query.And(query.Like("Name", "J%"))})
			},
			want: "SELECT 1 AS [ExistsValue] FROM [Person] WHERE ([Name] LIKE :Name) LIMIT 1;",
		},
		{
			name: "min",
			build: func() (string, error) {
				return b.CreateAggregate(&AggregateRequest{Function: Min, Table: "Person", Field: "Age", Where: query.And(query.Gt("Age", 0))})
			},
			want: "SELECT MIN([Age]) AS [MinValue] FROM [Person] WHERE ([Age] > :Age);",
		},
		{
			name: "insert",
			build: func() (string, error) {
				return b.CreateInsert(&InsertRequest{Table: "Person", Fields: personFields, Identity: "Id"})
			},
			want: "INSERT INTO [Person] ([Name], [Age]) VALUES (:Name, :Age);",
		},
		{
			name: "merge",
			build: func() (string, error) {
				return b.CreateMerge(&MergeRequest{Table: "Person", Fields: []string{"Id", "Name"}, Primary: "Id", Identity: "Id"})
			},
			want: "INSERT INTO [Person] ([Id], [Name]) VALUES (:Id, :Name) ON CONFLICT ([Id]) DO UPDATE SET [Name] = excluded.[Name];",
		},
		{
			name: "delete",
			build: func() (string, error) {
				return b.CreateDelete(&DeleteRequest{Table: "Person", Where: query.And(query.In("Id", 1, 2))})
			},
			want: "DELETE FROM [Person] WHERE ([Id] IN (:Id_In_0, :Id_In_1));",
		},
		{
			name:  "truncate",
			build: func() (string, error) { return b.CreateTruncate(&TruncateRequest{Table: "Person"}) },
			want:  "DELETE FROM [Person];",
		},
	})
}
