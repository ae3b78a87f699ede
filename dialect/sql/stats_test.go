package sql

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikependon/repodb/dialect"
)

func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	type slowCall struct{ op, query string }
	var slow []slowCall
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db),
		WithSlowThreshold(time.Nanosecond),
		WithSlowFunc(func(_ context.Context, op, query string, _ time.Duration) {
			slow = append(slow, slowCall{op, query})
		}),
	)

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("DELETE FROM").WillReturnError(errors.New("boom"))
	mock.ExpectExec("DELETE FROM").WillReturnResult(sqlmock.NewResult(0, 2))

	ctx := WithOperation(context.Background(), "DeleteAll")
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())
	require.Error(t, drv.Exec(ctx, "DELETE FROM [Person]", []any{}, nil))
	require.NoError(t, drv.Exec(ctx, "DELETE FROM [Person]", []any{}, nil))

	s := drv.Stats()
	require.Len(t, s, 2)
	assert.EqualValues(t, 1, s[Unattributed].Calls)
	assert.EqualValues(t, 2, s["DeleteAll"].Calls)
	assert.EqualValues(t, 1, s["DeleteAll"].Errors)
	assert.EqualValues(t, 2, s["DeleteAll"].Slow)
	assert.LessOrEqual(t, s["DeleteAll"].Avg(), s["DeleteAll"].Max)
	assert.EqualValues(t, 3, s.Sum().Calls)
	assert.Equal(t, []slowCall{
		{Unattributed, "SELECT 1"},
		{"DeleteAll", "DELETE FROM [Person]"},
		{"DeleteAll", "DELETE FROM [Person]"},
	}, slow)
	assert.Equal(t, dialect.SQLite, drv.Dialect())

	s["DeleteAll"] = OperationStats{}
	assert.EqualValues(t, 2, drv.Stats()["DeleteAll"].Calls, "snapshot is a copy")

	drv.Reset()
	assert.Empty(t, drv.Stats())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsDriverTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := NewStatsDriver(OpenDB(dialect.Postgres, db), WithSlowThreshold(time.Hour))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"a"}).AddRow(1))
	mock.ExpectCommit()

	ctx := WithOperation(context.Background(), "Update")
	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Exec(ctx, "UPDATE t SET a = 1", []any{}, nil))
	rows := &Rows{}
	require.NoError(t, tx.Query(WithOperation(ctx, "Query"), "SELECT a FROM t", []any{}, rows))
	require.NoError(t, rows.Close())
	require.NoError(t, tx.Commit())

	s := drv.Stats()
	assert.EqualValues(t, 1, s["Update"].Calls)
	assert.EqualValues(t, 1, s["Query"].Calls)
	assert.Zero(t, s.Sum().Slow)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsDriverSlowLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	drv := NewStatsDriver(OpenDB(dialect.MySQL, db),
		WithSlowThreshold(time.Nanosecond),
		WithSlowLog(slog.New(slog.NewTextHandler(&buf, nil))),
	)
	mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, drv.Exec(WithOperation(context.Background(), "Insert"), "INSERT INTO t VALUES (?)", []any{1}, nil))
	assert.Contains(t, buf.String(), "repodb: slow statement")
	assert.Contains(t, buf.String(), "operation=Insert")
	assert.Contains(t, buf.String(), `statement="INSERT INTO t VALUES (?)"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOperationFromContext(t *testing.T) {
	assert.Equal(t, Unattributed, OperationFromContext(context.Background()))
	assert.Equal(t, Unattributed, OperationFromContext(WithOperation(context.Background(), "")))
	assert.Equal(t, "Merge", OperationFromContext(WithOperation(context.Background(), "Merge")))
	assert.Zero(t, OperationStats{}.Avg())
	assert.Equal(t, "A: calls=2 errors=0 slow=0 avg=2s max=3s\nB: calls=0 errors=0 slow=0 avg=0s max=0s",
		Stats{"B": {}, "A": {Calls: 2, Total: 4 * time.Second, Max: 3 * time.Second}}.String())
}
