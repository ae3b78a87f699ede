package repodb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/mikependon/repodb"
	"github.com/mikependon/repodb/cache"
	"github.com/mikependon/repodb/config"
	sqldriver "github.com/mikependon/repodb/dialect/sql"
	"github.com/mikependon/repodb/query"
	"github.com/mikependon/repodb/trace"
)

type person struct {
	ID   int64  `db:"Id,primary,identity"`
	Name string `db:"Name"`
	Age  int    `db:"Age"`
	Note string `db:"-"`
	// Missing has no column and is never written.
	Missing string
}

func (person) TableName() string { return "Person" }

func openSQLite(t *testing.T, opts ...repodb.Option) *repodb.DB {
	t.Helper()
	db, err := repodb.Open("sqlite", ":memory:", opts...)
	require.NoError(t, err)
	db.Driver().(*sqldriver.Driver).DB().SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = repodb.ExecuteNonQuery(context.Background(), db,
		"CREATE TABLE Person (Id INTEGER PRIMARY KEY AUTOINCREMENT, Name TEXT NOT NULL, Age INTEGER NOT NULL DEFAULT 0);", nil)
	require.NoError(t, err)
	return db
}

func TestTypedOperations(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	p := &person{Name: "John", Age: 30}
	id, err := repodb.Insert(ctx, db, p)
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)
	assert.EqualValues(t, 1, p.ID)

	people := []person{{Name: "Jane", Age: 25}, {Name: "Jack", Age: 40}, {Name: "Jill", Age: 35}}
	n, err := repodb.InsertAll(ctx, db, people)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.EqualValues(t, []int64{2, 3, 4}, []int64{people[0].ID, people[1].ID, people[2].ID})

	got, err := repodb.Query[person](ctx, db, query.Eq("Name", "Jane"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 25, got[0].Age)

	got, err = repodb.Query[person](ctx, db, int64(3))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Jack", got[0].Name)

	all, err := repodb.QueryAll[person](ctx, db, repodb.WithOrderBy(query.Desc("Age")))
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "Jack", all[0].Name)

	page, err := repodb.BatchQuery[person](ctx, db, 1, 2, []query.OrderField{query.Asc("Id")}, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, []string{"Jack", "Jill"}, []string{page[0].Name, page[1].Name})

	count, err := repodb.Count[person](ctx, db, query.Gt("Age", 28))
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	count, err = repodb.CountAll[person](ctx, db)
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)

	ok, err := repodb.Exists[person](ctx, db, map[string]any{"Name": "Jill"})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repodb.Exists[person](ctx, db, map[string]any{"Name": "Nobody"})
	require.NoError(t, err)
	assert.False(t, ok)

	sum, err := repodb.SumAll[person](ctx, db, "Age")
	require.NoError(t, err)
	assert.Equal(t, float64(130), sum)
	avg, err := repodb.Average[person](ctx, db, "Age", query.In("Id", 1, 2))
	require.NoError(t, err)
	assert.Equal(t, 27.5, avg)
	maxAge, err := repodb.MaxAll[person](ctx, db, "Age")
	require.NoError(t, err)
	assert.EqualValues(t, 40, maxAge)
	minAge, err := repodb.Min[person](ctx, db, "Age", query.Gt("Age", 25))
	require.NoError(t, err)
	assert.EqualValues(t, 30, minAge)

	p.Age = 31
	affected, err := repodb.Update(ctx, db, *p)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	affected, err = repodb.Update(ctx, db, person{Age: 99}, repodb.WithFields("Age"), repodb.WithWhere(query.Like("Name", "J%k")))
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	people[0].Age, people[2].Age = 26, 36
	affected, err = repodb.UpdateAll(ctx, db, []person{people[0], people[2]})
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)

	got, err = repodb.Query[person](ctx, db, query.In("Id", 1, 2, 3, 4), repodb.WithOrderBy(query.Asc("Id")))
	require.NoError(t, err)
	assert.Equal(t, []int{31, 26, 99, 36}, []int{got[0].Age, got[1].Age, got[2].Age, got[3].Age})

	merged := &person{ID: 2, Name: "Janet", Age: 27}
	key, err := repodb.Merge(ctx, db, merged)
	require.NoError(t, err)
	assert.EqualValues(t, 2, key)
	fresh := &person{ID: 10, Name: "Zoe", Age: 20}
	_, err = repodb.Merge(ctx, db, fresh)
	require.NoError(t, err)
	n, err = repodb.MergeAll(ctx, db, []person{{ID: 10, Name: "Zoey", Age: 21}, {ID: 11, Name: "Max", Age: 50}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err = repodb.Query[person](ctx, db, merged)
	require.NoError(t, err)
	assert.Equal(t, "Janet", got[0].Name)
	got, err = repodb.Query[person](ctx, db, int64(10))
	require.NoError(t, err)
	assert.Equal(t, "Zoey", got[0].Name)

	affected, err = repodb.Delete[person](ctx, db, merged)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	_, err = repodb.Delete[person](ctx, db, nil)
	require.ErrorIs(t, err, repodb.ErrEmptyWhere)

	affected, err = repodb.DeleteAll[person](ctx, db, []any{int64(10), &person{ID: 11}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)

	affected, err = repodb.DeleteAll[person](ctx, db, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, affected)

	_, err = repodb.Insert(ctx, db, &person{Name: "Last"})
	require.NoError(t, err)
	_, err = repodb.Truncate[person](ctx, db)
	require.NoError(t, err)
	count, err = repodb.CountAll[person](ctx, db)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestOperationErrors(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	_, err := repodb.InsertAll[person](ctx, db, nil)
	require.ErrorIs(t, err, repodb.ErrEmptyEntities)
	assert.True(t, repodb.IsMutationError(err))

	_, err = repodb.Insert(ctx, db, &person{Name: "x"}, repodb.WithFields("Unknown"))
	require.ErrorIs(t, err, repodb.ErrMissingFields)

	_, err = repodb.Merge(ctx, db, &person{Name: "x"}, repodb.WithQualifiers("Unknown"))
	assert.True(t, repodb.IsValidationError(err))

	_, err = repodb.Query[person](ctx, db, struct{ X chan int }{})
	require.Error(t, err)
	assert.True(t, repodb.IsQueryError(err))

	_, err = repodb.SumAll[person](ctx, db, "Unknown")
	assert.True(t, repodb.IsValidationError(err))

	type ghost struct {
		ID int64 `db:"Id"`
	}
	_, err = repodb.QueryAll[ghost](ctx, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading fields of ghost")
}

func TestTableOperations(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	people := repodb.Table(db, "Person")

	rec := repodb.Record{"name": "John", "Age": 30, "Unknown": true}
	id, err := people.Insert(ctx, rec)
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)
	assert.EqualValues(t, 1, rec["Id"])

	n, err := people.InsertAll(ctx, []repodb.Record{{"Name": "Jane", "Age": 25}, {"Name": "Jack", "Age": 40}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := people.Query(ctx, query.Eq("Name", "Jack"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Jack", rows[0]["Name"])
	assert.EqualValues(t, 40, rows[0]["Age"])

	rows, err = people.QueryAll(ctx, repodb.WithFields("Name"), repodb.WithOrderBy(query.Asc("Name")))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, repodb.Record{"Name": "Jack"}, rows[0])

	affected, err := people.Update(ctx, repodb.Record{"Id": 2, "Age": 26})
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	_, err = people.Merge(ctx, repodb.Record{"Id": 3, "Name": "Jacques", "Age": 41})
	require.NoError(t, err)

	count, err := people.Count(ctx, query.Gte("Age", 26))
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	sum, err := people.SumAll(ctx, "Age")
	require.NoError(t, err)
	assert.Equal(t, float64(97), sum)

	ok, err := people.Exists(ctx, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	affected, err = people.Delete(ctx, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	affected, err = people.DeleteAll(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)
}

func TestMergeNewRows(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	a, b := &person{Name: "A", Age: 1}, &person{Name: "B", Age: 2}
	key, err := repodb.Merge(ctx, db, a)
	require.NoError(t, err)
	assert.EqualValues(t, 1, key)
	key, err = repodb.Merge(ctx, db, b)
	require.NoError(t, err)
	assert.EqualValues(t, 2, key)
	assert.Equal(t, []int64{1, 2}, []int64{a.ID, b.ID})

	people := []person{{ID: 1, Name: "Ann", Age: 1}, {Name: "C", Age: 3}}
	n, err := repodb.MergeAll(ctx, db, people)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.EqualValues(t, 3, people[1].ID)

	rec := repodb.Record{"Name": "New", "Age": 4}
	key, err = repodb.Table(db, "Person").Merge(ctx, rec)
	require.NoError(t, err)
	assert.EqualValues(t, 4, key)
	assert.EqualValues(t, 4, rec["Id"])

	all, err := repodb.QueryAll[person](ctx, db, repodb.WithOrderBy(query.Asc("Id")))
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []string{"Ann", "B", "C", "New"}, []string{all[0].Name, all[1].Name, all[2].Name, all[3].Name})
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	_, err := repodb.InsertAll(ctx, db, []person{{Name: "John", Age: 30}, {Name: "Jane", Age: 25}})
	require.NoError(t, err)

	people, err := repodb.ExecuteQuery[person](ctx, db, "SELECT * FROM Person WHERE Age > :Age ORDER BY Id;", map[string]any{"Age": 26})
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "John", people[0].Name)

	names, err := repodb.ExecuteQuery[string](ctx, db, "SELECT Name FROM Person ORDER BY Name;", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Jane", "John"}, names)

	recs, err := repodb.ExecuteQueryRecords(ctx, db, "SELECT Name FROM Person WHERE Name = :Name;", struct{ Name string }{"Jane"})
	require.NoError(t, err)
	assert.Equal(t, []repodb.Record{{"Name": "Jane"}}, recs)

	total, err := repodb.ExecuteScalar[int](ctx, db, "SELECT SUM(Age) FROM Person;", nil)
	require.NoError(t, err)
	assert.Equal(t, 55, total)

	affected, err := repodb.ExecuteNonQuery(ctx, db, "UPDATE Person SET Age = Age + 1;", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)

	clock, err := repodb.ExecuteScalar[string](ctx, db, "SELECT '10:30';", nil)
	require.NoError(t, err)
	assert.Equal(t, "10:30", clock)
	label, err := repodb.ExecuteScalar[string](ctx, db, "SELECT '10::30 ' || Name FROM Person WHERE Id = :Id;", map[string]any{"Id": 1})
	require.NoError(t, err)
	assert.Equal(t, "10:30 John", label)

	_, err = repodb.ExecuteQuery[person](ctx, db, "SELECT * FROM Person WHERE Id = :Id;", map[string]any{"Name": "x"})
	require.Error(t, err)
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	repo := repodb.NewRepository[person](db)
	assert.Equal(t, "Person", repo.TableName())

	id, err := repo.Insert(ctx, &person{Name: "John", Age: 30})
	require.NoError(t, err)

	p, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "John", p.Name)

	_, err = repo.Get(ctx, int64(42))
	require.ErrorIs(t, err, repodb.ErrNotFound)
	var nf *repodb.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Person", nf.Table())

	errBoom := errors.New("boom")
	err = repo.WithTx(ctx, func(r *repodb.Repository[person]) error {
		if _, err := r.Insert(ctx, &person{Name: "Rolled", Age: 1}); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	err = repo.WithTx(ctx, func(r *repodb.Repository[person]) error {
		_, err := r.Insert(ctx, &person{Name: "Kept", Age: 2})
		return err
	})
	require.NoError(t, err)

	n, err := repo.CountAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	ok, err := repo.Exists(ctx, query.Eq("Name", "Rolled"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryGetCache(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemory()
	db := openSQLite(t, repodb.WithCache(mem))
	_, err := repodb.InsertAll(ctx, db, []person{{Name: "John"}, {Name: "Jane"}})
	require.NoError(t, err)

	repo := repodb.NewRepository[person](db, repodb.WithCacheKey("person"))
	john, err := repo.Get(ctx, int64(1))
	require.NoError(t, err)
	assert.Equal(t, "John", john.Name)
	jane, err := repo.Get(ctx, int64(2))
	require.NoError(t, err)
	assert.Equal(t, "Jane", jane.Name)
	assert.Equal(t, 2, mem.Len())
	data, err := mem.Get(ctx, "person:2")
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	// The options of the caller are not written past their length.
	opts := make([]repodb.QueryOption, 1, 4)
	opts[0] = repodb.WithFields("Id", "Name")
	_, err = repo.Get(ctx, int64(1), opts...)
	require.NoError(t, err)
	assert.Nil(t, opts[:2][1])
}

func TestWithTxPanic(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	assert.Panics(t, func() {
		db.WithTx(ctx, func(tx *repodb.Tx) error {
			repodb.Insert(ctx, tx, &person{Name: "Panic"})
			panic("boom")
		})
	})
	n, err := repodb.CountAll[person](ctx, db)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueryCache(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemory()
	db := openSQLite(t, repodb.WithCache(mem))
	_, err := repodb.Insert(ctx, db, &person{Name: "John", Age: 30})
	require.NoError(t, err)

	people, err := repodb.QueryAll[person](ctx, db, repodb.WithCacheKey("people"))
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, 1, mem.Len())

	_, err = repodb.Insert(ctx, db, &person{Name: "Jane", Age: 25})
	require.NoError(t, err)
	people, err = repodb.QueryAll[person](ctx, db, repodb.WithCacheKey("people"))
	require.NoError(t, err)
	assert.Len(t, people, 1, "cached result")

	people, err = repodb.QueryAll[person](ctx, db)
	require.NoError(t, err)
	assert.Len(t, people, 2)

	require.NoError(t, mem.Delete(ctx, "people"))
	recs, err := repodb.Table(db, "Person").QueryAll(ctx, repodb.WithCacheKey("records"))
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, 1, mem.Len())
}

func TestTraceCancel(t *testing.T) {
	ctx := context.Background()
	var (
		keys  []string
		throw bool
	)
	tr := trace.Funcs{
		Before: func(_ context.Context, l *trace.CancellableLog) {
			if l.Key == "skip" {
				l.Cancel(throw)
			}
		},
		After: func(_ context.Context, l *trace.ResultLog) {
			keys = append(keys, l.Key)
		},
	}
	db := openSQLite(t, repodb.WithTrace(tr))

	id, err := repodb.Insert(ctx, db, &person{Name: "John"}, repodb.WithTraceKey("skip"))
	require.NoError(t, err)
	assert.Nil(t, id)

	throw = true
	_, err = repodb.Insert(ctx, db, &person{Name: "John"}, repodb.WithTraceKey("skip"))
	require.ErrorIs(t, err, repodb.ErrCancelled)

	n, err := repodb.CountAll[person](ctx, db)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, keys, "CountAll")
	assert.NotContains(t, keys, "skip")
}

func TestOpenConfigStats(t *testing.T) {
	ctx := context.Background()
	_, ok := openSQLite(t).Stats()
	assert.False(t, ok)

	cfg := config.Config{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1, SlowQueryThreshold: time.Hour}
	cfg.SetDefaults()
	db, err := repodb.OpenConfig(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	_, err = repodb.ExecuteNonQuery(ctx, db,
		"CREATE TABLE Person (Id INTEGER PRIMARY KEY AUTOINCREMENT, Name TEXT NOT NULL, Age INTEGER NOT NULL DEFAULT 0);", nil)
	require.NoError(t, err)
	_, err = repodb.Insert(ctx, db, &person{Name: "John"})
	require.NoError(t, err)
	err = db.WithTx(ctx, func(tx *repodb.Tx) error {
		_, err := repodb.Insert(ctx, tx, &person{Name: "Jane"})
		return err
	})
	require.NoError(t, err)
	people, err := repodb.QueryAll[person](ctx, db, repodb.WithTraceKey("people"))
	require.NoError(t, err)
	assert.Len(t, people, 2)
	_, err = repodb.ExecuteNonQuery(ctx, db, "DELETE FROM Missing;", nil)
	require.Error(t, err)

	stats, ok := db.Stats()
	require.True(t, ok)
	assert.EqualValues(t, 2, stats["Insert"].Calls, "statements in a transaction are counted")
	assert.EqualValues(t, 1, stats["people"].Calls)
	assert.EqualValues(t, 2, stats["ExecuteNonQuery"].Calls)
	assert.EqualValues(t, 1, stats["ExecuteNonQuery"].Errors)
	assert.Zero(t, stats.Sum().Slow)
	assert.Contains(t, stats.String(), "Insert: calls=2 errors=0 slow=0")
}
