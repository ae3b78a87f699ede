package mapping

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Audit struct {
	CreatedAt time.Time `db:"CreatedAt"`
}

type Address struct {
	City string
}

type Person struct {
	ID       int64  `db:"Id,primary,identity"`
	Name     string `db:"Name"`
	Age      *int
	Internal string `db:"-"`
	hidden   string
	Address  Address
	Audit
}

type Customer struct {
	CustomerId int
	Email      string
}

func (Customer) TableName() string { return "sales.Customer" }

type Order struct {
	Id    int
	Total float64
}

func TestPropertiesOf(t *testing.T) {
	props := PropertiesOf(reflect.TypeOf(&Person{}))
	assert.Equal(t, []string{"Id", "Name", "Age", "Address", "CreatedAt"}, props.Names())

	id := props.Find("id")
	require.NotNil(t, id)
	assert.True(t, id.Primary)
	assert.True(t, id.Identity)
	assert.Equal(t, "ID", id.FieldName)
	assert.Same(t, id, props.Find("ID"))
	assert.Nil(t, props.Find("City"))
	assert.Nil(t, props.Find("Internal"))
	assert.Nil(t, PropertiesOf(reflect.TypeOf(0)))
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "Person", TableName[Person]())
	assert.Equal(t, "sales.Customer", TableName[*Customer]())

	MapTable[Order]("[dbo].[Orders]")
	defer Unmap[Order]()
	assert.Equal(t, "[dbo].[Orders]", TableName[Order]())
}

func TestPrimaryAndIdentity(t *testing.T) {
	assert.Equal(t, "Id", PrimaryOf(reflect.TypeOf(Person{})).Name)
	assert.Equal(t, "Id", IdentityOf(reflect.TypeOf(Person{})).Name)
	assert.Equal(t, "CustomerId", PrimaryOf(reflect.TypeOf(Customer{})).Name)
	assert.Nil(t, IdentityOf(reflect.TypeOf(Customer{})))
	assert.Equal(t, "Id", PrimaryOf(reflect.TypeOf(Order{})).Name)

	MapPrimary[Customer]("email")
	MapIdentity[Customer]("CustomerId")
	defer Unmap[Customer]()
	assert.Equal(t, "Email", PrimaryOf(reflect.TypeOf(Customer{})).Name)
	assert.Equal(t, "CustomerId", IdentityOf(reflect.TypeOf(Customer{})).Name)
}

func TestToRecord(t *testing.T) {
	age := 30
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec, err := ToRecord(&Person{ID: 1, Name: "a", Age: &age, Audit: Audit{CreatedAt: created}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec["Id"])
	assert.Equal(t, "a", rec["Name"])
	assert.Equal(t, &age, rec["Age"])
	assert.Equal(t, created, rec["CreatedAt"])
	assert.NotContains(t, rec, "Internal")

	rec, err = ToRecord(Person{})
	require.NoError(t, err)
	assert.Nil(t, rec["Age"])

	rec, err = ToRecord(map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1}, rec)

	_, err = ToRecord(42)
	assert.ErrorIs(t, err, ErrEntity)
	_, err = ToRecord((*Person)(nil))
	assert.ErrorIs(t, err, ErrEntity)
}

func TestAssign(t *testing.T) {
	var (
		i     int
		i8    int8
		u     uint16
		f     float32
		b     bool
		s     string
		bs    []byte
		p     *int
		ts    time.Time
		ns    sql.NullString
		iface any
	)
	tests := []struct {
		name string
		dst  any
		src  any
		want any
	}{
		{"int_from_int64", &i, int64(7), 7},
		{"int_from_bytes", &i, []byte("42"), 42},
		{"int_from_decimal_text", &i, "3.0", 3},
		{"int8_from_int64", &i8, int64(-3), int8(-3)},
		{"uint_from_int64", &u, int64(9), uint16(9)},
		{"float_from_bytes", &f, []byte("1.5"), float32(1.5)},
		{"bool_from_int", &b, int64(1), true},
		{"bool_from_text", &b, "false", false},
		{"string_from_bytes", &s, []byte("abc"), "abc"},
		{"string_from_int", &s, int64(5), "5"},
		{"bytes_from_string", &bs, "xy", []byte("xy")},
		{"pointer", &p, int64(8), func() *int { v := 8; return &v }()},
		{"pointer_nil", &p, nil, (*int)(nil)},
		{"time_from_text", &ts, "2024-01-02 03:04:05", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"scanner", &ns, "v", sql.NullString{String: "v", Valid: true}},
		{"interface", &iface, []byte("raw"), []byte("raw")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := reflect.ValueOf(tt.dst).Elem()
			require.NoError(t, Assign(dst, tt.src))
			assert.Equal(t, tt.want, dst.Interface())
		})
	}

	require.NoError(t, Assign(reflect.ValueOf(&i).Elem(), nil))
	assert.Zero(t, i)
	assert.Error(t, Assign(reflect.ValueOf(&i8).Elem(), int64(1000)))
	assert.Error(t, Assign(reflect.ValueOf(&u).Elem(), int64(-1)))
	assert.Error(t, Assign(reflect.ValueOf(&i).Elem(), "abc"))
	assert.Error(t, Assign(reflect.ValueOf(i), int64(1)))
}

func TestScanStructs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"ID", "name", "Age", "Extra"}).
			AddRow(int64(1), []byte("Ann"), nil, "x").
			AddRow(int64(2), "Bob", int64(40), "y"),
	)
	rows, err := db.Query("SELECT")
	require.NoError(t, err)
	defer rows.Close()

	people, err := ScanStructs[*Person](rows)
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, int64(1), people[0].ID)
	assert.Equal(t, "Ann", people[0].Name)
	assert.Nil(t, people[0].Age)
	assert.Equal(t, 40, *people[1].Age)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanScalars(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(int64(3)).AddRow(int64(4)))
	rows, err := db.Query("SELECT")
	require.NoError(t, err)
	defer rows.Close()

	ids, err := ScanStructs[int](rows)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, ids)
}

func TestScanRecords(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("Name").OfType("VARCHAR", ""),
			sqlmock.NewColumn("Photo").OfType("BLOB", nil),
		).AddRow([]byte("Ann"), []byte{1, 2}),
	)
	rows, err := db.Query("SELECT")
	require.NoError(t, err)
	defer rows.Close()

	recs, err := ScanRecords(rows)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Ann", recs[0]["Name"])
	assert.Equal(t, []byte{1, 2}, recs[0]["Photo"])
}

func TestIsEntity(t *testing.T) {
	assert.True(t, IsEntity(reflect.TypeOf(Person{})))
	assert.True(t, IsEntity(reflect.TypeOf(&Person{})))
	assert.False(t, IsEntity(reflect.TypeOf(time.Time{})))
	assert.False(t, IsEntity(reflect.TypeOf(sql.NullInt64{})))
	assert.False(t, IsEntity(reflect.TypeOf("")))
}
