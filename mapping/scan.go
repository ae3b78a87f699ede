package mapping

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Rows is the subset of *sql.Rows the scanners need. It is satisfied by
// dialect/sql.Rows and *sql.Rows.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// ErrEntity is returned when a value is neither a struct nor a pointer to
// a struct where an entity is expected.
var ErrEntity = errors.New("mapping: entity must be a struct or a pointer to a struct")

// ToRecord extracts the column values of an entity, keyed by column name.
// Maps with string keys are copied.
func ToRecord(entity any) (map[string]any, error) {
	if m, ok := entity.(map[string]any); ok {
		rec := make(map[string]any, len(m))
		for k, v := range m {
			rec[k] = v
		}
		return rec, nil
	}
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, ErrEntity
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, ErrEntity
	}
	props := PropertiesOf(v.Type())
	rec := make(map[string]any, len(props))
	for _, p := range props {
		rec[p.Name] = p.Value(v)
	}
	return rec, nil
}

// IsEntity reports whether t is a struct type that maps onto a table.
// time.Time and types implementing sql.Scanner are treated as scalars.
func IsEntity(t reflect.Type) bool {
	t = indirect(t)
	if t.Kind() != reflect.Struct || t == timeType {
		return false
	}
	return !reflect.PointerTo(t).Implements(scannerType)
}

// ScanStructs reads every remaining row into a value of T. Columns are
// matched to properties case-insensitively; unmatched columns are
// dropped. When T is not an entity the first column of each row is
// assigned to it.
func ScanStructs[T any](rows Rows) ([]T, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	var targets []*Property
	if IsEntity(t) {
		props := PropertiesOf(t)
		targets = make([]*Property, len(columns))
		for i, c := range columns {
			targets[i] = props.Find(c)
		}
	} else if len(columns) == 0 {
		return nil, fmt.Errorf("mapping: no columns to scan into %s", t)
	}
	var (
		result []T
		values = make([]any, len(columns))
		dest   = make([]any, len(columns))
	)
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		var item T
		v := reflect.ValueOf(&item).Elem()
		if targets == nil {
			if err := Assign(v, values[0]); err != nil {
				return nil, fmt.Errorf("mapping: column %q: %w", columns[0], err)
			}
		} else {
			if v.Kind() == reflect.Pointer {
				v.Set(reflect.New(v.Type().Elem()))
			}
			for i, p := range targets {
				if p == nil {
					continue
				}
				if err := p.Set(v, values[i]); err != nil {
					return nil, fmt.Errorf("mapping: column %q: %w", columns[i], err)
				}
			}
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

// ScanRecords reads every remaining row into a map keyed by column name.
// Text values returned as bytes are converted to strings unless the
// column is a binary type.
func ScanRecords(rows Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	binary := binaryColumns(rows, columns)
	var result []map[string]any
	for rows.Next() {
		rec := make(map[string]any, len(columns))
		if err := sqlx.MapScan(rows, rec); err != nil {
			return nil, err
		}
		for k, v := range rec {
			if b, ok := v.([]byte); ok {
				if binary[k] {
					rec[k] = append([]byte(nil), b...)
				} else {
					rec[k] = string(b)
				}
			}
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func binaryColumns(rows Rows, columns []string) map[string]bool {
	binary := make(map[string]bool)
	ct, ok := rows.(interface {
		ColumnTypes() ([]*sql.ColumnType, error)
	})
	if !ok {
		return binary
	}
	types, err := ct.ColumnTypes()
	if err != nil {
		return binary
	}
	for i, t := range types {
		if i < len(columns) && isBinaryType(t.DatabaseTypeName()) {
			binary[columns[i]] = true
		}
	}
	return binary
}

func isBinaryType(name string) bool {
	name = strings.ToUpper(name)
	for _, b := range []string{"BLOB", "BINARY", "BYTEA", "IMAGE", "ROWVERSION"} {
		if strings.Contains(name, b) {
			return true
		}
	}
	return false
}
