// Package statement renders SQL statements for the supported dialects.
//
// Statements use dialect neutral ":name" placeholders; see
// dialect.Setting.Rebind. Builders are registered per dialect and can be
// replaced with Register.
package statement

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mikependon/repodb/dialect"
	"github.com/mikependon/repodb/query"
)

// WherePrefix prefixes the parameters of the WHERE clause of UPDATE
// statements so they never collide with the SET parameters.
const WherePrefix = "_"

// Validation errors returned by the builders.
var (
	ErrEmptyTable                  = errors.New("statement: table name is empty")
	ErrNoFields                    = errors.New("statement: no fields to operate on")
	ErrNoOrderBy                   = errors.New("statement: batch query requires at least one order field")
	ErrInvalidPage                 = errors.New("statement: page must not be negative")
	ErrInvalidRowsPerPage          = errors.New("statement: rows per page must be positive")
	ErrNoQualifiers                = errors.New("statement: no qualifiers or primary key")
	ErrInvalidQualifier            = errors.New("statement: qualifier is not part of the fields")
	ErrHintsNotSupported           = errors.New("statement: table hints are not supported")
	ErrNoAggregateField            = errors.New("statement: aggregate requires a field")
	ErrMultiStatementsNotSupported = errors.New("statement: multiple statements per command are not supported")
)

// Aggregate is an aggregate function.
type Aggregate int

// Aggregate functions.
const (
	Average Aggregate = iota
	Max
	Min
	Sum
)

// String returns the SQL function name.
func (a Aggregate) String() string {
	switch a {
	case Max:
		return "MAX"
	case Min:
		return "MIN"
	case Sum:
		return "SUM"
	default:
		return "AVG"
	}
}

// Alias returns the column alias of the aggregate result.
func (a Aggregate) Alias() string {
	switch a {
	case Max:
		return "MaxValue"
	case Min:
		return "MinValue"
	case Sum:
		return "SumValue"
	default:
		return "AverageValue"
	}
}

type (
	// QueryRequest describes a SELECT.
	QueryRequest struct {
		Table   string
		Fields  []string
		Where   *query.QueryGroup
		OrderBy []query.OrderField
		Top     int
		Hints   string
	}

	// BatchQueryRequest describes a paged SELECT. Page is zero based.
	BatchQueryRequest struct {
		Table       string
		Fields      []string
		Where       *query.QueryGroup
		OrderBy     []query.OrderField
		Page        int
		RowsPerPage int
		Hints       string
	}

	// CountRequest describes a COUNT or an existence check.
	CountRequest struct {
		Table string
		Where *query.QueryGroup
		Hints string
	}

	// AggregateRequest describes an aggregate over a single field.
	AggregateRequest struct {
		Function Aggregate
		Table    string
		Field    string
		Where    *query.QueryGroup
		Hints    string
	}

	// InsertRequest describes an INSERT of BatchSize rows. The identity
	// field is excluded from the inserted columns and returned when the
	// dialect supports it.
	InsertRequest struct {
		Table     string
		Fields    []string
		Primary   string
		Identity  string
		BatchSize int
	}

	// MergeRequest describes an upsert matched on the qualifiers, or on the
	// primary key when no qualifier is given.
	MergeRequest struct {
		Table      string
		Fields     []string
		Qualifiers []string
		Primary    string
		Identity   string
		BatchSize  int
	}

	// UpdateRequest describes an UPDATE. CreateUpdate filters with Where;
	// CreateUpdateAll filters every row with the qualifiers.
	UpdateRequest struct {
		Table      string
		Fields     []string
		Where      *query.QueryGroup
		Qualifiers []string
		Primary    string
		Identity   string
		BatchSize  int
	}

	// DeleteRequest describes a DELETE.
	DeleteRequest struct {
		Table string
		Where *query.QueryGroup
		Hints string
	}

	// TruncateRequest describes the removal of every row of a table.
	TruncateRequest struct {
		Table string
	}
)

// Builder renders the statements of the repodb operations for a dialect.
type Builder interface {
	// Setting returns the dialect setting used to render statements.
	Setting() dialect.Setting

	CreateQuery(*QueryRequest) (string, error)
	CreateQueryAll(*QueryRequest) (string, error)
	CreateBatchQuery(*BatchQueryRequest) (string, error)
	CreateCount(*CountRequest) (string, error)
	CreateCountAll(*CountRequest) (string, error)
	CreateExists(*CountRequest) (string, error)
	CreateAggregate(*AggregateRequest) (string, error)
	CreateAggregateAll(*AggregateRequest) (string, error)
	CreateInsert(*InsertRequest) (string, error)
	CreateInsertAll(*InsertRequest) (string, error)
	CreateMerge(*MergeRequest) (string, error)
	CreateMergeAll(*MergeRequest) (string, error)
	CreateUpdate(*UpdateRequest) (string, error)
	CreateUpdateAll(*UpdateRequest) (string, error)
	CreateDelete(*DeleteRequest) (string, error)
	CreateDeleteAll(*DeleteRequest) (string, error)
	CreateTruncate(*TruncateRequest) (string, error)
}

var builders = struct {
	sync.RWMutex
	m map[string]Builder
}{
	m: map[string]Builder{
		dialect.SQLServer: NewSQLServer(),
		dialect.MySQL:     NewMySQL(),
		dialect.Postgres:  NewPostgres(),
		dialect.SQLite:    NewSQLite(),
	},
}

// Register adds or replaces the builder of a dialect.
func Register(name string, b Builder) {
	builders.Lock()
	defer builders.Unlock()
	builders.m[name] = b
}

// Get returns the builder registered for the given dialect or driver name.
func Get(name string) (Builder, bool) {
	builders.RLock()
	defer builders.RUnlock()
	if b, ok := builders.m[name]; ok {
		return b, true
	}
	b, ok := builders.m[dialect.Normalize(name)]
	return b, ok
}

// MustGet is like Get but panics if no builder is registered.
func MustGet(name string) Builder {
	b, ok := Get(name)
	if !ok {
		panic(fmt.Sprintf("statement: no builder registered for dialect %q", name))
	}
	return b
}
