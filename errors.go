package repodb

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("repodb: entity not found")

	// ErrMissingFields is returned when none of the properties of an entity
	// or the keys of a record match a column of the table.
	ErrMissingFields = errors.New("repodb: no matching fields between the entity and the table")

	// ErrPrimaryKeyNotFound is returned when an operation needs a key but
	// neither the entity nor the table declares one.
	ErrPrimaryKeyNotFound = errors.New("repodb: primary key not found")

	// ErrEmptyEntities is returned by the batch operations when called
	// without entities.
	ErrEmptyEntities = errors.New("repodb: no entities given")

	// ErrEmptyWhere is returned by Delete when the filter matches every
	// row. DeleteAll removes every row.
	ErrEmptyWhere = errors.New("repodb: delete without a filter")

	// ErrCancelled is returned when a trace cancels an execution and asks
	// for an error.
	ErrCancelled = errors.New("repodb: execution cancelled by trace")

	// ErrUnsupportedDialect is returned when no statement builder or schema
	// helper is registered for the dialect of a driver.
	ErrUnsupportedDialect = errors.New("repodb: unsupported dialect")

	// errSkipped is returned internally when a trace cancels an execution
	// silently. Operations return their zero value instead.
	errSkipped = errors.New("repodb: execution skipped by trace")
)

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	table string
	key   any
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.key != nil {
		return fmt.Sprintf("repodb: %s not found (key=%v)", e.table, e.key)
	}
	return fmt.Sprintf("repodb: %s not found", e.table)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Table returns the table that was searched.
func (e *NotFoundError) Table() string {
	return e.table
}

// Key returns the key that was searched for, if available.
func (e *NotFoundError) Key() any {
	return e.key
}

// NewNotFoundError returns a new NotFoundError for the table and the key
// that was searched for. The key may be nil.
func NewNotFoundError(table string, key any) *NotFoundError {
	return &NotFoundError{table: table, key: key}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("repodb: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// ValidationError reports an argument rejected before any statement is
// executed.
type ValidationError struct {
	Name string // Argument, field or table name
	Err  error  // Underlying validation error
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("repodb: invalid %s: %s", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError returns a new ValidationError for the given name.
func NewValidationError(name string, err error) *ValidationError {
	return &ValidationError{Name: name, Err: err}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Original error that triggered rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("repodb: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "repodb: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("repodb: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}

// QueryError wraps a failed read with the table and operation.
type QueryError struct {
	Table string // Table being queried
	Op    string // Operation (e.g., "Query", "Count", "Exists")
	Err   error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("repodb: querying %s (%s): %v", e.Table, e.Op, e.Err)
	}
	return fmt.Sprintf("repodb: querying %s: %v", e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(table, op string, err error) *QueryError {
	return &QueryError{Table: table, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a failed write with the table and operation.
type MutationError struct {
	Table string // Table being mutated
	Op    string // Operation (e.g., "Insert", "Update", "Delete")
	Err   error  // Underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("repodb: %s %s: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(table, op string, err error) *MutationError {
	return &MutationError{Table: table, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}
