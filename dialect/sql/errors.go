package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlNotNull                = 1048
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// sqlStateError is implemented by drivers exposing SQLSTATE codes (pgx and others).
type sqlStateError interface {
	SQLState() string
}

// IsConstraintError reports whether err resulted from any database constraint violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err) ||
		IsNotNullConstraintError(err)
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
func IsUniqueConstraintError(err error) bool {
	return matches(err, []string{pgUniqueViolation}, []uint16{mysqlDuplicateEntry},
		"Error 1062",                 // MySQL
		"violates unique constraint", // Postgres
		"UNIQUE constraint failed",   // SQLite
		"Violation of PRIMARY KEY constraint",
		"Violation of UNIQUE KEY constraint",
		"Cannot insert duplicate key", // SQL Server
	)
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
func IsForeignKeyConstraintError(err error) bool {
	return matches(err, []string{pgForeignKeyViolation}, []uint16{mysqlForeignKeyParent, mysqlForeignKeyChild},
		"Error 1451",
		"Error 1452",
		"violates foreign key constraint",
		"FOREIGN KEY constraint failed",
		"conflicted with the FOREIGN KEY constraint",
		"conflicted with the REFERENCE constraint",
	)
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
func IsCheckConstraintError(err error) bool {
	return matches(err, []string{pgCheckViolation}, []uint16{mysqlCheckConstraintViolate},
		"Error 3819",
		"violates check constraint",
		"CHECK constraint failed",
		"conflicted with the CHECK constraint",
	)
}

// IsNotNullConstraintError reports if the error resulted from writing NULL into a NOT NULL column.
func IsNotNullConstraintError(err error) bool {
	return matches(err, []string{pgNotNullViolation}, []uint16{mysqlNotNull},
		"Error 1048",
		"violates not-null constraint",
		"NOT NULL constraint failed",
		"Cannot insert the value NULL",
	)
}

// matches classifies err by Postgres SQLSTATE, MySQL error number and,
// for drivers without typed errors (SQLite, SQL Server), by message.
func matches(err error, states []string, numbers []uint16, messages ...string) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return contains(states, string(pqErr.Code))
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		for _, n := range numbers {
			if myErr.Number == n {
				return true
			}
		}
		return false
	}
	var stErr sqlStateError
	if errors.As(err, &stErr) && contains(states, stErr.SQLState()) {
		return true
	}
	msg := err.Error()
	for _, m := range messages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
