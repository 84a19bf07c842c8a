package schema

import (
	"errors"
	"strings"
)

// ConstraintKind classifies a detected database constraint violation so a
// caller in the root package can build a domain-level ConstraintError
// without this package importing it back.
type ConstraintKind int

// The constraint kinds DetectConstraint can report.
const (
	ConstraintNone ConstraintKind = iota
	ConstraintUnique
	ConstraintForeignKey
	ConstraintCheck
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintUnique:
		return "unique"
	case ConstraintForeignKey:
		return "foreign key"
	case ConstraintCheck:
		return "check"
	default:
		return "none"
	}
}

// errorCoder is implemented by pq.Error and similar Postgres driver errors.
type errorCoder interface {
	Code() string
}

// errorNumberer is implemented by mysql.MySQLError.
type errorNumberer interface {
	Number() uint16
}

// sqlStateError is implemented by pgx and some Postgres drivers.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// DetectConstraint inspects err for a dialect-specific constraint violation,
// trying driver error-code interfaces first (pq.Error/pgx's SQLState/Code,
// mysql.MySQLError's Number) and falling back to substring matching for
// drivers that surface neither, such as modernc.org/sqlite.
func DetectConstraint(err error) ConstraintKind {
	if err == nil {
		return ConstraintNone
	}

	if e, ok := asError[sqlStateError](err); ok {
		if k := constraintFromCode(e.SQLState()); k != ConstraintNone {
			return k
		}
	}
	if e, ok := asError[errorCoder](err); ok {
		if k := constraintFromCode(e.Code()); k != ConstraintNone {
			return k
		}
	}
	if e, ok := asError[errorNumberer](err); ok {
		switch e.Number() {
		case mysqlDuplicateEntry:
			return ConstraintUnique
		case mysqlForeignKeyParent, mysqlForeignKeyChild:
			return ConstraintForeignKey
		case mysqlCheckConstraintViolate:
			return ConstraintCheck
		}
	}

	msg := err.Error()
	switch {
	case containsAny(msg, "Error 1062", "violates unique constraint", "UNIQUE constraint failed"):
		return ConstraintUnique
	case containsAny(msg, "Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"):
		return ConstraintForeignKey
	case containsAny(msg, "Error 3819", "violates check constraint", "CHECK constraint failed"):
		return ConstraintCheck
	default:
		return ConstraintNone
	}
}

func constraintFromCode(code string) ConstraintKind {
	switch code {
	case pgUniqueViolation:
		return ConstraintUnique
	case pgForeignKeyViolation:
		return ConstraintForeignKey
	case pgCheckViolation:
		return ConstraintCheck
	default:
		return ConstraintNone
	}
}

// asError walks err's Unwrap chain looking for the first error implementing T.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
