package ygggo_formsql

import (
	"errors"
	"fmt"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
)

// UnsupportedSchemaTypeError is returned when a form schema is not of type "object".
type UnsupportedSchemaTypeError struct {
	Type string
}

func (e *UnsupportedSchemaTypeError) Error() string {
	return fmt.Sprintf("unsupported schema type %q: only object schemas can be stored", e.Type)
}

// UnsupportedDestinationError is returned when no provider is registered for a URL.
type UnsupportedDestinationError struct {
	URL string
}

func (e *UnsupportedDestinationError) Error() string {
	return fmt.Sprintf("unsupported destination %q", redactURL(e.URL))
}

// MissingParameterError is returned when a placeholder has no key in the parameter map.
type MissingParameterError struct {
	Name     string
	Template string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing parameter %q for template %q", e.Name, e.Template)
}

// UnsupportedTypeError is returned when a placeholder carries an unknown type token.
type UnsupportedTypeError struct {
	Name     string
	Type     string
	Template string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported type %q for parameter %q in template %q", e.Type, e.Name, e.Template)
}

// InvalidValueError is returned when a value cannot be converted to its placeholder type.
type InvalidValueError struct {
	Name     string
	Type     string
	Template string
	Value    any
	Err      error
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %v for parameter %q of type %q: %v", e.Value, e.Name, e.Type, e.Err)
}

func (e *InvalidValueError) Unwrap() error { return e.Err }

// StatementExecutionError wraps a failure reported by the database while
// preparing or executing a statement.
type StatementExecutionError struct {
	Query string
	Err   error
}

func (e *StatementExecutionError) Error() string {
	return fmt.Sprintf("statement execution failed: %v", e.Err)
}

func (e *StatementExecutionError) Unwrap() error { return e.Err }

// IsRequestError reports whether err was caused by the submission itself
// (schema, destination or values) rather than by the database.
func IsRequestError(err error) bool {
	var (
		schemaErr  *UnsupportedSchemaTypeError
		destErr    *UnsupportedDestinationError
		missingErr *MissingParameterError
		typeErr    *UnsupportedTypeError
		valueErr   *InvalidValueError
	)
	return errors.As(err, &schemaErr) || errors.As(err, &destErr) ||
		errors.As(err, &missingErr) || errors.As(err, &typeErr) || errors.As(err, &valueErr)
}

// ErrorClass groups driver errors by how a caller should react to them.
type ErrorClass int

const (
	ErrClassUnknown ErrorClass = iota
	ErrClassRetryable
	ErrClassConflict
	ErrClassReadonly
	ErrClassConstraint
)

func (c ErrorClass) String() string {
	switch c {
	case ErrClassRetryable:
		return "retryable"
	case ErrClassConflict:
		return "conflict"
	case ErrClassReadonly:
		return "readonly"
	case ErrClassConstraint:
		return "constraint"
	}
	return "unknown"
}

// Classify maps MySQL error numbers, PostgreSQL SQLSTATE codes and SQLite result
// codes onto an ErrorClass. It only informs status codes and log fields; nothing
// in the submission path retries.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrClassUnknown
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1213, 1205: // deadlock, lock wait timeout
			return ErrClassRetryable
		case 1290: // --read-only
			return ErrClassReadonly
		case 1062, 1022:
			return ErrClassConflict
		case 1048, 1451, 1452, 3819:
			return ErrClassConstraint
		}
		return ErrClassUnknown
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		switch {
		case pe.Code == "40001" || pe.Code == "40P01" || pe.Code == "55P03":
			return ErrClassRetryable
		case pe.Code == "25006":
			return ErrClassReadonly
		case pe.Code == "23505":
			return ErrClassConflict
		case len(pe.Code) == 5 && pe.Code[:2] == "23":
			return ErrClassConstraint
		}
		return ErrClassUnknown
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		switch {
		case code == 2067 || code == 1555: // SQLITE_CONSTRAINT_UNIQUE, _PRIMARYKEY
			return ErrClassConflict
		case code&0xff == 19: // SQLITE_CONSTRAINT
			return ErrClassConstraint
		case code&0xff == 5 || code&0xff == 6: // SQLITE_BUSY, SQLITE_LOCKED
			return ErrClassRetryable
		case code&0xff == 8: // SQLITE_READONLY
			return ErrClassReadonly
		}
	}
	return ErrClassUnknown
}
