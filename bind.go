package ygggo_formsql

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
)

// Statement is a prepared statement handle supplied by a connector.
type Statement interface {
	ExecContext(ctx context.Context, args ...any) (sql.Result, error)
}

// BoundStatement is a prepared statement with every positional slot filled.
// It belongs to the submission that bound it and executes at most once.
type BoundStatement struct {
	stmt     Statement
	query    string
	args     []any
	executed atomic.Bool
}

var errAlreadyExecuted = errors.New("bound statement already executed")

// Bind coerces params into the positional slots of a compiled statement.
//
// Slots are filled in placeholder order starting at position 1. A placeholder whose
// name is absent from params, whose type token is unknown, or whose value cannot be
// converted aborts the whole bind: no BoundStatement is produced, so nothing executes.
// A key that is present with a nil value binds SQL NULL.
func Bind(stmt Statement, cs CompiledStatement, params map[string]any) (*BoundStatement, error) {
	args := make([]any, len(cs.Placeholders))
	for i, p := range cs.Placeholders {
		v, ok := params[p.Name]
		if !ok {
			return nil, &MissingParameterError{Name: p.Name, Template: cs.Template}
		}
		rule, ok := ParseCoercion(p.Type)
		if !ok {
			return nil, &UnsupportedTypeError{Name: p.Name, Type: p.Type, Template: cs.Template}
		}
		dv, err := rule.Convert(v)
		if err != nil {
			return nil, &InvalidValueError{Name: p.Name, Type: p.Type, Template: cs.Template, Value: v, Err: err}
		}
		args[i] = dv
	}
	return &BoundStatement{stmt: stmt, query: cs.Query, args: args}, nil
}

// Args returns the coerced values in positional order.
func (b *BoundStatement) Args() []any {
	out := make([]any, len(b.args))
	copy(out, b.args)
	return out
}

// Query returns the positional query the statement was compiled to.
func (b *BoundStatement) Query() string { return b.query }

// Exec runs the statement. Driver failures come back as *StatementExecutionError.
func (b *BoundStatement) Exec(ctx context.Context) (sql.Result, error) {
	if b == nil || b.stmt == nil {
		return nil, sql.ErrConnDone
	}
	if !b.executed.CompareAndSwap(false, true) {
		return nil, errAlreadyExecuted
	}
	res, err := b.stmt.ExecContext(ctx, b.args...)
	if err != nil {
		return nil, &StatementExecutionError{Query: b.query, Err: err}
	}
	return res, nil
}
